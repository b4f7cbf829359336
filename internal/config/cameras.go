package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/streaming"
)

// CameraConfig is one camera definition from cameras.toml. Everything
// beyond channel and name tunes the transcoder for that camera.
type CameraConfig struct {
	Channel int    `toml:"channel" json:"channel"`
	Name    string `toml:"name" json:"name"`
	Enabled bool   `toml:"enabled" json:"enabled"`

	// StreamType picks the RTSP substream: mainstream, substream, thirdstream.
	StreamType string `toml:"stream_type,omitempty" json:"stream_type,omitempty"`

	MaxWidth   int `toml:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight  int `toml:"max_height,omitempty" json:"max_height,omitempty"`
	MaxFPS     int `toml:"max_fps,omitempty" json:"max_fps,omitempty"`
	MaxBitrate int `toml:"max_bitrate,omitempty" json:"max_bitrate,omitempty"`
	MinBitrate int `toml:"min_bitrate,omitempty" json:"min_bitrate,omitempty"`

	Acceleration   string `toml:"acceleration,omitempty" json:"acceleration,omitempty"`
	HWDevice       string `toml:"hw_device,omitempty" json:"hw_device,omitempty"`
	VideoFilter    string `toml:"video_filter,omitempty" json:"video_filter,omitempty"`
	EncoderOptions string `toml:"encoder_options,omitempty" json:"encoder_options,omitempty"`
	PacketSize     int    `toml:"packet_size,omitempty" json:"packet_size,omitempty"`
	FlipHorizontal bool   `toml:"flip_horizontal,omitempty" json:"flip_horizontal,omitempty"`
	FlipVertical   bool   `toml:"flip_vertical,omitempty" json:"flip_vertical,omitempty"`

	Audio      bool   `toml:"audio,omitempty" json:"audio,omitempty"`
	AudioCodec string `toml:"audio_codec,omitempty" json:"audio_codec,omitempty"`

	Debug bool `toml:"debug,omitempty" json:"debug,omitempty"`
}

// CamerasConfig is the complete cameras.toml file.
type CamerasConfig struct {
	Version int            `toml:"version" json:"version"`
	Cameras []CameraConfig `toml:"cameras" json:"cameras"`
}

// LoadCameras reads the camera definitions. A missing file yields an empty
// configuration; every channel then runs on defaults.
func LoadCameras(path string) (CamerasConfig, error) {
	cfg := CamerasConfig{Version: 1}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read cameras config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse cameras config: %w", err)
	}
	return cfg, nil
}

// Camera looks up the definition for a channel.
func (c CamerasConfig) Camera(channelID int) (CameraConfig, bool) {
	for _, cam := range c.Cameras {
		if cam.Channel == channelID {
			return cam, true
		}
	}
	return CameraConfig{}, false
}

// streamType parses the configured substream, defaulting to mainstream.
func (c CameraConfig) streamType() nvr.StreamType {
	switch strings.ToLower(c.StreamType) {
	case string(nvr.Substream):
		return nvr.Substream
	case string(nvr.Thirdstream):
		return nvr.Thirdstream
	}
	return nvr.Mainstream
}

// Settings converts a camera definition into the session manager's view.
// Works on the zero value too: an unconfigured channel gets mainstream,
// software encoding and the platform defaults.
func (c CameraConfig) Settings() streaming.CameraSettings {
	audioCodec := ffmpeg.AudioOpus
	if strings.EqualFold(c.AudioCodec, string(ffmpeg.AudioAACELD)) {
		audioCodec = ffmpeg.AudioAACELD
	}

	return streaming.CameraSettings{
		StreamType:       c.streamType(),
		MaxWidth:         c.MaxWidth,
		MaxHeight:        c.MaxHeight,
		MaxFPS:           c.MaxFPS,
		MaxBitrate:       c.MaxBitrate,
		MinBitrate:       c.MinBitrate,
		Acceleration:     ffmpeg.Acceleration(c.Acceleration),
		HWDevice:         c.HWDevice,
		FlipHorizontal:   c.FlipHorizontal,
		FlipVertical:     c.FlipVertical,
		CustomFilter:     c.VideoFilter,
		ExtraEncoderArgs: strings.Fields(c.EncoderOptions),
		PacketSize:       c.PacketSize,
		AudioEnabled:     c.Audio,
		AudioCodec:       audioCodec,
		Debug:            c.Debug,
	}
}
