package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DetectedStreamInfo is what ffprobe reported about a channel's streams.
type DetectedStreamInfo struct {
	VideoCodec string  `json:"video_codec,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Bitrate    int     `json:"bitrate,omitempty"`

	AudioCodec string `json:"audio_codec,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// Probe runs ffprobe against an RTSP source and summarizes the first video
// and audio streams it reports. The timeout bounds the whole invocation.
func Probe(ctx context.Context, ffprobePath, rtspURL string, timeout time.Duration) (DetectedStreamInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffprobePath, BuildProbeArgs(rtspURL)...).Output()
	if err != nil {
		return DetectedStreamInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(data []byte) (DetectedStreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return DetectedStreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var info DetectedStreamInfo
	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec != "" {
				continue
			}
			info.VideoCodec = stream.CodecName
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
			if bps, err := strconv.Atoi(stream.BitRate); err == nil {
				info.Bitrate = bps / 1000
			}
		case "audio":
			if info.AudioCodec != "" {
				continue
			}
			info.AudioCodec = stream.CodecName
			info.Channels = stream.Channels
			info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
		}
	}
	return info, nil
}

// parseFrameRate handles ffprobe's "num/den" rational form as well as plain
// numbers. Unparsable or zero-denominator input yields 0.
func parseFrameRate(rate string) float64 {
	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0
	}
	return f
}
