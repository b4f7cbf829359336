package streaming

import (
	"encoding/base64"
	"time"

	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/process"
)

// SessionState is a session's lifecycle phase. Transitions are one-way:
// pending -> active -> stopped.
type SessionState string

const (
	StatePending SessionState = "pending"
	StateActive  SessionState = "active"
	StateStopped SessionState = "stopped"
)

// MediaTransport is one negotiated media leg. Key material originates with
// the viewer and is passed through as opaque bytes.
type MediaTransport struct {
	// Port is the viewer's receive port.
	Port     int
	SRTPKey  []byte
	SRTPSalt []byte
	SSRC     uint32
	// ForwardPort and ReturnPort are locally allocated ephemeral ports.
	ForwardPort int
	ReturnPort  int
}

// srtpParams renders key||salt the way FFmpeg's -srtp_out_params expects.
func (t MediaTransport) srtpParams() string {
	material := make([]byte, 0, len(t.SRTPKey)+len(t.SRTPSalt))
	material = append(material, t.SRTPKey...)
	material = append(material, t.SRTPSalt...)
	return base64.StdEncoding.EncodeToString(material)
}

// session is one tracked viewer session. Owned by the Manager; all access
// goes through its lock.
type session struct {
	id        string
	channelID int
	address   string
	state     SessionState
	video     MediaTransport
	audio     MediaTransport
	createdAt time.Time

	handle *process.Handle
}

// PrepareRequest carries the viewer's transport offer.
type PrepareRequest struct {
	SessionID string
	ChannelID int
	// Address is where the viewer receives media.
	Address   string
	VideoPort int
	AudioPort int

	VideoKey  []byte
	VideoSalt []byte
	AudioKey  []byte
	AudioSalt []byte
}

// PrepareResult echoes the viewer's key material alongside the allocated
// local ports and generated SSRCs.
type PrepareResult struct {
	VideoForwardPort int
	VideoReturnPort  int
	AudioForwardPort int
	AudioReturnPort  int

	VideoSSRC uint32
	AudioSSRC uint32

	VideoKey  []byte
	VideoSalt []byte
	AudioKey  []byte
	AudioSalt []byte
}

// StartRequest carries the viewer's negotiated video parameters. All values
// are requests, not commands: they are clamped against the camera's
// configuration before use.
type StartRequest struct {
	SessionID string
	Width     int
	Height    int
	FPS       int
	// Bitrate is the viewer's hint in kbit/s.
	Bitrate int
}

// CameraSettings are the per-camera knobs consulted when a session starts.
type CameraSettings struct {
	StreamType nvr.StreamType

	MaxWidth   int
	MaxHeight  int
	MaxFPS     int
	MaxBitrate int
	MinBitrate int

	Acceleration     ffmpeg.Acceleration
	HWDevice         string
	FlipHorizontal   bool
	FlipVertical     bool
	CustomFilter     string
	ExtraEncoderArgs []string
	PacketSize       int

	AudioEnabled bool
	AudioCodec   ffmpeg.AudioCodec

	Debug bool
}

// SettingsFunc resolves the camera settings for a channel.
type SettingsFunc func(channelID int) CameraSettings

// SessionInfo is the read-only view exposed on the control API.
type SessionInfo struct {
	ID        string       `json:"id" doc:"Opaque session identifier"`
	ChannelID int          `json:"channel_id" doc:"NVR channel"`
	State     SessionState `json:"state" doc:"Lifecycle state"`
	Address   string       `json:"address" doc:"Viewer address"`
	VideoPort int          `json:"video_port" doc:"Viewer video port"`
	PID       int          `json:"pid,omitempty" doc:"Transcoder process id"`
	CreatedAt time.Time    `json:"created_at" doc:"Session creation time"`
}

func (s *session) info() SessionInfo {
	info := SessionInfo{
		ID:        s.id,
		ChannelID: s.channelID,
		State:     s.state,
		Address:   s.address,
		VideoPort: s.video.Port,
		CreatedAt: s.createdAt,
	}
	if s.handle != nil {
		info.PID = s.handle.PID()
	}
	return info
}
