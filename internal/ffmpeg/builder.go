package ffmpeg

import (
	"fmt"
	"strings"
)

// SRTPSuite is the only crypto suite the bridge negotiates.
const SRTPSuite = "AES_CM_128_HMAC_SHA1_80"

// AudioPacketSize is the audio RTP packet size in bytes.
const AudioPacketSize = 188

// Target is the SRTP destination for one media stream. Key material is an
// opaque base64 buffer passed through from the viewer unmodified.
type Target struct {
	Address     string
	Port        int
	PayloadType int
	SSRC        uint32
	SRTPParams  string
	PacketSize  int
}

// VideoSpec describes one video transcoder invocation. Width, height, FPS
// and bitrate are expected to be pre-clamped by the caller.
type VideoSpec struct {
	InputArgs []string

	Width   int
	Height  int
	FPS     int
	Bitrate int

	Profile          Profile
	HWDevice         string
	FlipHorizontal   bool
	FlipVertical     bool
	CustomFilter     string
	ExtraEncoderArgs []string

	Debug  bool
	Target Target
}

// AudioCodec selects the negotiated audio encoder.
type AudioCodec string

const (
	AudioOpus   AudioCodec = "opus"
	AudioAACELD AudioCodec = "aac-eld"
)

// AudioSpec describes the audio leg appended to a video invocation.
// SampleRate is in kHz, Bitrate in kbit/s.
type AudioSpec struct {
	Codec      AudioCodec
	SampleRate int
	Channels   int
	Bitrate    int
	Target     Target
}

// BuildVideoArgs assembles the transcoder argument vector. Group order is a
// compatibility contract with FFmpeg: hardware init must precede the input,
// stream selection must precede the codec, and output transport comes last.
func BuildVideoArgs(spec VideoSpec) []string {
	args := globalArgs(spec.Debug)
	args = append(args, hardwareInitArgs(spec.Profile, spec.HWDevice)...)
	args = append(args, spec.InputArgs...)
	args = append(args, "-an", "-sn", "-dn")
	args = append(args, codecArgs(spec)...)
	args = append(args, spec.Profile.EncoderArgs...)
	args = append(args, spec.ExtraEncoderArgs...)
	args = append(args, bitrateArgs(spec.Bitrate)...)
	args = append(args, outputArgs(spec.Target, DefaultPacketSize)...)
	return args
}

// AppendAudioArgs extends a video argument vector with the audio encoder and
// its own SRTP output. Separate outputs keep the media legs independently
// addressed.
func AppendAudioArgs(args []string, spec AudioSpec) []string {
	switch spec.Codec {
	case AudioAACELD:
		args = append(args, "-codec:a", "libfdk_aac", "-profile:a", "aac_eld")
	default:
		args = append(args, "-codec:a", "libopus", "-application", "lowdelay")
	}
	args = append(args, "-flags", "+global_header")
	if spec.SampleRate > 0 {
		args = append(args, "-ar", fmt.Sprintf("%dk", spec.SampleRate))
	}
	if spec.Bitrate > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", spec.Bitrate))
	}
	if spec.Channels > 0 {
		args = append(args, "-ac", fmt.Sprintf("%d", spec.Channels))
	}
	return append(args, outputArgs(spec.Target, AudioPacketSize)...)
}

// BuildSnapshotArgs assembles a one-shot still capture writing a single
// JPEG frame to stdout.
func BuildSnapshotArgs(inputArgs []string, width, height int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs...)
	args = append(args, "-an", "-sn", "-dn", "-frames:v", "1")
	if width > 0 && height > 0 {
		args = append(args, "-vf", fmt.Sprintf(
			"scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease",
			width, height))
	}
	return append(args, "-q:v", "2", "-f", "image2", "-")
}

// BuildProbeArgs assembles the ffprobe invocation for an RTSP source.
func BuildProbeArgs(rtspURL string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-print_format", "json", "-show_streams",
		"-rtsp_transport", "tcp",
		rtspURL,
	}
}

func globalArgs(debug bool) []string {
	level := "level+info"
	if debug {
		level = "level+verbose"
	}
	return []string{"-hide_banner", "-loglevel", level}
}

// hardwareInitArgs expands the profile's init flags, substituting the
// device path where the profile declares a placeholder.
func hardwareInitArgs(profile Profile, device string) []string {
	if len(profile.HWInitArgs) == 0 {
		return nil
	}
	if device == "" {
		device = DefaultVAAPIDevice
	}
	args := make([]string, 0, len(profile.HWInitArgs))
	for _, arg := range profile.HWInitArgs {
		if strings.Contains(arg, "%s") {
			arg = fmt.Sprintf(arg, device)
		}
		args = append(args, arg)
	}
	return args
}

func codecArgs(spec VideoSpec) []string {
	chain := FilterChain(spec.Width, spec.Height,
		spec.FlipHorizontal, spec.FlipVertical,
		spec.Profile, spec.CustomFilter)
	args := []string{"-codec:v", spec.Profile.Codec}
	if spec.Profile.Hardware {
		// Hardware encoders default to full-range output on some drivers
		args = append(args, "-color_range", "mpeg")
	} else {
		// Pin 8-bit 4:2:0 so 10-bit and yuvj sources stay decodable
		args = append(args, "-pix_fmt", "yuv420p")
	}
	args = append(args, "-vf", chain)
	if spec.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", spec.FPS))
	}
	return args
}

func bitrateArgs(bitrate int) []string {
	if bitrate <= 0 {
		return nil
	}
	return []string{
		"-b:v", fmt.Sprintf("%dk", bitrate),
		"-maxrate", fmt.Sprintf("%dk", bitrate),
		"-bufsize", fmt.Sprintf("%dk", 2*bitrate),
	}
}

func outputArgs(target Target, defaultPacketSize int) []string {
	packetSize := target.PacketSize
	if packetSize <= 0 {
		packetSize = defaultPacketSize
	}
	return []string{
		"-payload_type", fmt.Sprintf("%d", target.PayloadType),
		"-ssrc", fmt.Sprintf("%d", target.SSRC),
		"-f", "rtp",
		"-srtp_out_suite", SRTPSuite,
		"-srtp_out_params", target.SRTPParams,
		fmt.Sprintf("srtp://%s:%d?rtcpport=%d&pkt_size=%d",
			target.Address, target.Port, target.Port, packetSize),
	}
}
