package ffmpeg

import "strings"

// Acceleration selects which encoder pipeline a stream session uses.
type Acceleration string

// Supported acceleration modes. Anything unrecognized resolves to software.
const (
	Software     Acceleration = "software"
	VAAPI        Acceleration = "vaapi"
	QuickSync    Acceleration = "quicksync"
	NVENC        Acceleration = "nvenc"
	AMF          Acceleration = "amf"
	VideoToolbox Acceleration = "videotoolbox"
	V4L2         Acceleration = "v4l2"
)

// DefaultVAAPIDevice is the render node used when none is configured.
const DefaultVAAPIDevice = "/dev/dri/renderD128"

// Profile is one immutable encoder pipeline description.
type Profile struct {
	// Acceleration is the mode this profile belongs to.
	Acceleration Acceleration
	// Codec is the FFmpeg video encoder name.
	Codec string
	// HWInitArgs are hardware-init flags placed before the input source.
	// The %s placeholder, when present, receives the hardware device path.
	HWInitArgs []string
	// EncoderArgs are encoder-specific flags placed after the codec.
	// Many hardware encoders behave best with none.
	EncoderArgs []string
	// ScaleStages are filter stages appended after the scale filter to move
	// frames into the encoder's expected memory/pixel format.
	ScaleStages []string
	// Hardware marks profiles that encode on a GPU/ASIC.
	Hardware bool
	// Description names the pipeline for logs.
	Description string
}

var profiles = map[Acceleration]Profile{
	Software: {
		Acceleration: Software,
		Codec:        "libx264",
		EncoderArgs:  []string{"-preset", "ultrafast", "-tune", "zerolatency"},
		Description:  "libx264 (software)",
	},
	VAAPI: {
		Acceleration: VAAPI,
		Codec:        "h264_vaapi",
		HWInitArgs:   []string{"-init_hw_device", "vaapi=va:%s"},
		ScaleStages:  []string{"format=nv12", "hwupload"},
		Hardware:     true,
		Description:  "h264_vaapi (CPU decode, GPU scale+encode)",
	},
	QuickSync: {
		Acceleration: QuickSync,
		Codec:        "h264_qsv",
		HWInitArgs:   []string{"-init_hw_device", "qsv=hw"},
		EncoderArgs:  []string{"-preset", "veryfast"},
		ScaleStages:  []string{"format=nv12", "hwupload=extra_hw_frames=64"},
		Hardware:     true,
		Description:  "h264_qsv (QuickSync)",
	},
	NVENC: {
		Acceleration: NVENC,
		Codec:        "h264_nvenc",
		HWInitArgs:   []string{"-init_hw_device", "cuda=cu:0"},
		EncoderArgs:  []string{"-preset", "p1", "-tune", "ll"},
		ScaleStages:  []string{"format=nv12", "hwupload_cuda"},
		Hardware:     true,
		Description:  "h264_nvenc (NVENC)",
	},
	AMF: {
		// AMF accepts software frames directly; no hardware init needed
		Acceleration: AMF,
		Codec:        "h264_amf",
		EncoderArgs:  []string{"-usage", "transcoding", "-quality", "speed"},
		ScaleStages:  []string{"format=nv12"},
		Hardware:     true,
		Description:  "h264_amf (CPU decode+scale, GPU encode)",
	},
	VideoToolbox: {
		Acceleration: VideoToolbox,
		Codec:        "h264_videotoolbox",
		Hardware:     true,
		Description:  "h264_videotoolbox (VideoToolbox)",
	},
	V4L2: {
		Acceleration: V4L2,
		Codec:        "h264_v4l2m2m",
		Hardware:     true,
		Description:  "h264_v4l2m2m (V4L2 M2M)",
	},
}

// ResolveProfile returns the profile for an acceleration mode. Unknown or
// empty modes fall back to the software profile.
func ResolveProfile(mode Acceleration) Profile {
	if profile, ok := profiles[Acceleration(strings.ToLower(string(mode)))]; ok {
		return profile
	}
	return profiles[Software]
}
