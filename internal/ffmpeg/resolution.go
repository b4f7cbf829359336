package ffmpeg

import (
	"fmt"
	"strings"
)

// Platform hard ceilings. Camera maxima are bounded by these before any
// request is clamped against them.
const (
	CeilingWidth  = 1920
	CeilingHeight = 1080
	CeilingFPS    = 30
)

// Default bitrate bounds in kbit/s, applied when a camera leaves them unset.
const (
	DefaultMaxBitrate = 2000
	DefaultMinBitrate = 300
)

// DefaultPacketSize is the video RTP packet size in bytes.
const DefaultPacketSize = 1316

// ClampDimensions bounds a requested frame size by the camera maximum,
// itself bounded by the platform ceiling. Dimensions are never upscaled:
// a request below the maximum comes back unchanged.
func ClampDimensions(reqWidth, reqHeight, camMaxWidth, camMaxHeight int) (width, height int) {
	maxWidth := boundToCeiling(camMaxWidth, CeilingWidth)
	maxHeight := boundToCeiling(camMaxHeight, CeilingHeight)
	return clampAxis(reqWidth, maxWidth), clampAxis(reqHeight, maxHeight)
}

// ClampFPS bounds a requested frame rate by the camera maximum and the
// platform ceiling.
func ClampFPS(reqFPS, camMaxFPS int) int {
	return clampAxis(reqFPS, boundToCeiling(camMaxFPS, CeilingFPS))
}

// ClampBitrate adjusts a requested bitrate (kbit/s) into the configured
// [minimum, maximum] range. Out-of-range requests are silently adjusted,
// never rejected. Zero bounds fall back to the defaults; an absent (zero)
// request clamps up to the minimum like any below-range value.
func ClampBitrate(reqBitrate, minBitrate, maxBitrate int) int {
	if maxBitrate <= 0 {
		maxBitrate = DefaultMaxBitrate
	}
	if minBitrate <= 0 {
		minBitrate = DefaultMinBitrate
	}
	if minBitrate > maxBitrate {
		minBitrate = maxBitrate
	}
	switch {
	case reqBitrate > maxBitrate:
		return maxBitrate
	case reqBitrate < minBitrate:
		return minBitrate
	}
	return reqBitrate
}

// FilterChain assembles the -vf stages for a stream in contract order:
// flips, scale-to-fit, the profile's pixel-format/upload stages, then any
// user filter. The scale stage preserves aspect ratio and never upscales.
// A user filter carrying its own hardware scale stage replaces ours, so it
// is dropped rather than stacked.
func FilterChain(width, height int, flipHorizontal, flipVertical bool, profile Profile, customFilter string) string {
	var stages []string

	if flipHorizontal {
		stages = append(stages, "hflip")
	}
	if flipVertical {
		stages = append(stages, "vflip")
	}

	stages = append(stages, fmt.Sprintf(
		"scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease",
		width, height))

	stages = append(stages, profile.ScaleStages...)

	if customFilter != "" && !strings.Contains(customFilter, "scale_") {
		stages = append(stages, customFilter)
	}

	return strings.Join(stages, ",")
}

// boundToCeiling returns the camera limit bounded by the platform ceiling,
// treating an unset (non-positive) limit as the ceiling itself.
func boundToCeiling(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

// clampAxis bounds a request by a maximum, treating an unset request as a
// request for the maximum.
func clampAxis(req, max int) int {
	if req <= 0 || req > max {
		return max
	}
	return req
}
