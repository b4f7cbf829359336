package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
)

// Binaries holds resolved paths to the external media tools.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// ResolveBinaries locates ffmpeg and ffprobe, preferring configured paths
// over PATH lookup, and verifies each one answers -version.
func ResolveBinaries(ctx context.Context, ffmpegPath, ffprobePath string) (Binaries, error) {
	ffmpeg, err := resolveBinary(ctx, ffmpegPath, "ffmpeg")
	if err != nil {
		return Binaries{}, err
	}
	ffprobe, err := resolveBinary(ctx, ffprobePath, "ffprobe")
	if err != nil {
		return Binaries{}, err
	}
	return Binaries{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

func resolveBinary(ctx context.Context, configured, name string) (string, error) {
	path := configured
	if path == "" {
		found, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("%s not found in PATH: %w", name, err)
		}
		path = found
	}
	if err := exec.CommandContext(ctx, path, "-version").Run(); err != nil {
		return "", fmt.Errorf("%s at %q is not runnable: %w", name, path, err)
	}
	return path, nil
}
