package ffmpeg

import (
	"strings"
	"testing"
)

func TestClampDimensionsNeverExceedsCameraMax(t *testing.T) {
	w, h := ClampDimensions(3840, 2160, 1920, 1080)
	if w > 1920 || h > 1080 {
		t.Errorf("resolved %dx%d, want at most 1920x1080", w, h)
	}
}

func TestClampDimensionsNeverUpscales(t *testing.T) {
	w, h := ClampDimensions(320, 240, 1920, 1080)
	if w != 320 || h != 240 {
		t.Errorf("resolved %dx%d, want 320x240 unchanged", w, h)
	}
}

func TestClampDimensionsCameraMaxBoundedByCeiling(t *testing.T) {
	// Camera claims 4K but the platform ceiling still applies
	w, h := ClampDimensions(3840, 2160, 3840, 2160)
	if w != 1920 || h != 1080 {
		t.Errorf("resolved %dx%d, want 1920x1080", w, h)
	}
}

func TestClampDimensionsUnsetRequestResolvesToMax(t *testing.T) {
	w, h := ClampDimensions(0, 0, 1280, 720)
	if w != 1280 || h != 720 {
		t.Errorf("resolved %dx%d, want 1280x720", w, h)
	}
}

func TestClampFPS(t *testing.T) {
	tests := []struct {
		name           string
		req, camMax    int
		want           int
	}{
		{"above camera max", 60, 25, 25},
		{"above ceiling", 60, 0, 30},
		{"below both", 15, 25, 15},
		{"unset request", 0, 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampFPS(tt.req, tt.camMax); got != tt.want {
				t.Errorf("ClampFPS(%d, %d) = %d, want %d", tt.req, tt.camMax, got, tt.want)
			}
		})
	}
}

func TestClampBitrate(t *testing.T) {
	tests := []struct {
		name          string
		req, min, max int
		want          int
	}{
		{"above max", 5000, 300, 2000, 2000},
		{"below min", 100, 300, 2000, 300},
		{"in range", 1500, 300, 2000, 1500},
		{"zero request takes min", 0, 300, 2000, 300},
		{"unset bounds use defaults", 5000, 0, 0, DefaultMaxBitrate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampBitrate(tt.req, tt.min, tt.max); got != tt.want {
				t.Errorf("ClampBitrate(%d, %d, %d) = %d, want %d",
					tt.req, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestFilterChainOrdering(t *testing.T) {
	chain := FilterChain(1280, 720, true, true, ResolveProfile(VAAPI), "eq=brightness=0.1")

	want := "hflip,vflip," +
		"scale='min(1280,iw)':'min(720,ih)':force_original_aspect_ratio=decrease," +
		"format=nv12,hwupload,eq=brightness=0.1"
	if chain != want {
		t.Errorf("chain = %q\nwant    %q", chain, want)
	}
}

func TestFilterChainSkipsCustomHardwareScale(t *testing.T) {
	chain := FilterChain(1280, 720, false, false, ResolveProfile(VAAPI), "scale_vaapi=w=640:h=360")
	if strings.Contains(chain, "scale_vaapi") {
		t.Errorf("custom hardware scale stage not dropped: %q", chain)
	}
}

func TestFilterChainSoftwareHasNoUploadStages(t *testing.T) {
	chain := FilterChain(1920, 1080, false, false, ResolveProfile(Software), "")
	if strings.Contains(chain, "hwupload") || strings.Contains(chain, "format=") {
		t.Errorf("unexpected hardware stages in software chain: %q", chain)
	}
}
