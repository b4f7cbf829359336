package ffmpeg

import "testing"

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 2560, "height": 1440,
			 "r_frame_rate": "20/1", "bit_rate": "4096000"},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "16000", "channels": 1}
		]
	}`)

	info, err := parseProbeOutput(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.VideoCodec != "h264" || info.Width != 2560 || info.Height != 1440 {
		t.Errorf("video fields: %+v", info)
	}
	if info.FPS != 20 {
		t.Errorf("FPS = %v, want 20", info.FPS)
	}
	if info.Bitrate != 4096 {
		t.Errorf("Bitrate = %d, want 4096", info.Bitrate)
	}
	if info.AudioCodec != "aac" || info.SampleRate != 16000 || info.Channels != 1 {
		t.Errorf("audio fields: %+v", info)
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseFrameRate(tt.in); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
