package config

import (
	"testing"
	"time"
)

func TestParseWindowSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{in: "1920x1080", w: 1920, h: 1080},
		{in: "1280X720", w: 1280, h: 720},
		{in: "640x480", w: 640, h: 480},
		{in: "1920", wantErr: true},
		{in: "0x1080", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		w, h, err := ParseWindowSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if w != tc.w || h != tc.h {
			t.Errorf("%q: got %dx%d, want %dx%d", tc.in, w, h, tc.w, tc.h)
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve(New())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("window: got %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}
	if !cfg.Overlay {
		t.Error("overlay should default on")
	}
	if cfg.Fullscreen {
		t.Error("fullscreen should default off")
	}
	if cfg.ReconnectInitial != time.Second || cfg.ReconnectMax != 30*time.Second {
		t.Errorf("reconnect: got %s/%s, want 1s/30s", cfg.ReconnectInitial, cfg.ReconnectMax)
	}
	if cfg.StreamFile != "streams.txt" {
		t.Errorf("stream file: got %q, want streams.txt", cfg.StreamFile)
	}
}

func TestResolveRejectsBadWindowSize(t *testing.T) {
	t.Parallel()

	v := New()
	v.Set("window.size", "huge")
	if _, err := Resolve(v); err == nil {
		t.Error("expected error for unparseable window size")
	}
}
