package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Variant != "standard" || cfg.FrameRate != 60 || cfg.Step != 0.02 || cfg.MoveDelay != time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.FrameInterval() != time.Second/60 {
		t.Fatalf("frame interval = %v", cfg.FrameInterval())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOARD_VARIANT", "Staging")
	t.Setenv("BOARD_SEED", "42")
	t.Setenv("POST_MOVE_DELAY_MS", "0")
	t.Setenv("CAPTURE_BIAS", "0.5")
	t.Setenv("AUTO_START", "true")
	t.Setenv("ORIGIN_ALLOWLIST", " http://a.test, ,http://b.test ")
	t.Setenv("SESSION_TTL_SEC", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Variant != "staging" || cfg.Seed != 42 || cfg.MoveDelay != 0 || cfg.CaptureBias != 0.5 || !cfg.AutoStart {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("ttl = %v", cfg.SessionTTL)
	}
	if diff := cmp.Diff([]string{"http://a.test", "http://b.test"}, cfg.OriginAllowlist); diff != "" {
		t.Fatalf("allowlist (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		key, val, want string
	}{
		{"BOARD_VARIANT", "hexagonal", "BOARD_VARIANT"},
		{"FRAME_RATE", "fast", "FRAME_RATE"},
		{"PROGRESS_STEP", "1.5", "PROGRESS_STEP"},
		{"CAPTURE_BIAS", "-0.1", "CAPTURE_BIAS"},
		{"VIEW_WIDTH", "0", "VIEW_WIDTH"},
		{"AUTO_START", "maybe", "AUTO_START"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
