package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Variant string
	// Seed of the move RNG; 0 means seed from the clock.
	Seed        int64
	StartColor  string
	FrameRate   int
	Step        float64
	LiftHeight  float64
	MoveDelay   time.Duration
	CaptureBias float64
	BoardBias   float64
	AutoStart   bool

	CameraPresets string
	StartCamera   int
	ViewWidth     int
	ViewHeight    int
	SpriteSize    int

	HTTPAddr        string
	OriginAllowlist []string

	RedisURL    string
	DatabaseURL string
	SessionTTL  time.Duration

	MessagesDir string
	// Lua file overriding the move picks; empty means random play.
	MoveScript  string
}

// Default returns the configuration used when no variables are set.
func Default() *AppConfig {
	return &AppConfig{
		Variant:     "standard",
		StartColor:  "white",
		FrameRate:   60,
		Step:        0.02,
		LiftHeight:  2,
		MoveDelay:   time.Second,
		CaptureBias: 0.25,
		BoardBias:   0.7,
		StartCamera: 1,
		ViewWidth:   960,
		ViewHeight:  720,
		SpriteSize:  128,
		HTTPAddr:    ":8080",
		SessionTTL:  24 * time.Hour,
	}
}

func Load() (*AppConfig, error) {
	cfg := Default()
	if v := env("BOARD_VARIANT"); v != "" {
		cfg.Variant = strings.ToLower(v)
	}
	if v := env("START_COLOR"); v != "" {
		cfg.StartColor = strings.ToLower(v)
	}
	cfg.CameraPresets = env("CAMERA_PRESETS")
	cfg.HTTPAddr = envDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.MessagesDir = env("MESSAGES_DIR")
	cfg.MoveScript = env("MOVE_SCRIPT")
	cfg.OriginAllowlist = splitList(env("ORIGIN_ALLOWLIST"))

	var errs []error
	parseInt64 := func(key string, dst *int64) {
		if v := env(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	parseInt := func(key string, dst *int) {
		if v := env(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	parseFloat := func(key string, dst *float64) {
		if v := env(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	parseInt64("BOARD_SEED", &cfg.Seed)
	parseInt("FRAME_RATE", &cfg.FrameRate)
	parseFloat("PROGRESS_STEP", &cfg.Step)
	parseFloat("LIFT_HEIGHT", &cfg.LiftHeight)
	parseFloat("CAPTURE_BIAS", &cfg.CaptureBias)
	parseFloat("BOARD_BIAS", &cfg.BoardBias)
	parseInt("START_CAMERA", &cfg.StartCamera)
	parseInt("VIEW_WIDTH", &cfg.ViewWidth)
	parseInt("VIEW_HEIGHT", &cfg.ViewHeight)
	parseInt("SPRITE_SIZE", &cfg.SpriteSize)

	var delayMS, ttlSec int
	parseInt("POST_MOVE_DELAY_MS", &delayMS)
	if env("POST_MOVE_DELAY_MS") != "" {
		cfg.MoveDelay = time.Duration(delayMS) * time.Millisecond
	}
	parseInt("SESSION_TTL_SEC", &ttlSec)
	if ttlSec > 0 {
		cfg.SessionTTL = time.Duration(ttlSec) * time.Second
	}
	if v := env("AUTO_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("AUTO_START: %w", err))
		}
		cfg.AutoStart = b
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges; Load calls it, tests and callers building an
// AppConfig by hand may too.
func (c *AppConfig) Validate() error {
	switch {
	case c.Variant != "standard" && c.Variant != "staging":
		return fmt.Errorf("BOARD_VARIANT must be standard or staging, got %q", c.Variant)
	case c.StartColor != "white" && c.StartColor != "black":
		return fmt.Errorf("START_COLOR must be white or black, got %q", c.StartColor)
	case c.FrameRate <= 0 || c.FrameRate > 240:
		return errors.New("FRAME_RATE must be in 1..240")
	case c.Step <= 0 || c.Step > 1:
		return errors.New("PROGRESS_STEP must be in (0,1]")
	case c.LiftHeight < 0:
		return errors.New("LIFT_HEIGHT must not be negative")
	case c.MoveDelay < 0:
		return errors.New("POST_MOVE_DELAY_MS must not be negative")
	case c.CaptureBias < 0 || c.CaptureBias > 1:
		return errors.New("CAPTURE_BIAS must be in [0,1]")
	case c.BoardBias < 0 || c.BoardBias > 1:
		return errors.New("BOARD_BIAS must be in [0,1]")
	case c.ViewWidth <= 0 || c.ViewHeight <= 0:
		return errors.New("VIEW_WIDTH and VIEW_HEIGHT must be positive")
	case c.SpriteSize <= 0:
		return errors.New("SPRITE_SIZE must be positive")
	}
	return nil
}

// FrameInterval is the wall-clock length of one frame.
func (c *AppConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func envDefault(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
