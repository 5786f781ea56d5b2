// Package obslog owns the process-wide zap logger.
package obslog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger atomic.Pointer[zap.Logger]

func init() { globalLogger.Store(zap.NewNop()) }

// L returns the global logger; a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger.Load() }

// Named returns a child of the global logger for one component.
func Named(component string) *zap.Logger { return L().Named(component) }

// Replace swaps the global logger and returns a func restoring the previous
// one. Tests use it with zaptest/observer cores.
func Replace(l *zap.Logger) func() {
	prev := globalLogger.Swap(l)
	return func() { globalLogger.Store(prev) }
}

type Options struct {
	Level    zapcore.Level
	Console  bool
	ToFile   bool
	FilePath string
	Format   string // legacy | json | console
	Caller   bool
	// Stdout replaces os.Stdout for the console core.
	Stdout io.Writer
}

// OptionsFromEnv reads LOG_LEVEL, LOG_TO_CONSOLE, LOG_TO_FILE, LOG_FILE,
// LOG_FORMAT and LOG_CALLER.
func OptionsFromEnv() Options {
	format := strings.ToLower(strings.TrimSpace(getenvDefault("LOG_FORMAT", "legacy")))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}
	return Options{
		Level:    parseLevel(getenvDefault("LOG_LEVEL", "info")),
		Console:  strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		ToFile:   strings.EqualFold(getenvDefault("LOG_TO_FILE", "false"), "true"),
		FilePath: strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "hopboard.log"))),
		Format:   format,
		Caller:   strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
	}
}

// InitFromEnv builds a logger from the environment and installs it.
func InitFromEnv() error {
	l, err := Build(OptionsFromEnv())
	if err != nil {
		return err
	}
	globalLogger.Store(l)
	return nil
}

// Build assembles a tee of console and file cores.
func Build(o Options) (*zap.Logger, error) {
	var cores []zapcore.Core

	if o.Console {
		out := o.Stdout
		if out == nil {
			out = os.Stdout
		}
		cores = append(cores, zapcore.NewCore(encoderFor(o.Format), zapcore.AddSync(out), o.Level))
	}

	if o.ToFile {
		if err := ensureDir(filepath.Dir(o.FilePath)); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(o.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoderFor(o.Format), zapcore.AddSync(f), o.Level))
	}

	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), o.Level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if o.Caller || o.Format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	case "console":
		return zapcore.NewConsoleEncoder(consoleEncoderConfig(false))
	default:
		return zapcore.NewConsoleEncoder(legacyEncoderConfig())
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func legacyEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func consoleEncoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
