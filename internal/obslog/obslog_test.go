package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := Build(Options{Level: zapcore.InfoLevel, Console: true, Format: "json", Stdout: &buf})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Debug("hidden")
	l.Info("move_start", zap.String("from", "e2"))
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "move_start" || rec["from"] != "e2" || rec["level"] != "info" {
		t.Fatalf("record = %v", rec)
	}
}

func TestBuildFileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hop.log")
	l, err := Build(Options{Level: zapcore.DebugLevel, ToFile: true, FilePath: path, Format: "legacy"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Warn("session_reset")
	_ = l.Sync()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "WARN | ") || !strings.Contains(string(b), "session_reset") {
		t.Fatalf("log = %q", b)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "yaml")
	t.Setenv("LOG_TO_FILE", "TRUE")
	o := OptionsFromEnv()
	if o.Level != zapcore.DebugLevel || o.Format != "legacy" || !o.ToFile || !o.Console {
		t.Fatalf("options = %+v", o)
	}
}

func TestReplaceRestores(t *testing.T) {
	orig := L()
	l := zap.NewExample()
	restore := Replace(l)
	if L() != l {
		t.Fatalf("Replace did not install logger")
	}
	restore()
	if L() != orig {
		t.Fatalf("restore did not reinstall previous logger")
	}
}
