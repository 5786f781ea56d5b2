package app

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-hopboard/internal/assets"
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/config"
	"github.com/park285/cheese-hopboard/internal/input"
	"github.com/park285/cheese-hopboard/internal/journal"
	"github.com/park285/cheese-hopboard/internal/view"
	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"github.com/redis/go-redis/v9"
)

func testConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.FrameRate = 240
	cfg.MoveDelay = 10 * time.Millisecond
	cfg.SpriteSize = 16
	return cfg
}

func buildDeps(t *testing.T, cfg *config.AppConfig, sink *journal.Sink) *Deps {
	t.Helper()
	deps, err := Build(cfg, nil, Options{
		Rand:    rand.New(rand.NewSource(3)),
		Assets:  assets.NewLoader(nil, cfg.SpriteSize),
		Journal: sink,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return deps
}

func startRuntime(t *testing.T, deps *Deps) *Runtime {
	t.Helper()
	rt := NewRuntime(deps, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- rt.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errc:
		case <-time.After(5 * time.Second):
			t.Errorf("runtime did not stop")
		}
	})
	return rt
}

func waitEvent(t *testing.T, ch <-chan boarddto.Event, typ string) boarddto.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestBuildDefaults(t *testing.T) {
	deps := buildDeps(t, testConfig(), nil)
	if deps.Registry.Len() != 32 || deps.Scene.Len() != 32 {
		t.Fatalf("pieces = %d, entities = %d", deps.Registry.Len(), deps.Scene.Len())
	}
	if deps.View.ActiveIndex() != 1 || deps.View.Active().Name != "white" {
		t.Fatalf("active camera = %d %s", deps.View.ActiveIndex(), deps.View.Active().Name)
	}
	if deps.Journal.Enabled() {
		t.Fatalf("journal enabled without redis or postgres")
	}
	if err := deps.Registry.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Variant = "knight-tour"
	if _, err := Build(cfg, nil, Options{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Build(nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildFailsOnMissingAsset(t *testing.T) {
	cfg := testConfig()
	_, err := Build(cfg, nil, Options{Assets: assets.NewLoader(fstest.MapFS{}, cfg.SpriteSize)})
	var ae *assets.AssetLoadError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AssetLoadError", err)
	}
	if !strings.HasPrefix(ae.Name, "pieces/w") {
		t.Fatalf("asset = %q", ae.Name)
	}
}

func TestBuildLoadsMoveScript(t *testing.T) {
	cfg := testConfig()
	cfg.MoveScript = filepath.Join(t.TempDir(), "moves.lua")
	if err := os.WriteFile(cfg.MoveScript, []byte("function chance() return false end"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	deps := buildDeps(t, cfg, nil)
	defer deps.Script.Close()
	if deps.Script == nil {
		t.Fatalf("script not loaded")
	}

	cfg = testConfig()
	cfg.MoveScript = filepath.Join(t.TempDir(), "absent.lua")
	if _, err := Build(cfg, nil, Options{}); err == nil {
		t.Fatalf("missing script accepted")
	}
}

func TestBuildStagingVariant(t *testing.T) {
	cfg := testConfig()
	cfg.Variant = "staging"
	deps := buildDeps(t, cfg, nil)
	for _, p := range deps.Registry.All() {
		if p.Kind.String() != "pawn" {
			t.Fatalf("staging layout holds a %s", p.Kind)
		}
	}
}

func TestRuntimeKeysDriveSession(t *testing.T) {
	rt := startRuntime(t, buildDeps(t, testConfig(), nil))
	events, cancel := rt.Subscribe(64)
	defer cancel()
	ctx := context.Background()

	res, err := rt.Key(ctx, " ")
	if err != nil {
		t.Fatalf("Key space: %v", err)
	}
	if !res.Applied || !res.Running {
		t.Fatalf("toggle result = %+v", res)
	}
	started := waitEvent(t, events, "move_started")
	if started.Move == nil || started.Move.Color != "white" || started.Summary == "" {
		t.Fatalf("move_started = %+v", started)
	}
	done := waitEvent(t, events, "move_completed")
	if done.Move.Seq != started.Move.Seq || done.State.ActiveColor != "black" {
		t.Fatalf("move_completed = %+v", done)
	}

	if _, err := rt.Key(ctx, "x"); !errors.Is(err, input.ErrUnknownKey) {
		t.Fatalf("unknown key err = %v", err)
	}
	res, err = rt.Key(ctx, "3")
	if err != nil || res.Camera != 3 {
		t.Fatalf("camera key = %+v, %v", res, err)
	}
	if _, err := rt.Key(ctx, "r"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap, err := rt.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.State.Running || snap.State.Moves != 0 || snap.CameraName != "side" || len(snap.Pieces) != 32 {
		t.Fatalf("snapshot after reset = %+v", snap.State)
	}
}

func TestRuntimePointerResizeAndFrame(t *testing.T) {
	rt := startRuntime(t, buildDeps(t, testConfig(), nil))
	ctx := context.Background()
	if _, err := rt.Key(ctx, "0"); err != nil {
		t.Fatalf("Key 0: %v", err)
	}

	// top camera at 960x720: 30px per unit around (480,360)
	pick, err := rt.Pointer(ctx, 495, 375)
	if err != nil {
		t.Fatalf("Pointer: %v", err)
	}
	if !pick.Hit || pick.Square != "e5" || pick.Text != "Square: e5" {
		t.Fatalf("pick = %+v", pick)
	}
	if pick, _ := rt.Pointer(ctx, 2, 2); pick.Hit {
		t.Fatalf("corner pick hit %s", pick.Square)
	}
	for _, name := range []string{"e5", "a1", "H8"} {
		pick, err := rt.PointSquare(ctx, name)
		if err != nil || !pick.Hit || pick.Square != strings.ToLower(name) {
			t.Fatalf("PointSquare(%s) = %+v, %v", name, pick, err)
		}
	}
	for _, name := range []string{"i1", "a9", "e", "e123456789012345678901"} {
		if _, err := rt.PointSquare(ctx, name); !errors.Is(err, board.ErrBadSquareName) {
			t.Fatalf("PointSquare(%s) err = %v", name, err)
		}
	}

	if _, err := rt.Resize(ctx, 0, 10); !errors.Is(err, view.ErrBadSize) {
		t.Fatalf("Resize(0,10) err = %v", err)
	}
	size, err := rt.Resize(ctx, 320, 240)
	if err != nil || size.Width != 320 || size.Height != 240 {
		t.Fatalf("Resize = %+v, %v", size, err)
	}
	b, err := rt.FramePNG(ctx)
	if err != nil {
		t.Fatalf("FramePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Fatalf("frame bounds = %v", img.Bounds())
	}
}

func TestRuntimeJournalsToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := journal.NewStore(rdb, time.Hour)

	cfg := testConfig()
	cfg.AutoStart = true
	rt := startRuntime(t, buildDeps(t, cfg, journal.NewSink(store, nil, nil)))
	events, cancel := rt.Subscribe(64)
	defer cancel()
	waitEvent(t, events, "move_completed")

	ctx := context.Background()
	id, err := rt.SessionID(ctx)
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	snap, err := store.LoadSnapshot(ctx, id)
	if err != nil || snap == nil {
		t.Fatalf("LoadSnapshot = %v, %v", snap, err)
	}
	if snap.State.SessionID != id || snap.State.Moves < 1 {
		t.Fatalf("stored snapshot = %+v", snap.State)
	}
	recent, err := store.RecentEvents(ctx, id, 0)
	if err != nil || len(recent) < 3 {
		t.Fatalf("recent = %d, %v", len(recent), err)
	}
	if recent[0].Type != "running_changed" {
		t.Fatalf("first journaled event = %s", recent[0].Type)
	}
}

func TestDoAfterStop(t *testing.T) {
	rt := NewRuntime(buildDeps(t, testConfig(), nil), nil)
	go func() { _ = rt.Run(context.Background()) }()
	if _, err := rt.SessionID(context.Background()); err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	rt.Stop()
	if err := rt.Do(context.Background(), func(*Deps) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do after stop = %v", err)
	}
	if err := rt.Run(context.Background()); err == nil {
		t.Fatalf("second Run accepted")
	}
	assertClosedStream(t, rt)
}

func TestSubscribeAfterStopIsClosed(t *testing.T) {
	rt := NewRuntime(buildDeps(t, testConfig(), nil), nil)
	rt.Stop()
	assertClosedStream(t, rt)
	if err := rt.Do(context.Background(), func(*Deps) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do on a runtime that never ran = %v", err)
	}
}

func assertClosedStream(t *testing.T, rt *Runtime) {
	t.Helper()
	ch, cancel := rt.Subscribe(1)
	defer cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("event delivered after stop")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription after stop left open")
	}
}
