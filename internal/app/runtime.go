package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/input"
	"github.com/park285/cheese-hopboard/internal/journal"
	"github.com/park285/cheese-hopboard/internal/render"
	"github.com/park285/cheese-hopboard/internal/scene"
	"github.com/park285/cheese-hopboard/internal/session"
	"github.com/park285/cheese-hopboard/internal/view"
	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("runtime stopped")

const (
	requestQueue  = 64
	dispatchQueue = 256
)

// Runtime runs the frame loop. Every access to the session, the view and the
// input handler happens on the loop goroutine, through Do.
type Runtime struct {
	deps   *Deps
	input  *input.Handler
	logger *zap.Logger

	reqs   chan func()
	events chan journal.Record
	stop   chan struct{}
	done   chan struct{}
	frames atomic.Int64

	subsMu     sync.Mutex
	subs       map[int]chan boarddto.Event
	nextID     int
	subsClosed bool

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewRuntime(deps *Deps, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		deps:   deps,
		logger: logger,
		reqs:   make(chan func(), requestQueue),
		events: make(chan journal.Record, dispatchQueue),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   make(map[int]chan boarddto.Event),
	}
	r.input = input.NewHandler(deps.Session, deps.View, deps.Coords, deps.Catalog, logger.Named("input"))
	deps.Session.Subscribe(session.ObserverFunc(r.onEvent))
	return r
}

// Run drives the loop until ctx is done or Stop is called. AutoStart turns
// auto-play on before the first frame.
func (r *Runtime) Run(ctx context.Context) error {
	started := false
	r.startOnce.Do(func() { started = true })
	if !started {
		return errors.New("runtime already started")
	}
	defer close(r.done)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		r.dispatch()
	}()
	defer func() {
		close(r.events)
		<-dispatched
	}()

	if r.deps.Config.AutoStart {
		r.deps.Session.ToggleRunning()
	}

	interval := r.deps.Config.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.logger.Info("frame_loop_start", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case <-r.stop:
			r.drain()
			return nil
		case fn := <-r.reqs:
			fn()
		case <-ticker.C:
			r.deps.Session.Tick(interval)
			r.frames.Add(1)
		}
	}
}

// Stop ends Run and waits for it.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	started := true
	r.startOnce.Do(func() { started = false })
	if started {
		<-r.done
		return
	}
	close(r.done)
	r.closeSubs()
}

// drain answers queued requests so no caller of Do blocks forever.
func (r *Runtime) drain() {
	for {
		select {
		case fn := <-r.reqs:
			fn()
		default:
			return
		}
	}
}

// Frames is the number of ticks run so far.
func (r *Runtime) Frames() int64 { return r.frames.Load() }

// Do runs fn on the loop goroutine and waits for it.
func (r *Runtime) Do(ctx context.Context, fn func(*Deps) error) error {
	errc := make(chan error, 1)
	req := func() { errc <- fn(r.deps) }
	select {
	case r.reqs <- req:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-r.done:
		// drain may still have answered it
		select {
		case err := <-errc:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a stream of events and a cancel func. Slow subscribers
// miss events rather than stall the dispatcher. The stream is closed when the
// runtime stops, or at once if it already has.
func (r *Runtime) Subscribe(buffer int) (<-chan boarddto.Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan boarddto.Event, buffer)
	r.subsMu.Lock()
	if r.subsClosed {
		r.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.subsMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subsMu.Lock()
			if _, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(ch)
			}
			r.subsMu.Unlock()
		})
	}
}

// onEvent runs on the loop goroutine.
func (r *Runtime) onEvent(e session.Event) {
	ev := e.DTO(time.Now())
	ev.Summary = r.summary(e)
	rec := journal.Record{Event: ev}
	if r.deps.Journal.Enabled() {
		snap := r.snapshot()
		rec.Snapshot = &snap
	}
	select {
	case r.events <- rec:
	default:
		r.logger.Warn("event_dropped", zap.String("event", ev.Type), zap.Int("queue", cap(r.events)))
	}
}

func (r *Runtime) dispatch() {
	for rec := range r.events {
		if err := r.deps.Journal.Write(context.Background(), rec); err != nil {
			r.logger.Debug("journal_write_error", zap.Error(err))
		}
		r.subsMu.Lock()
		for _, ch := range r.subs {
			select {
			case ch <- rec.Event:
			default:
			}
		}
		r.subsMu.Unlock()
	}
	r.closeSubs()
}

func (r *Runtime) closeSubs() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subsClosed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

// snapshot must run on the loop goroutine.
func (r *Runtime) snapshot() boarddto.Snapshot {
	snap := r.deps.Session.Snapshot().DTO()
	snap.Camera = r.deps.View.ActiveIndex()
	snap.CameraName = r.deps.View.Active().Name
	if sq, ok := r.input.Hover(); ok {
		snap.Hover = sq.String()
	}
	return snap
}

func (r *Runtime) Snapshot(ctx context.Context) (boarddto.Snapshot, error) {
	var snap boarddto.Snapshot
	err := r.Do(ctx, func(*Deps) error {
		snap = r.snapshot()
		return nil
	})
	return snap, err
}

// Key applies one key press on the loop.
func (r *Runtime) Key(ctx context.Context, key string) (boarddto.KeyResult, error) {
	var out boarddto.KeyResult
	err := r.Do(ctx, func(d *Deps) error {
		res, err := r.input.Key(key)
		if err != nil {
			return err
		}
		out = boarddto.KeyResult{
			Action:  res.Action.String(),
			Applied: res.Applied,
			Running: d.Session.State().Running,
			Camera:  d.View.ActiveIndex(),
		}
		return nil
	})
	return out, err
}

// Pointer moves the pointer and reports the hovered square.
func (r *Runtime) Pointer(ctx context.Context, x, y float64) (boarddto.PickResult, error) {
	var out boarddto.PickResult
	err := r.Do(ctx, func(*Deps) error {
		sq, ok := r.input.Pointer(x, y)
		if ok {
			out = boarddto.PickResult{Square: sq.String(), Hit: true, Text: r.input.HoverText()}
		}
		return nil
	})
	return out, err
}

// PointSquare hovers the named square by pointing at its centre under the
// active camera. Hit is false when the square is off screen.
func (r *Runtime) PointSquare(ctx context.Context, name string) (boarddto.PickResult, error) {
	sq, err := board.ParseSquare(name)
	if err != nil {
		return boarddto.PickResult{}, err
	}
	var out boarddto.PickResult
	err = r.Do(ctx, func(d *Deps) error {
		if !d.Coords.Contains(sq) {
			return fmt.Errorf("%w: %s is off the board", board.ErrBadSquareName, sq)
		}
		x, z := d.Coords.ToWorld(sq)
		px, py, _, err := d.View.Project(scene.V(x, 0, z))
		if err != nil {
			out = boarddto.PickResult{Square: sq.String()}
			return nil
		}
		if got, ok := r.input.Pointer(px, py); ok {
			out = boarddto.PickResult{Square: got.String(), Hit: true, Text: r.input.HoverText()}
		}
		return nil
	})
	return out, err
}

// Resize changes the output size; the active camera's projection follows.
func (r *Runtime) Resize(ctx context.Context, w, h int) (boarddto.ResizeResult, error) {
	var out boarddto.ResizeResult
	err := r.Do(ctx, func(d *Deps) error {
		if !d.View.Resize(w, h) {
			return view.ErrBadSize
		}
		out.Width, out.Height = d.View.Size()
		return nil
	})
	return out, err
}

// FramePNG renders the current frame through the active camera.
func (r *Runtime) FramePNG(ctx context.Context) ([]byte, error) {
	var out []byte
	err := r.Do(ctx, func(d *Deps) error {
		b, err := d.Renderer.RenderPNG(ctx, d.Scene, d.View, r.overlay())
		out = b
		return err
	})
	return out, err
}

func (r *Runtime) SessionID(ctx context.Context) (string, error) {
	var id string
	err := r.Do(ctx, func(d *Deps) error {
		id = d.Session.State().SessionID
		return nil
	})
	return id, err
}

func (r *Runtime) overlay() render.Options {
	d := r.deps
	st := d.Session.State()
	cat := d.Catalog
	opts := render.Options{
		Title: cat.Text("hud.title", map[string]any{
			"Variant": d.Config.Variant,
			"Camera":  d.View.Active().Name,
		}, "hopboard"),
		Hover: r.input.HoverText(),
	}
	data := map[string]any{"Color": st.ActiveColor.String(), "Moves": st.Moves}
	switch {
	case st.InFlight:
		if mv := d.Session.Current(); mv != nil {
			data["Color"] = mv.Color.String()
			data["Kind"] = mv.Kind.String()
			data["From"] = mv.From.String()
			data["To"] = mv.To.String()
			opts.Status = cat.Text("hud.status.moving", data, "")
		}
	case st.Running:
		opts.Status = cat.Text("hud.status.running", data, "")
	default:
		opts.Status = cat.Text("hud.status.paused", data, "")
	}
	if sq, ok := r.input.Hover(); ok {
		opts.Highlight = &sq
	}
	return opts
}

func (r *Runtime) summary(e session.Event) string {
	cat := r.deps.Catalog
	data := map[string]any{
		"Color":   e.State.ActiveColor.String(),
		"Running": e.State.Running,
	}
	switch e.Type {
	case session.EventMoveStarted:
		mv := e.Move
		if mv == nil {
			return ""
		}
		data["Seq"] = mv.Seq
		data["Color"] = mv.Color.String()
		data["Kind"] = mv.Kind.String()
		data["From"] = mv.From.String()
		data["To"] = mv.To.String()
		if mv.Capture != nil {
			data["Captured"] = mv.Capture.Color.String() + " " + mv.Capture.Kind.String()
			return cat.Text("event.move_captured", data, "")
		}
		return cat.Text("event.move_started", data, "")
	case session.EventMoveSkipped:
		// the turn has already passed to the other side
		data["Color"] = e.State.ActiveColor.Opponent().String()
		return cat.Text("event.move_skipped", data, "")
	case session.EventSessionReset:
		return cat.Text("event.session_reset", data, "")
	case session.EventRunningChanged:
		return cat.Text("event.running_changed", data, "")
	}
	return ""
}
