package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-hopboard/internal/animator"
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/park285/cheese-hopboard/internal/scene"
	"go.uber.org/zap"
)

// Rand is the randomness the controller draws from; *math/rand.Rand fits.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Controller owns turn order, run/pause, move scheduling and the single
// in-flight hop. It is the only writer of the registry once the session has
// started. It is not safe for concurrent use; callers drive it from one
// goroutine.
type Controller struct {
	cfg     Config
	reg     *pieces.Registry
	scn     *scene.Scene
	anim    *animator.Animator
	rng     Rand
	chooser Chooser
	logger  *zap.Logger

	observers []Observer

	state   State
	clock   time.Duration
	pending bool
	dueAt   time.Duration
	current *Move
}

// New builds a controller over a populated registry and a scene holding one
// entity per piece. Entities are snapped to their pieces' placements.
func New(reg *pieces.Registry, scn *scene.Scene, rng Rand, cfg Config, logger *zap.Logger) (*Controller, error) {
	if reg == nil || scn == nil || rng == nil {
		return nil, fmt.Errorf("session: registry, scene and rand are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Step <= 0 || cfg.Step > 1 {
		return nil, animator.ErrBadStep
	}
	c := &Controller{
		cfg:    cfg,
		reg:    reg,
		scn:    scn,
		anim:   animator.New(),
		rng:    rng,
		logger: logger,
		state: State{
			SessionID:   uuid.NewString(),
			ActiveColor: cfg.StartColor,
		},
	}
	for _, p := range reg.All() {
		if _, ok := scn.Entity(p.ID); !ok {
			return nil, fmt.Errorf("session: no scene entity for piece %d", p.ID)
		}
		c.syncEntity(p)
	}
	return c, nil
}

func (c *Controller) Subscribe(o Observer) {
	if o != nil {
		c.observers = append(c.observers, o)
	}
}

func (c *Controller) State() State               { return c.state }
func (c *Controller) Clock() time.Duration       { return c.clock }
func (c *Controller) Config() Config             { return c.cfg }
func (c *Controller) Registry() *pieces.Registry { return c.reg }
func (c *Controller) Scene() *scene.Scene        { return c.scn }
func (c *Controller) Phase() animator.Phase      { return c.anim.Phase() }

// Current returns a copy of the move in flight, or nil.
func (c *Controller) Current() *Move {
	if c.current == nil {
		return nil
	}
	mv := *c.current
	return &mv
}

// ToggleRunning flips auto-play. Switching on with no hop in flight starts a
// move right away; switching off lets an in-flight hop land but schedules
// nothing after it.
func (c *Controller) ToggleRunning() bool {
	c.state.Running = !c.state.Running
	if !c.state.Running {
		c.pending = false
	}
	c.emit(Event{Type: EventRunningChanged})
	c.logger.Info("running_changed", zap.Bool("running", c.state.Running))
	if c.state.Running && !c.state.InFlight {
		if err := c.ScheduleNextMove(); err != nil && !errors.Is(err, ErrNoLegalDestination) {
			c.logger.Warn("schedule_failed", zap.Error(err))
		}
	}
	return c.state.Running
}

// ScheduleNextMove picks a random piece of the active color and a destination,
// commits the placement change, and starts the hop. When no destination
// exists the turn is skipped and, if running, the next attempt is scheduled.
func (c *Controller) ScheduleNextMove() error {
	if c.state.InFlight {
		return ErrMoveInFlight
	}
	mv, err := c.plan()
	if err != nil {
		if errors.Is(err, ErrNoLegalDestination) {
			c.skip(err)
		}
		return err
	}
	if err := c.commit(mv); err != nil {
		c.logger.Error("move_commit_refused", zap.Int("piece", int(mv.Piece)), zap.Error(err))
		c.skip(err)
		return err
	}

	ent, _ := c.scn.Entity(mv.Piece)
	hop := animator.Hop{
		From:       ent.Position(),
		To:         c.restPosition(mv.Color, mv.To),
		LiftHeight: c.cfg.LiftHeight,
		Step:       c.cfg.Step,
	}
	if err := c.anim.Start(ent, hop); err != nil {
		return err
	}
	c.state.InFlight = true
	c.state.Moves++
	mv.Seq = c.state.Moves
	c.current = mv
	c.emit(Event{Type: EventMoveStarted, Move: mv})
	fields := []zap.Field{
		zap.Int("seq", mv.Seq),
		zap.String("color", mv.Color.String()),
		zap.String("kind", mv.Kind.String()),
		zap.String("from", mv.From.String()),
		zap.String("to", mv.To.String()),
	}
	if mv.Capture != nil {
		fields = append(fields, zap.String("captured", mv.Capture.Kind.String()))
	}
	c.logger.Debug("move_start", fields...)
	return nil
}

// Tick advances the session by one rendered frame of length dt: the hop
// moves one progress step and any due continuation fires.
func (c *Controller) Tick(dt time.Duration) {
	c.clock += dt
	if c.anim.Active() {
		switch c.anim.Step() {
		case animator.Completed:
			c.finish(EventMoveCompleted)
		case animator.Abandoned:
			c.logger.Debug("move_abandoned", zap.Int("seq", c.currentSeq()))
			c.finish(EventMoveAbandoned)
		}
	}
	if c.pending && !c.state.InFlight && c.clock >= c.dueAt {
		c.pending = false
		if c.state.Running {
			if err := c.ScheduleNextMove(); err != nil && !errors.Is(err, ErrNoLegalDestination) {
				c.logger.Warn("schedule_failed", zap.Error(err))
			}
		}
	}
}

// Reset cancels any hop and pending continuation, then restores every piece
// to its starting placement. The session ends paused with the start color to
// move.
func (c *Controller) Reset() error {
	c.anim.Cancel()
	c.pending = false
	c.current = nil
	c.state.InFlight = false

	if err := c.reg.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, p := range c.reg.All() {
		c.syncEntity(p)
	}
	c.state.ActiveColor = c.cfg.StartColor
	c.state.Running = false
	c.state.Moves = 0
	c.emit(Event{Type: EventSessionReset})
	c.logger.Info("session_reset", zap.String("session", c.state.SessionID))
	return nil
}

// Snapshot copies out the session for rendering and transport.
func (c *Controller) Snapshot() Snapshot {
	all := c.reg.All()
	views := make([]PieceView, 0, len(all))
	for _, p := range all {
		v := PieceView{ID: p.ID, Color: p.Color, Kind: p.Kind, Placement: p.Placement}
		if e, ok := c.scn.Entity(p.ID); ok {
			v.Position = e.Position()
			v.Visible = e.Attached()
		}
		views = append(views, v)
	}
	snap := Snapshot{
		State:    c.state,
		Phase:    c.anim.Phase(),
		Progress: c.anim.Progress(),
		Clock:    c.clock,
		Pieces:   views,
		CaptureAreas: map[pieces.Color][]board.PieceID{
			pieces.White: c.reg.CaptureArea(pieces.White),
			pieces.Black: c.reg.CaptureArea(pieces.Black),
		},
		FEN:     c.reg.FEN(),
		Pending: c.pending,
	}
	if c.pending && c.dueAt > c.clock {
		snap.PendingAfter = c.dueAt - c.clock
	}
	return snap
}

func (c *Controller) finish(kind EventType) {
	mv := c.current
	c.current = nil
	c.state.InFlight = false
	c.state.ActiveColor = c.state.ActiveColor.Opponent()
	c.emit(Event{Type: kind, Move: mv})
	c.armContinuation()
}

func (c *Controller) skip(err error) {
	c.state.ActiveColor = c.state.ActiveColor.Opponent()
	c.emit(Event{Type: EventMoveSkipped, Reason: err.Error()})
	c.logger.Debug("move_skip", zap.Error(err))
	c.armContinuation()
}

func (c *Controller) armContinuation() {
	if !c.state.Running {
		return
	}
	c.pending = true
	c.dueAt = c.clock + c.cfg.PostMoveDelay
}

// commit applies the logical side of a move: capture first, then relocate or
// stage the mover. Scene entities of captured pieces jump straight to their
// capture slot.
func (c *Controller) commit(mv *Move) error {
	if mv.Capture != nil {
		slot, err := c.reg.MarkCaptured(mv.Capture.Piece)
		if err != nil {
			return err
		}
		mv.Capture.Slot = slot
		if p, err := c.reg.Piece(mv.Capture.Piece); err == nil {
			c.syncEntity(p)
		}
	}
	switch mv.To.Kind {
	case pieces.OnBoard:
		if err := c.reg.Relocate(mv.Piece, mv.To.Square); err != nil {
			return err
		}
	case pieces.Staged:
		if err := c.reg.Stage(mv.Piece, mv.To.Slot); err != nil {
			return err
		}
	default:
		return pieces.ErrInconsistentPlacement
	}
	if ent, ok := c.scn.Entity(mv.Piece); ok {
		ent.Reparent(groupFor(mv.Color, mv.To))
	}
	return nil
}

// syncEntity snaps an entity to where its piece rests.
func (c *Controller) syncEntity(p pieces.Piece) {
	ent, ok := c.scn.Entity(p.ID)
	if !ok {
		return
	}
	ent.SetPosition(c.restPosition(p.Color, p.Placement))
	c.scn.Attach(p.ID, groupFor(p.Color, p.Placement))
}

func (c *Controller) restPosition(color pieces.Color, pl pieces.Placement) scene.Vec3 {
	white := color == pieces.White
	switch pl.Kind {
	case pieces.Captured:
		return c.scn.CapturePosition(white, pl.Row(), pl.Col())
	case pieces.Staged:
		return c.scn.StagingPosition(white, pl.Slot)
	default:
		return c.scn.SquarePosition(pl.Square)
	}
}

func groupFor(color pieces.Color, pl pieces.Placement) scene.Group {
	switch pl.Kind {
	case pieces.Captured:
		if color == pieces.White {
			return scene.GroupWhiteCapture
		}
		return scene.GroupBlackCapture
	case pieces.Staged:
		return scene.GroupStaging
	default:
		return scene.GroupBoard
	}
}

func (c *Controller) currentSeq() int {
	if c.current == nil {
		return 0
	}
	return c.current.Seq
}

func (c *Controller) emit(e Event) {
	e.State = c.state
	e.Clock = c.clock
	for _, o := range c.observers {
		o.OnEvent(e)
	}
}
