// Package animator drives the two-phase hop of a single piece: lift straight
// up, then travel and drop onto the destination. Progress advances by a fixed
// step per rendered frame, so the hop lasts a fixed number of frames rather
// than a fixed wall-clock time.
package animator

import (
	"errors"

	"github.com/park285/cheese-hopboard/internal/scene"
)

const (
	DefaultStep       = 0.02
	DefaultLiftHeight = 2.0

	// absorbs float drift so 50 steps of 0.02 land on the 50th frame
	progressEpsilon = 1e-9
)

var (
	ErrBusy     = errors.New("animator already running")
	ErrBadStep  = errors.New("progress step must be in (0,1]")
	ErrNoTarget = errors.New("animation target is nil")
)

type Phase int

const (
	Idle Phase = iota
	Lift
	Drop
)

func (p Phase) String() string {
	switch p {
	case Lift:
		return "lift"
	case Drop:
		return "drop"
	default:
		return "idle"
	}
}

// Outcome is what a Step reports.
type Outcome int

const (
	// Running: the hop is still in progress (or the animator is idle).
	Running Outcome = iota
	// Completed is reported exactly once, on the frame the hop lands.
	Completed
	// Abandoned: the target left the scene mid-hop; nothing more happens.
	Abandoned
)

// Target is the entity being moved.
type Target interface {
	Position() scene.Vec3
	SetPosition(scene.Vec3)
	Attached() bool
}

// Hop is the input of one animation.
type Hop struct {
	From       scene.Vec3
	To         scene.Vec3
	LiftHeight float64
	Step       float64
}

type Animator struct {
	phase    Phase
	progress float64
	target   Target
	start    scene.Vec3
	mid      scene.Vec3
	end      scene.Vec3
	step     float64
}

func New() *Animator { return &Animator{} }

func (a *Animator) Phase() Phase            { return a.phase }
func (a *Animator) Progress() float64       { return a.progress }
func (a *Animator) Active() bool            { return a.phase != Idle }
func (a *Animator) Destination() scene.Vec3 { return a.end }

// Start begins a hop. Only one hop may run at a time.
func (a *Animator) Start(t Target, h Hop) error {
	if a.phase != Idle {
		return ErrBusy
	}
	if t == nil {
		return ErrNoTarget
	}
	if h.Step <= 0 || h.Step > 1 {
		return ErrBadStep
	}
	a.target = t
	a.start = h.From
	a.mid = h.From.Add(scene.Vec3{Y: h.LiftHeight})
	a.end = h.To
	a.step = h.Step
	a.progress = 0
	a.phase = Lift
	t.SetPosition(h.From)
	return nil
}

// Step advances one frame.
func (a *Animator) Step() Outcome {
	if a.phase == Idle {
		return Running
	}
	if !a.target.Attached() {
		a.reset()
		return Abandoned
	}

	a.progress += a.step
	if a.progress >= 1-progressEpsilon {
		a.target.SetPosition(a.end)
		a.reset()
		return Completed
	}
	if a.progress <= 0.5 {
		a.phase = Lift
		a.target.SetPosition(scene.Lerp(a.start, a.mid, a.progress*2))
	} else {
		a.phase = Drop
		a.target.SetPosition(scene.Lerp(a.mid, a.end, (a.progress-0.5)*2))
	}
	return Running
}

// Cancel stops the hop where it is without reporting completion.
func (a *Animator) Cancel() {
	a.reset()
}

func (a *Animator) reset() {
	a.phase = Idle
	a.progress = 0
	a.target = nil
}
