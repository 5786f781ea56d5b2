package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-hopboard/internal/animator"
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/park285/cheese-hopboard/internal/scene"
)

var (
	ErrNoLegalDestination = errors.New("no legal destination")
	ErrMoveInFlight       = errors.New("a move is already in flight")
	ErrUnknownVariant     = errors.New("unknown board variant")
)

// Variant picks the starting layout and the destination policy.
type Variant string

const (
	// VariantStandard: 32 pieces, moves go to empty squares or capture.
	VariantStandard Variant = "standard"
	// VariantStaging: pawns shuffle between the board and the staging area.
	VariantStaging Variant = "staging"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantStandard:
		return VariantStandard, nil
	case VariantStaging:
		return VariantStaging, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Layout returns the starting pieces of the variant.
func (v Variant) Layout(size int) []pieces.Spec {
	if v == VariantStaging {
		return pieces.StagingLayout(size)
	}
	return pieces.StandardLayout(size)
}

type Config struct {
	Variant       Variant
	StartColor    pieces.Color
	LiftHeight    float64
	Step          float64
	PostMoveDelay time.Duration
	// CaptureBias is the chance a standard move targets an opposing piece.
	CaptureBias float64
	// BoardBias is the chance a staging move lands on the board.
	BoardBias float64
}

func DefaultConfig() Config {
	return Config{
		Variant:       VariantStandard,
		StartColor:    pieces.White,
		LiftHeight:    animator.DefaultLiftHeight,
		Step:          animator.DefaultStep,
		PostMoveDelay: time.Second,
		CaptureBias:   0.25,
		BoardBias:     0.7,
	}
}

// State is the mutable part of a session.
type State struct {
	SessionID   string
	ActiveColor pieces.Color
	Running     bool
	InFlight    bool
	Moves       int
}

// Capture records the piece removed by a move.
type Capture struct {
	Piece board.PieceID
	Color pieces.Color
	Kind  pieces.Kind
	Slot  pieces.Placement
}

// Move is one scheduled hop.
type Move struct {
	Seq     int
	Piece   board.PieceID
	Color   pieces.Color
	Kind    pieces.Kind
	From    pieces.Placement
	To      pieces.Placement
	Capture *Capture
}

type EventType string

const (
	EventMoveStarted    EventType = "move_started"
	EventMoveCompleted  EventType = "move_completed"
	EventMoveAbandoned  EventType = "move_abandoned"
	EventMoveSkipped    EventType = "move_skipped"
	EventSessionReset   EventType = "session_reset"
	EventRunningChanged EventType = "running_changed"
)

type Event struct {
	Type   EventType
	Move   *Move
	Reason string
	State  State
	// Clock is the session clock when the event fired.
	Clock time.Duration
}

type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// PieceView is a read-only view of a piece and its entity.
type PieceView struct {
	ID        board.PieceID
	Color     pieces.Color
	Kind      pieces.Kind
	Placement pieces.Placement
	Position  scene.Vec3
	Visible   bool
}

// Snapshot is an immutable copy of the whole session.
type Snapshot struct {
	State        State
	Phase        animator.Phase
	Progress     float64
	Clock        time.Duration
	Pieces       []PieceView
	CaptureAreas map[pieces.Color][]board.PieceID
	FEN          string
	PendingAfter time.Duration
	Pending      bool
}
