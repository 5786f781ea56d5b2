package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/pieces"
)

func TestSnapshotDTO(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureBias = 1
	c := newController(t, cfg, 5)
	c.ToggleRunning()

	snap := c.Snapshot().DTO()
	if snap.State.SessionID == "" || snap.State.ActiveColor != "white" || !snap.State.Running {
		t.Fatalf("state = %+v", snap.State)
	}
	if snap.Phase != "lift" || len(snap.Pieces) != 32 {
		t.Fatalf("phase = %s, pieces = %d", snap.Phase, len(snap.Pieces))
	}
	if _, ok := snap.CaptureAreas["white"]; !ok {
		t.Fatalf("capture areas = %v", snap.CaptureAreas)
	}
	if got := len(snap.CaptureAreas["black"]); got != 1 {
		t.Fatalf("black capture area holds %d pieces", got)
	}
	for _, p := range snap.Pieces {
		switch p.Placement.Kind {
		case "board":
			if p.Placement.Square == "" || p.Placement.Slot != nil {
				t.Fatalf("board placement = %+v", p.Placement)
			}
		case "captured":
			if p.Placement.Slot == nil || *p.Placement.Slot != 0 {
				t.Fatalf("captured placement = %+v", p.Placement)
			}
		default:
			t.Fatalf("unexpected placement %+v", p.Placement)
		}
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestEventDTO(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("KST", 9*3600))
	ev := Event{
		Type: EventMoveStarted,
		Move: &Move{
			Seq:   3,
			Piece: 12,
			Color: pieces.Black,
			Kind:  pieces.Knight,
			From:  pieces.At(board.NewSquare(1, 7)),
			To:    pieces.StagedAt(4),
		},
		State: State{SessionID: "s", ActiveColor: pieces.Black, Moves: 3},
		Clock: 1500 * time.Millisecond,
	}
	got := ev.DTO(at)
	if got.Type != "move_started" || got.ClockMS != 1500 || got.At.Location() != time.UTC {
		t.Fatalf("event = %+v", got)
	}
	if got.Move.From.Square != "b8" || got.Move.To.Kind != "staging" || *got.Move.To.Slot != 4 {
		t.Fatalf("move = %+v", got.Move)
	}
	if got.Move.Kind != "knight" || got.Move.Color != "black" || got.Move.Capture != nil {
		t.Fatalf("move = %+v", got.Move)
	}
	if (Event{Type: EventSessionReset}).DTO(at).Move != nil {
		t.Fatalf("reset event carries a move")
	}
}
