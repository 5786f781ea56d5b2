package session

import (
	"time"

	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/park285/cheese-hopboard/pkg/boarddto"
)

func placementDTO(p pieces.Placement) boarddto.Placement {
	out := boarddto.Placement{Kind: p.Kind.String()}
	if p.Kind == pieces.OnBoard {
		out.Square = p.Square.String()
		return out
	}
	slot := p.Slot
	out.Slot = &slot
	return out
}

func (s State) DTO() boarddto.State {
	return boarddto.State{
		SessionID:   s.SessionID,
		ActiveColor: s.ActiveColor.String(),
		Running:     s.Running,
		InFlight:    s.InFlight,
		Moves:       s.Moves,
	}
}

func (m *Move) DTO() *boarddto.Move {
	if m == nil {
		return nil
	}
	out := &boarddto.Move{
		Seq:   m.Seq,
		Piece: int(m.Piece),
		Color: m.Color.String(),
		Kind:  m.Kind.String(),
		From:  placementDTO(m.From),
		To:    placementDTO(m.To),
	}
	if m.Capture != nil {
		out.Capture = &boarddto.Capture{
			Piece: int(m.Capture.Piece),
			Color: m.Capture.Color.String(),
			Kind:  m.Capture.Kind.String(),
			Slot:  placementDTO(m.Capture.Slot),
		}
	}
	return out
}

// DTO converts the event; at stamps the wall-clock time it was observed.
func (e Event) DTO(at time.Time) boarddto.Event {
	return boarddto.Event{
		Type:    string(e.Type),
		Move:    e.Move.DTO(),
		Reason:  e.Reason,
		State:   e.State.DTO(),
		ClockMS: e.Clock.Milliseconds(),
		At:      at.UTC(),
	}
}

func (s Snapshot) DTO() boarddto.Snapshot {
	views := make([]boarddto.PieceView, 0, len(s.Pieces))
	for _, p := range s.Pieces {
		views = append(views, boarddto.PieceView{
			ID:        int(p.ID),
			Color:     p.Color.String(),
			Kind:      p.Kind.String(),
			Placement: placementDTO(p.Placement),
			Position:  boarddto.Vec3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
			Visible:   p.Visible,
		})
	}
	areas := make(map[string][]int, len(s.CaptureAreas))
	for c, ids := range s.CaptureAreas {
		out := make([]int, len(ids))
		for i, id := range ids {
			out[i] = int(id)
		}
		areas[c.String()] = out
	}
	return boarddto.Snapshot{
		State:          s.State.DTO(),
		Phase:          s.Phase.String(),
		Progress:       s.Progress,
		ClockMS:        s.Clock.Milliseconds(),
		Pieces:         views,
		CaptureAreas:   areas,
		FEN:            s.FEN,
		Pending:        s.Pending,
		PendingAfterMS: s.PendingAfter.Milliseconds(),
	}
}
