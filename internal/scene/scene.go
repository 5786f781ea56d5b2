package scene

import (
	"image"
	"sort"

	"github.com/park285/cheese-hopboard/internal/board"
)

// RestHeight is the y of a piece standing on a square or holding slot.
const RestHeight = 0.1

type Group int

const (
	GroupBoard Group = iota
	GroupWhiteCapture
	GroupBlackCapture
	GroupStaging
)

func (g Group) String() string {
	switch g {
	case GroupWhiteCapture:
		return "white_capture"
	case GroupBlackCapture:
		return "black_capture"
	case GroupStaging:
		return "staging"
	default:
		return "board"
	}
}

// Renderable is the loaded model a piece entity draws with.
type Renderable interface {
	Image() image.Image
	// Height is the model height in world units.
	Height() float64
}

// Entity is the visual counterpart of a piece. The scene owns it; the piece
// registry refers to it by the shared piece id.
type Entity struct {
	ID       board.PieceID
	Model    Renderable
	Label    string
	pos      Vec3
	group    Group
	attached bool
}

func (e *Entity) Position() Vec3     { return e.pos }
func (e *Entity) SetPosition(p Vec3) { e.pos = p }
func (e *Entity) Attached() bool     { return e != nil && e.attached }
func (e *Entity) Group() Group       { return e.group }
func (e *Entity) Reparent(g Group)   { e.group = g }

// Scene is the scene graph the renderer walks: the board geometry comes from
// Coords, pieces are entities.
type Scene struct {
	Coords   board.Coords
	entities map[board.PieceID]*Entity
}

func New(c board.Coords) *Scene {
	return &Scene{Coords: c, entities: make(map[board.PieceID]*Entity)}
}

// Add attaches a new entity, replacing any previous one with the same id.
func (s *Scene) Add(id board.PieceID, model Renderable, label string, pos Vec3, g Group) *Entity {
	e := &Entity{ID: id, Model: model, Label: label, pos: pos, group: g, attached: true}
	s.entities[id] = e
	return e
}

func (s *Scene) Entity(id board.PieceID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Detach removes the entity from the rendered graph but keeps it for a
// later Attach.
func (s *Scene) Detach(id board.PieceID) {
	if e, ok := s.entities[id]; ok {
		e.attached = false
	}
}

func (s *Scene) Attach(id board.PieceID, g Group) {
	if e, ok := s.entities[id]; ok {
		e.attached = true
		e.group = g
	}
}

// Entities returns attached entities in id order.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if e.attached {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Scene) Len() int { return len(s.entities) }

// SquarePosition is where a piece rests on sq.
func (s *Scene) SquarePosition(sq board.Square) Vec3 {
	x, z := s.Coords.ToWorld(sq)
	return Vec3{X: x, Y: RestHeight, Z: z}
}

// CapturePosition is where the given capture slot rests.
func (s *Scene) CapturePosition(white bool, row, col int) Vec3 {
	x, z := s.Coords.CaptureSlotWorld(white, row, col)
	return Vec3{X: x, Y: RestHeight, Z: z}
}

// StagingPosition is where the given staging slot rests.
func (s *Scene) StagingPosition(white bool, slot int) Vec3 {
	x, z := s.Coords.StagingSlotWorld(white, slot)
	return Vec3{X: x, Y: RestHeight, Z: z}
}
