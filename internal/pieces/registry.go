package pieces

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-hopboard/internal/board"
)

// Registry owns the live pieces and keeps the occupancy tracker consistent
// with their placements. Every method that changes a placement updates the
// tracker in the same call; nothing else should mutate the tracker.
type Registry struct {
	occ      *board.Occupancy
	pieces   []*Piece
	captured [2][]board.PieceID
	staged   [2]map[int]board.PieceID
}

func NewRegistry(occ *board.Occupancy) *Registry {
	return &Registry{
		occ:    occ,
		staged: [2]map[int]board.PieceID{{}, {}},
	}
}

func (r *Registry) Occupancy() *board.Occupancy { return r.occ }

func (r *Registry) Len() int { return len(r.pieces) }

// Create registers a piece at its initial placement, which also becomes its
// reset placement. Captured is not a valid initial placement.
func (r *Registry) Create(color Color, kind Kind, initial Placement) (board.PieceID, error) {
	id := board.PieceID(len(r.pieces))
	switch initial.Kind {
	case OnBoard:
		if err := r.occ.Place(id, initial.Square); err != nil {
			return board.NoPiece, fmt.Errorf("create %s %s at %s: %w", color, kind, initial.Square, err)
		}
	case Staged:
		if err := r.checkStagingSlot(color, initial.Slot); err != nil {
			return board.NoPiece, fmt.Errorf("create %s %s: %w", color, kind, err)
		}
		r.staged[color][initial.Slot] = id
	default:
		return board.NoPiece, fmt.Errorf("create %s %s: %w", color, kind, ErrInconsistentPlacement)
	}
	r.pieces = append(r.pieces, &Piece{ID: id, Color: color, Kind: kind, Placement: initial, Origin: initial})
	return id, nil
}

// Piece returns a copy of the piece.
func (r *Registry) Piece(id board.PieceID) (Piece, error) {
	p, err := r.get(id)
	if err != nil {
		return Piece{}, err
	}
	return *p, nil
}

// All returns copies of every piece in id order.
func (r *Registry) All() []Piece {
	out := make([]Piece, len(r.pieces))
	for i, p := range r.pieces {
		out[i] = *p
	}
	return out
}

// PiecesOf lists the pieces of a color still in play (on board or staged),
// in id order.
func (r *Registry) PiecesOf(color Color) []board.PieceID {
	var out []board.PieceID
	for _, p := range r.pieces {
		if p.Color == color && p.Placement.Kind != Captured {
			out = append(out, p.ID)
		}
	}
	return out
}

// OnBoardOf lists the on-board pieces of a color in id order.
func (r *Registry) OnBoardOf(color Color) []board.PieceID {
	var out []board.PieceID
	for _, p := range r.pieces {
		if p.Color == color && p.Placement.Kind == OnBoard {
			out = append(out, p.ID)
		}
	}
	return out
}

// CaptureArea returns the captured pieces of a color in capture order.
func (r *Registry) CaptureArea(color Color) []board.PieceID {
	return append([]board.PieceID(nil), r.captured[color]...)
}

// MarkCaptured removes an on-board piece from play and assigns it the next
// slot of its color's capture area.
func (r *Registry) MarkCaptured(id board.PieceID) (Placement, error) {
	p, err := r.get(id)
	if err != nil {
		return Placement{}, err
	}
	switch p.Placement.Kind {
	case Captured:
		return Placement{}, ErrAlreadyCaptured
	case Staged:
		return Placement{}, ErrNotOnBoard
	}
	if err := r.vacateOwn(p); err != nil {
		return Placement{}, err
	}
	slot := len(r.captured[p.Color])
	p.Placement = Placement{Kind: Captured, Slot: slot}
	r.captured[p.Color] = append(r.captured[p.Color], id)
	return p.Placement, nil
}

// Relocate moves an on-board or staged piece onto an empty square.
func (r *Registry) Relocate(id board.PieceID, to board.Square) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	if p.Placement.Kind == Captured {
		return ErrAlreadyCaptured
	}
	if !r.occ.Coords().Contains(to) {
		return board.ErrOutOfBounds
	}
	if r.occ.IsOccupied(to) {
		return board.ErrSquareOccupied
	}
	switch p.Placement.Kind {
	case OnBoard:
		if err := r.vacateOwn(p); err != nil {
			return err
		}
	case Staged:
		delete(r.staged[p.Color], p.Placement.Slot)
	}
	if err := r.occ.Place(id, to); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentPlacement, err)
	}
	p.Placement = At(to)
	return nil
}

// FreeStagingSlots lists the empty staging slots of a color in order.
func (r *Registry) FreeStagingSlots(color Color) []int {
	var out []int
	for i := 0; i < r.occ.Coords().StagingSlots(); i++ {
		if _, ok := r.staged[color][i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Stage moves a piece to a free staging slot of its color. A staged piece
// may move between slots.
func (r *Registry) Stage(id board.PieceID, slot int) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	if p.Placement.Kind == Captured {
		return ErrAlreadyCaptured
	}
	if err := r.checkStagingSlot(p.Color, slot); err != nil {
		return err
	}
	switch p.Placement.Kind {
	case OnBoard:
		if err := r.vacateOwn(p); err != nil {
			return err
		}
	case Staged:
		delete(r.staged[p.Color], p.Placement.Slot)
	}
	r.staged[p.Color][slot] = id
	p.Placement = StagedAt(slot)
	return nil
}

// Reset returns every piece to its origin, empties both capture areas and
// rebuilds the tracker. The restore plan is built on a scratch tracker first;
// if it cannot be applied nothing is changed.
func (r *Registry) Reset() error {
	scratch := board.NewOccupancy(r.occ.Coords())
	staged := [2]map[int]board.PieceID{{}, {}}
	for _, p := range r.pieces {
		switch p.Origin.Kind {
		case OnBoard:
			if err := scratch.Place(p.ID, p.Origin.Square); err != nil {
				return fmt.Errorf("reset %d: %w", p.ID, ErrInconsistentPlacement)
			}
		case Staged:
			if _, taken := staged[p.Color][p.Origin.Slot]; taken {
				return fmt.Errorf("reset %d: %w", p.ID, ErrInconsistentPlacement)
			}
			staged[p.Color][p.Origin.Slot] = p.ID
		default:
			return fmt.Errorf("reset %d: %w", p.ID, ErrInconsistentPlacement)
		}
	}

	r.occ.Restore(scratch)
	r.staged = staged
	r.captured = [2][]board.PieceID{}
	for _, p := range r.pieces {
		p.Placement = p.Origin
	}
	return nil
}

// Verify checks that the tracker and the on-board placements are in
// bijection.
func (r *Registry) Verify() error {
	onBoard := 0
	for _, p := range r.pieces {
		if p.Placement.Kind != OnBoard {
			if _, ok := r.occ.SquareOf(p.ID); ok {
				return fmt.Errorf("%w: piece %d is %s but occupies a square", ErrInconsistentPlacement, p.ID, p.Placement.Kind)
			}
			continue
		}
		onBoard++
		got, ok := r.occ.OccupantAt(p.Placement.Square)
		if !ok || got != p.ID {
			return fmt.Errorf("%w: piece %d claims %s held by %d", ErrInconsistentPlacement, p.ID, p.Placement.Square, got)
		}
	}
	if onBoard != r.occ.Len() {
		return fmt.Errorf("%w: %d pieces on board, %d squares occupied", ErrInconsistentPlacement, onBoard, r.occ.Len())
	}
	return nil
}

// FEN renders the occupancy as the board field of a FEN record. Only
// meaningful for an 8x8 board; other sizes return "".
func (r *Registry) FEN() string {
	if r.occ.Coords().Size != 8 {
		return ""
	}
	m := make(map[nchess.Square]nchess.Piece, r.occ.Len())
	for sq, id := range r.occ.Map() {
		p := r.pieces[id]
		m[nchess.NewSquare(nchess.File(sq.File), nchess.Rank(sq.Rank))] = nchess.NewPiece(p.Kind.chessType(), p.Color.chessColor())
	}
	return nchess.NewBoard(m).String()
}

func (r *Registry) get(id board.PieceID) (*Piece, error) {
	if id < 0 || int(id) >= len(r.pieces) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPiece, id)
	}
	return r.pieces[id], nil
}

func (r *Registry) vacateOwn(p *Piece) error {
	got, ok := r.occ.OccupantAt(p.Placement.Square)
	if !ok || got != p.ID {
		return fmt.Errorf("%w: piece %d not found on %s", ErrInconsistentPlacement, p.ID, p.Placement.Square)
	}
	_, err := r.occ.Vacate(p.Placement.Square)
	return err
}

func (r *Registry) checkStagingSlot(color Color, slot int) error {
	if slot < 0 || slot >= r.occ.Coords().StagingSlots() {
		return ErrStagingFull
	}
	if _, taken := r.staged[color][slot]; taken {
		return ErrSlotTaken
	}
	return nil
}
