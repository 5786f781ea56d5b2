package board

import "sort"

// PieceID identifies a piece entity for the lifetime of a session.
type PieceID int

// NoPiece is returned by lookups on empty squares.
const NoPiece PieceID = -1

// Rand is the subset of *math/rand.Rand used for sampling.
type Rand interface {
	Intn(n int) int
}

// Occupancy tracks which squares hold which piece. It is the single source of
// truth for placement queries and keeps square->piece and piece->square in
// step, so neither side can hold a duplicate.
type Occupancy struct {
	coords  Coords
	byCell  map[Square]PieceID
	byPiece map[PieceID]Square
}

func NewOccupancy(c Coords) *Occupancy {
	return &Occupancy{
		coords:  c,
		byCell:  make(map[Square]PieceID),
		byPiece: make(map[PieceID]Square),
	}
}

func (o *Occupancy) Coords() Coords { return o.coords }

func (o *Occupancy) IsOccupied(sq Square) bool {
	_, ok := o.byCell[sq]
	return ok
}

// OccupantAt returns the piece on sq, or NoPiece.
func (o *Occupancy) OccupantAt(sq Square) (PieceID, bool) {
	id, ok := o.byCell[sq]
	if !ok {
		return NoPiece, false
	}
	return id, true
}

// SquareOf returns where id stands, if it is on the board.
func (o *Occupancy) SquareOf(id PieceID) (Square, bool) {
	sq, ok := o.byPiece[id]
	return sq, ok
}

// Place puts id on sq. The square must be empty and the piece must not
// already stand elsewhere.
func (o *Occupancy) Place(id PieceID, sq Square) error {
	if !o.coords.Contains(sq) {
		return ErrOutOfBounds
	}
	if _, ok := o.byCell[sq]; ok {
		return ErrSquareOccupied
	}
	if _, ok := o.byPiece[id]; ok {
		return ErrAlreadyPlaced
	}
	o.byCell[sq] = id
	o.byPiece[id] = sq
	return nil
}

// Vacate empties sq. Vacating an empty square is an error so callers notice
// bookkeeping drift.
func (o *Occupancy) Vacate(sq Square) (PieceID, error) {
	id, ok := o.byCell[sq]
	if !ok {
		return NoPiece, ErrSquareEmpty
	}
	delete(o.byCell, sq)
	delete(o.byPiece, id)
	return id, nil
}

// Empty lists the empty squares in file-major order.
func (o *Occupancy) Empty() []Square {
	out := make([]Square, 0, o.coords.Size*o.coords.Size-len(o.byCell))
	for _, sq := range o.coords.Squares() {
		if _, ok := o.byCell[sq]; !ok {
			out = append(out, sq)
		}
	}
	return out
}

// RandomEmptySquare samples uniformly among empty squares. ok is false when
// the board is full.
func (o *Occupancy) RandomEmptySquare(rng Rand) (Square, bool) {
	empty := o.Empty()
	if len(empty) == 0 {
		return Square{}, false
	}
	return empty[rng.Intn(len(empty))], true
}

// Occupied lists occupied squares in file-major order.
func (o *Occupancy) Occupied() []Square {
	out := make([]Square, 0, len(o.byCell))
	for sq := range o.byCell {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

func (o *Occupancy) Len() int { return len(o.byCell) }

func (o *Occupancy) Clear() {
	o.byCell = make(map[Square]PieceID)
	o.byPiece = make(map[PieceID]Square)
}

// Map returns a copy of the square->piece assignment.
func (o *Occupancy) Map() map[Square]PieceID {
	out := make(map[Square]PieceID, len(o.byCell))
	for k, v := range o.byCell {
		out[k] = v
	}
	return out
}

func (o *Occupancy) Clone() *Occupancy {
	cp := NewOccupancy(o.coords)
	for sq, id := range o.byCell {
		cp.byCell[sq] = id
		cp.byPiece[id] = sq
	}
	return cp
}

// Restore replaces the whole assignment with a copy of src.
func (o *Occupancy) Restore(src *Occupancy) {
	o.Clear()
	for sq, id := range src.byCell {
		o.byCell[sq] = id
		o.byPiece[id] = sq
	}
}
