package board

import "errors"

var (
	ErrOutOfBounds    = errors.New("square outside the board")
	ErrSquareOccupied = errors.New("square already occupied")
	ErrSquareEmpty    = errors.New("square is empty")
	ErrAlreadyPlaced  = errors.New("piece already on the board")
	ErrBadSquareName  = errors.New("invalid square name")
)
