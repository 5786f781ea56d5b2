package pieces

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-hopboard/internal/board"
)

var (
	ErrUnknownPiece          = errors.New("unknown piece")
	ErrInconsistentPlacement = errors.New("inconsistent placement")
	ErrNotOnBoard            = errors.New("piece is not on the board")
	ErrAlreadyCaptured       = errors.New("piece already captured")
	ErrStagingFull           = errors.New("staging area full")
	ErrSlotTaken             = errors.New("staging slot taken")
)

type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown color %q", s)
	}
}

type Kind int

const (
	Pawn Kind = iota
	Rook
	Knight
	Bishop
	Queen
	King
)

var (
	kindNames   = [...]string{"pawn", "rook", "knight", "bishop", "queen", "king"}
	kindLetters = [...]string{"P", "R", "N", "B", "Q", "K"}
)

func (k Kind) String() string {
	if k < Pawn || k > King {
		return "unknown"
	}
	return kindNames[k]
}

// Letter is the upper-case piece letter (P, R, N, B, Q, K).
func (k Kind) Letter() string {
	if k < Pawn || k > King {
		return "?"
	}
	return kindLetters[k]
}

// Kinds lists every piece kind in asset order.
func Kinds() []Kind { return []Kind{Pawn, Rook, Knight, Bishop, Queen, King} }

func (k Kind) chessType() nchess.PieceType {
	switch k {
	case Rook:
		return nchess.Rook
	case Knight:
		return nchess.Knight
	case Bishop:
		return nchess.Bishop
	case Queen:
		return nchess.Queen
	case King:
		return nchess.King
	default:
		return nchess.Pawn
	}
}

func (c Color) chessColor() nchess.Color {
	if c == Black {
		return nchess.Black
	}
	return nchess.White
}

type PlacementKind int

const (
	OnBoard PlacementKind = iota
	Captured
	Staged
)

func (p PlacementKind) String() string {
	switch p {
	case Captured:
		return "captured"
	case Staged:
		return "staging"
	default:
		return "board"
	}
}

// Placement says where a piece is. Square is meaningful for OnBoard, Slot for
// Captured and Staged.
type Placement struct {
	Kind   PlacementKind
	Square board.Square
	Slot   int
}

func At(sq board.Square) Placement { return Placement{Kind: OnBoard, Square: sq} }

func StagedAt(slot int) Placement { return Placement{Kind: Staged, Slot: slot} }

// Row and Col give the capture-area grid cell of a Captured placement.
func (p Placement) Row() int { return p.Slot / 2 }
func (p Placement) Col() int { return p.Slot % 2 }

func (p Placement) String() string {
	switch p.Kind {
	case Captured:
		return fmt.Sprintf("captured(%d,%d)", p.Row(), p.Col())
	case Staged:
		return fmt.Sprintf("staging(%d)", p.Slot)
	default:
		return p.Square.String()
	}
}

// Piece is one entity on the table. The scene entity it drives shares its ID.
type Piece struct {
	ID        board.PieceID
	Color     Color
	Kind      Kind
	Placement Placement
	Origin    Placement
}
