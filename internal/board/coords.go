package board

import (
	"fmt"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const (
	DefaultBoardSize  = 8
	DefaultSquareSize = 1.0
	DefaultTolerance  = 0.05

	stagingPerRow = 8
	stagingMargin = 2
)

// Square addresses one cell of the board. File runs along x, rank along z.
type Square struct {
	File int
	Rank int
}

func NewSquare(file, rank int) Square { return Square{File: file, Rank: rank} }

// String returns the algebraic name, e.g. "e4" for (4,3).
func (s Square) String() string {
	if s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8 {
		return nchess.NewSquare(nchess.File(s.File), nchess.Rank(s.Rank)).String()
	}
	if s.File >= 0 && s.File < 26 {
		return fmt.Sprintf("%c%d", 'a'+s.File, s.Rank+1)
	}
	return fmt.Sprintf("(%d,%d)", s.File, s.Rank)
}

// longest accepted name: a file letter and a three-digit rank
const maxSquareName = 4

// ParseSquare accepts algebraic names such as "e4" or "h10".
func ParseSquare(name string) (Square, error) {
	v := strings.ToLower(strings.TrimSpace(name))
	if len(v) < 2 || len(v) > maxSquareName || v[0] < 'a' || v[0] > 'z' {
		return Square{}, fmt.Errorf("%w: %q", ErrBadSquareName, name)
	}
	rank := 0
	for _, c := range v[1:] {
		if c < '0' || c > '9' {
			return Square{}, fmt.Errorf("%w: %q", ErrBadSquareName, name)
		}
		rank = rank*10 + int(c-'0')
	}
	if rank < 1 {
		return Square{}, fmt.Errorf("%w: %q", ErrBadSquareName, name)
	}
	return Square{File: int(v[0] - 'a'), Rank: rank - 1}, nil
}

// Coords maps grid indices to world-space x/z positions. The board is centred
// on the origin.
type Coords struct {
	Size       int
	SquareSize float64
	Tolerance  float64
}

func DefaultCoords() Coords {
	return Coords{Size: DefaultBoardSize, SquareSize: DefaultSquareSize, Tolerance: DefaultTolerance}
}

func (c Coords) offset() float64 {
	return float64(c.Size)*c.SquareSize/2 - c.SquareSize/2
}

// Contains reports whether sq lies on the board.
func (c Coords) Contains(sq Square) bool {
	return sq.File >= 0 && sq.File < c.Size && sq.Rank >= 0 && sq.Rank < c.Size
}

// Squares lists every square, file-major.
func (c Coords) Squares() []Square {
	out := make([]Square, 0, c.Size*c.Size)
	for f := 0; f < c.Size; f++ {
		for r := 0; r < c.Size; r++ {
			out = append(out, Square{File: f, Rank: r})
		}
	}
	return out
}

// ToWorld returns the world x/z of the square centre.
func (c Coords) ToWorld(sq Square) (x, z float64) {
	off := c.offset()
	return float64(sq.File)*c.SquareSize - off, float64(sq.Rank)*c.SquareSize - off
}

// ToSquare returns the square whose centre is within Tolerance of (x, z).
func (c Coords) ToSquare(x, z float64) (Square, bool) {
	fx := (x + c.offset()) / c.SquareSize
	fz := (z + c.offset()) / c.SquareSize
	rx, rz := math.Round(fx), math.Round(fz)
	tol := c.Tolerance / c.SquareSize
	if math.Abs(fx-rx) > tol || math.Abs(fz-rz) > tol {
		return Square{}, false
	}
	sq := Square{File: int(rx), Rank: int(rz)}
	if !c.Contains(sq) {
		return Square{}, false
	}
	return sq, true
}

// Containing returns the cell that covers (x, z), regardless of alignment.
func (c Coords) Containing(x, z float64) (Square, bool) {
	half := float64(c.Size) * c.SquareSize / 2
	if x < -half || z < -half || x >= half || z >= half {
		return Square{}, false
	}
	sq := Square{
		File: int(math.Floor((x + half) / c.SquareSize)),
		Rank: int(math.Floor((z + half) / c.SquareSize)),
	}
	if !c.Contains(sq) {
		return Square{}, false
	}
	return sq, true
}

// HalfExtent is half the board edge length in world units.
func (c Coords) HalfExtent() float64 { return float64(c.Size) * c.SquareSize / 2 }

// CaptureAreaX is the x centre of the capture area for a side; white's area
// sits left of the board, black's right.
func (c Coords) CaptureAreaX(white bool) float64 {
	x := float64(c.Size)*c.SquareSize + c.SquareSize
	if white {
		return -x
	}
	return x
}

// CaptureSlotWorld returns the world x/z of capture slot (row, col).
func (c Coords) CaptureSlotWorld(white bool, row, col int) (x, z float64) {
	x = c.CaptureAreaX(white) + float64(col)*c.SquareSize - c.SquareSize/2
	z = float64(row)*c.SquareSize - c.offset()
	return x, z
}

// StagingSlots is the number of staging slots available per side.
func (c Coords) StagingSlots() int { return 2 * c.Size }

// StagingSlotWorld returns the world x/z of staging slot i; white stages
// behind its own edge, black mirrored across the board.
func (c Coords) StagingSlotWorld(white bool, i int) (x, z float64) {
	half := float64(c.Size) / 2
	x = (float64(i%stagingPerRow) - half - stagingMargin) * c.SquareSize
	row := float64(i / stagingPerRow)
	if white {
		z = (-half - stagingMargin + row) * c.SquareSize
	} else {
		z = (half + stagingMargin + row) * c.SquareSize
	}
	return x, z
}
