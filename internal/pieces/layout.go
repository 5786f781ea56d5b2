package pieces

import (
	"fmt"

	"github.com/park285/cheese-hopboard/internal/board"
)

// Spec describes one piece of a starting layout.
type Spec struct {
	Color     Color
	Kind      Kind
	Placement Placement
}

type backRankEntry struct {
	kind  Kind
	files []int
}

var backRank = []backRankEntry{
	{Rook, []int{0, 7}},
	{Knight, []int{1, 6}},
	{Bishop, []int{2, 5}},
	{Queen, []int{3}},
	{King, []int{4}},
}

// StandardLayout is the usual 32-piece opening setup: white on ranks 1-2,
// black mirrored. Pieces alternate white/black so ids interleave by kind.
func StandardLayout(size int) []Spec {
	var out []Spec
	add := func(kind Kind, file, rank int) {
		out = append(out,
			Spec{Color: White, Kind: kind, Placement: At(board.Square{File: file, Rank: rank})},
			Spec{Color: Black, Kind: kind, Placement: At(board.Square{File: file, Rank: size - 1 - rank})},
		)
	}
	for f := 0; f < size; f++ {
		add(Pawn, f, 1)
	}
	for _, e := range backRank {
		for _, f := range e.files {
			if f < size {
				add(e.kind, f, 0)
			}
		}
	}
	return out
}

// StagingLayout starts one row of pawns per side in the staging area.
func StagingLayout(size int) []Spec {
	var out []Spec
	for _, c := range []Color{White, Black} {
		for i := 0; i < size; i++ {
			out = append(out, Spec{Color: c, Kind: Pawn, Placement: StagedAt(i)})
		}
	}
	return out
}

// Populate creates every piece of the layout in order.
func (r *Registry) Populate(layout []Spec) error {
	for _, s := range layout {
		if _, err := r.Create(s.Color, s.Kind, s.Placement); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	return nil
}
