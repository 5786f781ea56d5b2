package session

import (
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/pieces"
)

// plan picks the mover and its destination without mutating anything.
func (c *Controller) plan() (*Move, error) {
	if c.cfg.Variant == VariantStaging {
		return c.planStaging()
	}
	return c.planStandard()
}

// planStandard moves a random on-board piece of the active color either onto
// an opposing piece (capture) or onto a random empty square. Each choice falls
// back to the other when it has no candidate.
func (c *Controller) planStandard() (*Move, error) {
	color := c.state.ActiveColor
	movers := c.reg.OnBoardOf(color)
	if len(movers) == 0 {
		return nil, ErrNoLegalDestination
	}
	p, err := c.reg.Piece(movers[c.pick(DecisionMover, color, len(movers))])
	if err != nil {
		return nil, err
	}
	mv := &Move{Piece: p.ID, Color: p.Color, Kind: p.Kind, From: p.Placement}

	victims := c.reg.OnBoardOf(color.Opponent())
	wantCapture := c.chance(DecisionCapture, color, c.cfg.CaptureBias)

	if wantCapture && len(victims) > 0 {
		return c.withCapture(mv, victims)
	}
	if sq, ok := c.emptySquare(color); ok {
		mv.To = pieces.At(sq)
		return mv, nil
	}
	if len(victims) > 0 {
		return c.withCapture(mv, victims)
	}
	return nil, ErrNoLegalDestination
}

func (c *Controller) withCapture(mv *Move, victims []board.PieceID) (*Move, error) {
	v, err := c.reg.Piece(victims[c.pick(DecisionVictim, mv.Color, len(victims))])
	if err != nil {
		return nil, err
	}
	mv.To = v.Placement
	mv.Capture = &Capture{Piece: v.ID, Color: v.Color, Kind: v.Kind}
	return mv, nil
}

// planStaging moves a random live piece of the active color to an empty
// square or to a free staging slot of its own color.
func (c *Controller) planStaging() (*Move, error) {
	color := c.state.ActiveColor
	movers := c.reg.PiecesOf(color)
	if len(movers) == 0 {
		return nil, ErrNoLegalDestination
	}
	p, err := c.reg.Piece(movers[c.pick(DecisionMover, color, len(movers))])
	if err != nil {
		return nil, err
	}
	mv := &Move{Piece: p.ID, Color: p.Color, Kind: p.Kind, From: p.Placement}

	free := c.reg.FreeStagingSlots(color)
	toBoard := c.chance(DecisionToBoard, color, c.cfg.BoardBias)
	if !toBoard && len(free) > 0 {
		mv.To = pieces.StagedAt(free[c.pick(DecisionSlot, color, len(free))])
		return mv, nil
	}
	if sq, ok := c.emptySquare(color); ok {
		mv.To = pieces.At(sq)
		return mv, nil
	}
	if len(free) > 0 {
		mv.To = pieces.StagedAt(free[c.pick(DecisionSlot, color, len(free))])
		return mv, nil
	}
	return nil, ErrNoLegalDestination
}

// Decisions a Chooser is asked about.
const (
	DecisionMover   = "mover"
	DecisionVictim  = "victim"
	DecisionSquare  = "square"
	DecisionSlot    = "slot"
	DecisionCapture = "capture"
	DecisionToBoard = "to_board"
)

// Chooser can override the controller's random picks. When ok is false, or
// an index is out of range, the random source decides.
type Chooser interface {
	Choose(decision string, color pieces.Color, n int) (index int, ok bool)
	Chance(decision string, color pieces.Color, p float64) (yes, ok bool)
}

// SetChooser installs ch; nil restores purely random play.
func (c *Controller) SetChooser(ch Chooser) { c.chooser = ch }

func (c *Controller) pick(decision string, color pieces.Color, n int) int {
	if c.chooser != nil {
		if i, ok := c.chooser.Choose(decision, color, n); ok && i >= 0 && i < n {
			return i
		}
	}
	return c.rng.Intn(n)
}

func (c *Controller) chance(decision string, color pieces.Color, p float64) bool {
	if c.chooser != nil {
		if yes, ok := c.chooser.Chance(decision, color, p); ok {
			return yes
		}
	}
	return c.rng.Float64() < p
}

func (c *Controller) emptySquare(color pieces.Color) (board.Square, bool) {
	occ := c.reg.Occupancy()
	if c.chooser != nil {
		empty := occ.Empty()
		if len(empty) == 0 {
			return board.Square{}, false
		}
		if i, ok := c.chooser.Choose(DecisionSquare, color, len(empty)); ok && i >= 0 && i < len(empty) {
			return empty[i], true
		}
	}
	return occ.RandomEmptySquare(c.rng)
}
