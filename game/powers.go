package game

import (
	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/move"
)

// PowerFlags records which one-time powers a player has spent.
type PowerFlags struct {
	DoubleMove bool `json:"doubleMove" yaml:"doubleMove"`
	LaneShift  bool `json:"laneShift" yaml:"laneShift"`
	Bomb       bool `json:"bomb" yaml:"bomb"`
}

// PowerUsage holds the spent powers of both players. A flag never goes
// back to false within a game.
type PowerUsage struct {
	X PowerFlags `json:"X" yaml:"X"`
	O PowerFlags `json:"O" yaml:"O"`
}

func (p PowerUsage) For(player board.Cell) PowerFlags {
	if player == board.O {
		return p.O
	}
	return p.X
}

// withSpent returns a copy of p with the power behind action marked as
// used by player.
func (p PowerUsage) withSpent(player board.Cell, action move.MoveType) PowerUsage {
	flags := p.For(player)
	switch action {
	case move.MoveTypeDoubleMove:
		flags.DoubleMove = true
	case move.MoveTypeLaneShift:
		flags.LaneShift = true
	case move.MoveTypeBomb:
		flags.Bomb = true
	}
	if player == board.O {
		p.O = flags
	} else {
		p.X = flags
	}
	return p
}

// CanUseDoubleMove is true if the side to move may still play a double
// move in this game.
func CanUseDoubleMove(st *GameState) bool {
	return st.Playing() && st.Config.DoubleMove && !st.Powers.For(st.Current).DoubleMove
}

func CanUseLaneShift(st *GameState) bool {
	return st.Playing() && st.Config.LaneShift && !st.Powers.For(st.Current).LaneShift
}

func CanUseBomb(st *GameState) bool {
	return st.Playing() && st.Config.Bomb && !st.Powers.For(st.Current).Bomb
}

// IsDoubleMoveLegal checks a double move for the side to move. Both
// placements must be legal, and after gravity resolution neither may
// touch (including diagonally) one of the player's existing marks or
// the other placement.
func IsDoubleMoveLegal(st *GameState, m *move.Move) bool {
	if m.Action != move.MoveTypeDoubleMove || !CanUseDoubleMove(st) {
		return false
	}
	_, _, ok := resolveDouble(st.Board, st.Config, st.Current, m)
	return ok
}

// IsLaneShiftLegal checks a lane shift for the side to move.
func IsLaneShiftLegal(st *GameState, m *move.Move) bool {
	if m.Action != move.MoveTypeLaneShift || !CanUseLaneShift(st) {
		return false
	}
	return laneShiftInRange(st.Board, m)
}

// IsBombLegal checks a bomb for the side to move. Any square on the
// board may be bombed.
func IsBombLegal(st *GameState, m *move.Move) bool {
	if m.Action != move.MoveTypeBomb || !CanUseBomb(st) {
		return false
	}
	return st.Board.InBounds(m.Row, m.Col)
}

func laneShiftInRange(b board.Board, m *move.Move) bool {
	if m.Direction != 1 && m.Direction != -1 {
		return false
	}
	if m.Axis != move.AxisRow && m.Axis != move.AxisCol {
		return false
	}
	return m.Index >= 0 && m.Index < b.Dim()
}

// resolvePlacement returns where a mark aimed at (row, col) ends up.
func resolvePlacement(b board.Board, cfg VariantConfig, row, col int) (move.Coord, bool) {
	if !b.InBounds(row, col) || b.At(row, col) != board.Empty {
		return move.Coord{}, false
	}
	if cfg.Gravity {
		row = b.LowestEmptyFrom(row, col)
	}
	return move.Coord{Row: row, Col: col}, true
}

func touchesOwnMark(b board.Board, player board.Cell, c move.Coord) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, cc := c.Row+dr, c.Col+dc
			if b.InBounds(r, cc) && b.At(r, cc) == player {
				return true
			}
		}
	}
	return false
}

// resolveDouble tries both orders of the two placements, since gravity
// can land them differently, and returns the resolved cells of the first
// order that satisfies every constraint.
func resolveDouble(b board.Board, cfg VariantConfig, player board.Cell, m *move.Move) (move.Coord, move.Coord, bool) {
	if m.Second == nil {
		return move.Coord{}, move.Coord{}, false
	}
	first, second := m.First(), *m.Second
	for _, order := range [2][2]move.Coord{{first, second}, {second, first}} {
		a, b2, ok := tryDoubleOrder(b, cfg, player, order[0], order[1])
		if ok {
			return a, b2, true
		}
	}
	return move.Coord{}, move.Coord{}, false
}

func tryDoubleOrder(b board.Board, cfg VariantConfig, player board.Cell, p1, p2 move.Coord) (move.Coord, move.Coord, bool) {
	a, ok := resolvePlacement(b, cfg, p1.Row, p1.Col)
	if !ok {
		return move.Coord{}, move.Coord{}, false
	}
	scratch := b.Copy()
	scratch.Set(a.Row, a.Col, player)
	c, ok := resolvePlacement(scratch, cfg, p2.Row, p2.Col)
	if !ok {
		return move.Coord{}, move.Coord{}, false
	}
	if a.Chebyshev(c) <= 1 {
		return move.Coord{}, move.Coord{}, false
	}
	if touchesOwnMark(b, player, a) || touchesOwnMark(b, player, c) {
		return move.Coord{}, move.Coord{}, false
	}
	return a, c, true
}
