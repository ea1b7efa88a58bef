// Package game holds the rules engine: creating games, the legal moves in
// a position, applying moves and deciding the winner. A GameState is
// never changed in place; every applied move returns a new state.
package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/move"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	// ErrGameOver is returned for moves made after the game ended. It
	// wraps ErrIllegalMove.
	ErrGameOver = fmt.Errorf("%w: game is over", ErrIllegalMove)
)

// Winner is the result of a game.
type Winner uint8

const (
	NoWinner Winner = iota
	WinnerX
	WinnerO
	WinnerDraw
)

func winnerFor(c board.Cell) Winner {
	switch c {
	case board.X:
		return WinnerX
	case board.O:
		return WinnerO
	}
	return NoWinner
}

// Player returns the symbol of the winner, or Empty for a draw or an
// unfinished game.
func (w Winner) Player() board.Cell {
	switch w {
	case WinnerX:
		return board.X
	case WinnerO:
		return board.O
	}
	return board.Empty
}

func (w Winner) String() string {
	switch w {
	case WinnerX:
		return "X"
	case WinnerO:
		return "O"
	case WinnerDraw:
		return "Draw"
	}
	return "none"
}

func (w Winner) MarshalJSON() ([]byte, error) {
	if w == NoWinner {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = NoWinner
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "X":
		*w = WinnerX
	case "O":
		*w = WinnerO
	case "Draw":
		*w = WinnerDraw
	default:
		return fmt.Errorf("unknown winner %q", s)
	}
	return nil
}

func (w Winner) MarshalYAML() (interface{}, error) {
	if w == NoWinner {
		return nil, nil
	}
	return w.String(), nil
}

// GameState is a position plus everything needed to continue the game
// from it.
type GameState struct {
	Board    board.Board   `json:"board" yaml:"board"`
	Current  board.Cell    `json:"current" yaml:"current"`
	Config   VariantConfig `json:"config" yaml:"config"`
	History  []move.Move   `json:"history" yaml:"history"`
	Powers   PowerUsage    `json:"powers" yaml:"powers"`
	Winner   Winner        `json:"winner" yaml:"winner"`
	LastMove *move.Move    `json:"lastMove" yaml:"lastMove,omitempty"`
}

// CreateGame starts a new game. Blocks, if any, are placed with a
// cryptographically seeded generator.
func CreateGame(cfg VariantConfig) (*GameState, error) {
	return CreateGameWithRNG(cfg, frand.New())
}

// CreateGameWithRNG starts a new game, drawing block placement from rng.
func CreateGameWithRNG(cfg VariantConfig, rng *frand.RNG) (*GameState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := board.NewBoard(cfg.BoardSize)
	if limit := cfg.MaxBlocks(); limit > 0 {
		nblocks := 1 + rng.Intn(limit)
		placeBlocks(b, nblocks, rng)
		log.Debug().Int("blocks", nblocks).Str("board", b.String()).Msg("placed-blocks")
	}
	return &GameState{
		Board:   b,
		Current: board.X,
		Config:  cfg,
		History: []move.Move{},
	}, nil
}

func placeBlocks(b board.Board, n int, rng *frand.RNG) {
	empties := make([]move.Coord, 0, b.Dim()*b.Dim())
	for r := 0; r < b.Dim(); r++ {
		for c := 0; c < b.Dim(); c++ {
			empties = append(empties, move.Coord{Row: r, Col: c})
		}
	}
	// Partial Fisher-Yates; the first n entries end up distinct and
	// uniformly chosen.
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(empties)-i)
		empties[i], empties[j] = empties[j], empties[i]
		b.Set(empties[i].Row, empties[i].Col, board.Blocked)
	}
}

// Playing returns true until the game has a result.
func (st *GameState) Playing() bool {
	return st.Winner == NoWinner
}

// Turn is the number of moves played so far.
func (st *GameState) Turn() int {
	return len(st.History)
}

// Copy returns a deep copy of the state.
func (st *GameState) Copy() *GameState {
	c := *st
	c.Board = st.Board.Copy()
	c.History = append([]move.Move(nil), st.History...)
	if c.History == nil {
		c.History = []move.Move{}
	}
	if st.LastMove != nil {
		c.LastMove = st.LastMove.Copy()
	}
	return &c
}

// LegalMoves returns a placement on every empty square in row-major
// order. Gravity changes where a placement lands, not which squares can
// be chosen. A finished game has no legal moves.
func LegalMoves(st *GameState) []*move.Move {
	if !st.Playing() {
		return nil
	}
	n := st.Board.Dim()
	moves := make([]*move.Move, 0, st.Board.EmptyCount())
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if st.Board.At(r, c) == board.Empty {
				moves = append(moves, move.NewPlacementMove(st.Current, r, c))
			}
		}
	}
	return moves
}

// PowerMoves lists the power moves available to the side to move. Bomb
// targets are limited to opposing marks and double moves to unordered
// pairs of squares, since every other choice is dominated.
func PowerMoves(st *GameState) []*move.Move {
	var moves []*move.Move
	n := st.Board.Dim()
	if CanUseLaneShift(st) {
		for _, axis := range []move.Axis{move.AxisRow, move.AxisCol} {
			for idx := 0; idx < n; idx++ {
				for _, dir := range []int{1, -1} {
					moves = append(moves, move.NewLaneShiftMove(st.Current, axis, idx, dir))
				}
			}
		}
	}
	if CanUseBomb(st) {
		opp := st.Current.Opponent()
		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				if st.Board.At(r, c) == opp {
					moves = append(moves, move.NewBombMove(st.Current, r, c))
				}
			}
		}
	}
	if CanUseDoubleMove(st) {
		places := LegalMoves(st)
		for i := range places {
			for j := i + 1; j < len(places); j++ {
				m := move.NewDoubleMove(st.Current, places[i].First(), places[j].First())
				if IsDoubleMoveLegal(st, m) {
					moves = append(moves, m)
				}
			}
		}
	}
	return moves
}

// ApplyMove plays m and returns the resulting state. st is left
// untouched. The returned history entry holds the squares marks actually
// landed on, which differ from the requested ones under gravity.
func ApplyMove(st *GameState, m *move.Move) (*GameState, error) {
	if !st.Playing() {
		return nil, ErrGameOver
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no move", ErrIllegalMove)
	}
	player := st.Current
	if m.Player != board.Empty && m.Player != player {
		return nil, fmt.Errorf("%w: %v to move, not %v", ErrIllegalMove, player, m.Player)
	}
	nb := st.Board.Copy()
	rec := m.Copy()
	rec.Player = player
	powers := st.Powers

	switch m.Action {
	case move.MoveTypePlace:
		at, ok := resolvePlacement(st.Board, st.Config, m.Row, m.Col)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not an empty square", ErrIllegalMove,
				move.ToCoords(m.Row, m.Col))
		}
		nb.Set(at.Row, at.Col, player)
		rec.Row, rec.Col = at.Row, at.Col

	case move.MoveTypeDoubleMove:
		if !CanUseDoubleMove(st) {
			return nil, fmt.Errorf("%w: double move not available to %v", ErrIllegalMove, player)
		}
		a, b, ok := resolveDouble(st.Board, st.Config, player, m)
		if !ok {
			return nil, fmt.Errorf("%w: double move %v violates placement rules",
				ErrIllegalMove, m.ShortDescription())
		}
		nb.Set(a.Row, a.Col, player)
		nb.Set(b.Row, b.Col, player)
		rec.Row, rec.Col = a.Row, a.Col
		rec.Second = &move.Coord{Row: b.Row, Col: b.Col}
		powers = powers.withSpent(player, move.MoveTypeDoubleMove)

	case move.MoveTypeLaneShift:
		if !CanUseLaneShift(st) {
			return nil, fmt.Errorf("%w: lane shift not available to %v", ErrIllegalMove, player)
		}
		if !laneShiftInRange(st.Board, m) {
			return nil, fmt.Errorf("%w: bad lane shift %v", ErrIllegalMove, m.ShortDescription())
		}
		if m.Axis == move.AxisRow {
			nb.ShiftRow(m.Index, m.Direction)
		} else {
			nb.ShiftCol(m.Index, m.Direction)
		}
		powers = powers.withSpent(player, move.MoveTypeLaneShift)

	case move.MoveTypeBomb:
		if !CanUseBomb(st) {
			return nil, fmt.Errorf("%w: bomb not available to %v", ErrIllegalMove, player)
		}
		if !st.Board.InBounds(m.Row, m.Col) {
			return nil, fmt.Errorf("%w: bomb target off the board", ErrIllegalMove)
		}
		nb.Set(m.Row, m.Col, board.Bombed)
		powers = powers.withSpent(player, move.MoveTypeBomb)

	default:
		return nil, fmt.Errorf("%w: unknown move type %d", ErrIllegalMove, m.Action)
	}

	next := &GameState{
		Board:   nb,
		Current: player.Opponent(),
		Config:  st.Config,
		// Full slice expression so that two states derived from the same
		// parent never share a history backing array.
		History:  append(st.History[:len(st.History):len(st.History)], *rec),
		Powers:   powers,
		LastMove: rec.Copy(),
	}
	next.Winner = CheckWinner(next)
	if !next.Playing() {
		log.Debug().Str("winner", next.Winner.String()).Int("plies", next.Turn()).
			Msg("game-ended")
	}
	return next, nil
}
