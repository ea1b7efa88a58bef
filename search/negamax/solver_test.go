package negamax

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/equity"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newSolver(t *testing.T) *Solver {
	s := &Solver{}
	if err := s.Init(equity.NewHeuristicEvaluator(equity.DefaultWeights())); err != nil {
		t.Fatal(err)
	}
	return s
}

func stateFromRows(cfg game.VariantConfig, current board.Cell, rows ...string) *game.GameState {
	st := &game.GameState{
		Board:   board.MustFromRows(rows...),
		Current: current,
		Config:  cfg,
		History: []move.Move{},
	}
	st.Winner = game.CheckWinner(st)
	return st
}

// explore plays the solver for one side against every possible reply by
// the other, and fails if the solver side ever loses.
func explore(t *testing.T, s *Solver, st *game.GameState, solverSide board.Cell, leaves *int) {
	if !st.Playing() {
		*leaves++
		if st.Winner.Player() == solverSide.Opponent() {
			t.Fatalf("solver playing %v lost:\n%v", solverSide, st.ToDisplayText())
		}
		return
	}
	if st.Current == solverSide {
		m, _, err := s.Solve(context.Background(), st, solverSide, Options{})
		if err != nil {
			t.Fatal(err)
		}
		next, err := game.ApplyMove(st, m)
		if err != nil {
			t.Fatal(err)
		}
		explore(t, s, next, solverSide, leaves)
		return
	}
	for _, m := range game.LegalMoves(st) {
		next, err := game.ApplyMove(st, m)
		if err != nil {
			t.Fatal(err)
		}
		explore(t, s, next, solverSide, leaves)
	}
}

func TestNeverLosesFromOpening(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	for _, side := range []board.Cell{board.X, board.O} {
		st, err := game.CreateGame(game.ClassicConfig(3, 3))
		is.NoErr(err)
		leaves := 0
		explore(t, s, st, side, &leaves)
		is.True(leaves > 0)
	}
}

func TestSelfPlayIsDraw(t *testing.T) {
	is := is.New(t)
	st, err := game.CreateGame(game.ClassicConfig(3, 3))
	is.NoErr(err)
	for st.Playing() {
		m := BestMove(st, st.Current, Options{})
		is.True(m != nil)
		st, err = game.ApplyMove(st, m)
		is.NoErr(err)
	}
	is.Equal(st.Winner, game.WinnerDraw)
}

func TestTakesImmediateWin(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	st := stateFromRows(game.ClassicConfig(3, 3), board.X, "XX.", "OO.", "...")
	m, pv, err := s.Solve(context.Background(), st, board.X, Options{})
	is.NoErr(err)
	is.Equal(m.First(), move.Coord{Row: 0, Col: 2})
	is.Equal(pv.Score(), WinScore)
	is.Equal(s.BestValue(), WinScore)
}

func TestBlocksImmediateLoss(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	st := stateFromRows(game.ClassicConfig(3, 3), board.O, "XX.", ".O.", "...")
	for _, depth := range []int{2, 4, 7} {
		m, _, err := s.Solve(context.Background(), st, board.O, Options{Depth: depth})
		is.NoErr(err)
		is.Equal(m.First(), move.Coord{Row: 0, Col: 2})
	}
}

func TestMisereAvoidsCompletingLine(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	cfg := game.ClassicConfig(3, 3)
	cfg.Misere = true
	st := stateFromRows(cfg, board.X, "XX.", "OO.", "...")
	m, _, err := s.Solve(context.Background(), st, board.X, Options{Depth: 3})
	is.NoErr(err)
	is.True(m.First() != move.Coord{Row: 0, Col: 2})
	next, err := game.ApplyMove(st, m)
	is.NoErr(err)
	is.True(next.Winner != game.WinnerO)
}

func TestCancelledFallsBackToOrdering(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	st := stateFromRows(game.ClassicConfig(3, 3), board.X, "XX.", "OO.", "...")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, pv, err := s.Solve(ctx, st, board.X, Options{})
	is.NoErr(err)
	// The immediate win sorts first, so it is the fallback.
	is.Equal(m.First(), move.Coord{Row: 0, Col: 2})
	is.Equal(len(pv.Moves), 1)
}

func TestTimeBudget(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	cfg := game.ClassicConfig(6, 4)
	st, err := game.CreateGame(cfg)
	is.NoErr(err)
	m, _, err := s.Solve(context.Background(), st, board.X, Options{Depth: 8, MaxMillis: 50})
	is.NoErr(err)
	is.True(m != nil)
	_, err = game.ApplyMove(st, m)
	is.NoErr(err)
}

func TestNoMoves(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	full := stateFromRows(game.ClassicConfig(3, 3), board.X, "XOX", "XOO", "OXX")
	is.Equal(full.Winner, game.WinnerDraw)
	_, _, err := s.Solve(context.Background(), full, board.X, Options{})
	is.True(errors.Is(err, ErrNoMoves))
	is.True(BestMove(full, board.X, Options{}) == nil)

	won := stateFromRows(game.ClassicConfig(3, 3), board.O, "XXX", "OO.", "...")
	is.True(BestMove(won, board.O, Options{}) == nil)
}

func TestNotOnTurn(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	st, err := game.CreateGame(game.ClassicConfig(3, 3))
	is.NoErr(err)
	_, _, err = s.Solve(context.Background(), st, board.O, Options{})
	is.True(errors.Is(err, ErrNotOnTurn))
}

func TestBestMoveOffTurnSearchesSideToMove(t *testing.T) {
	is := is.New(t)
	st, err := game.CreateGame(game.ClassicConfig(3, 3))
	is.NoErr(err)
	m := BestMove(st, board.O, Options{Depth: 2})
	is.True(m != nil)
	is.Equal(st.Board.At(m.Row, m.Col), board.Empty)
}

func TestTableModesAgree(t *testing.T) {
	is := is.New(t)
	positions := []*game.GameState{
		stateFromRows(game.ClassicConfig(3, 3), board.X, "X..", ".O.", "..."),
		stateFromRows(game.ClassicConfig(3, 3), board.O, "X..", ".O.", "..X"),
		stateFromRows(game.ClassicConfig(3, 3), board.X, "XO.", "...", "O.X"),
	}
	for _, st := range positions {
		// depth 0 means the board default, which reaches the end of a
		// 3x3 game, so every mode must find the exact value.
		var values []int32
		for mode := 0; mode < 3; mode++ {
			s := newSolver(t)
			switch mode {
			case 1:
				s.SetTranspositionTableOptim(false)
			case 2:
				s.SetDebugTranspositionTable(true)
			}
			_, _, err := s.Solve(context.Background(), st, st.Current, Options{})
			is.NoErr(err)
			values = append(values, s.BestValue())
		}
		is.Equal(values[0], values[1])
		is.Equal(values[0], values[2])
	}
}

func TestGravityAndWrapSearch(t *testing.T) {
	is := is.New(t)
	cfg := game.ClassicConfig(4, 3)
	cfg.Gravity = true
	cfg.Wrap = true
	st, err := game.CreateGame(cfg)
	is.NoErr(err)
	s := newSolver(t)
	for i := 0; i < 4 && st.Playing(); i++ {
		m, _, err := s.Solve(context.Background(), st, st.Current, Options{Depth: 3})
		is.NoErr(err)
		st, err = game.ApplyMove(st, m)
		is.NoErr(err)
	}
	is.Equal(len(st.History), 4)
}

func TestLogStream(t *testing.T) {
	is := is.New(t)
	s := newSolver(t)
	var buf bytes.Buffer
	s.SetLogStream(&buf)
	st := stateFromRows(game.ClassicConfig(3, 3), board.X, "XO.", "XO.", "...")
	_, _, err := s.Solve(context.Background(), st, board.X, Options{Depth: 2})
	is.NoErr(err)
	out := buf.String()
	is.True(strings.Contains(out, "- ply: 1"))
	is.True(strings.Contains(out, "- play: X A3"))
}

func TestDefaultDepth(t *testing.T) {
	is := is.New(t)
	is.Equal(DefaultDepth(3), 9)
	is.Equal(DefaultDepth(4), 6)
	is.Equal(DefaultDepth(5), 4)
	is.Equal(DefaultDepth(6), 3)
}
