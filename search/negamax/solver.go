// Package negamax finds the best placement for the side to move, using
// iterative deepening negamax with alpha-beta pruning and a
// transposition table.
package negamax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/equity"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
	"github.com/domino14/gridwar/zobrist"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    childNodes := orderMoves(childNodes)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
(* Initial call for Player A's root node *)
negamax(rootNode, depth, −∞, +∞, 1)
**/

const (
	HugeNumber = int32(1 << 30)
	// WinScore is the value of a decided game for the winner. It is
	// larger than any heuristic evaluation.
	WinScore       = int32(1 << 20)
	HashMoveOffset = int32(1 << 24)
)

const DefaultTTableMemFraction = 0.02

var (
	ErrNoMoves     = errors.New("no legal moves")
	ErrNotOnTurn   = errors.New("player is not on turn")
	errOutOfTime   = errors.New("search deadline passed")
	errInvalidDims = errors.New("board dimension does not match")
)

// Options limit a search. Zero values mean the board default depth and
// no time limit.
type Options struct {
	Depth     int
	MaxMillis int
}

// DefaultDepth is the search depth used for a board size when none is
// given. Small boards are searched almost to the end.
func DefaultDepth(boardSize int) int {
	switch boardSize {
	case 3:
		return 9
	case 4:
		return 6
	case 5:
		return 4
	}
	return 3
}

// Credit: MIT-licensed https://github.com/algerbrex/blunder/blob/main/engine/search.go
type PVLine struct {
	Moves []*move.Move
	score int32
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m *move.Move, newPVLine PVLine, score int32) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// Get the best move from the principal variation line.
func (pvLine *PVLine) GetPVMove() *move.Move {
	if len(pvLine.Moves) == 0 {
		return nil
	}
	return pvLine.Moves[0]
}

func (pvLine PVLine) Score() int32 {
	return pvLine.score
}

// Convert the principal variation line to a string.
func (pvLine PVLine) String() string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("PV; val %d\n", pvLine.score))
	for i := 0; i < len(pvLine.Moves); i++ {
		s.WriteString(fmt.Sprintf("%d: %s\n", i+1, pvLine.Moves[i].ShortDescription()))
	}
	return s.String()
}

func (pvLine PVLine) NLBString() string {
	// no line breaks
	return fmt.Sprintf("PV; val %d; %s", pvLine.score,
		strings.Join(lo.Map(pvLine.Moves, func(m *move.Move, _ int) string {
			return m.ShortDescription()
		}), "; "))
}

// child is a move together with the state it leads to.
type child struct {
	m        *move.Move
	st       *game.GameState
	estimate int32
}

type Solver struct {
	zobrist   *zobrist.Zobrist
	evaluator equity.Evaluator

	root          *game.GameState
	rootChildren  []*child
	solvingPlayer board.Cell

	iterativeDeepeningOptim bool
	transpositionTableOptim bool
	debugTTOptim            bool
	principalVariation      PVLine
	bestPVValue             int32

	ttable        *TranspositionTable
	debugTT       *DebugTranspositionTable
	ttMemFraction float64

	currentIDDepth int
	requestedPlies int
	deadline       time.Time
	nodes          atomic.Uint64

	logStream io.Writer
}

// Init initializes the solver
func (s *Solver) Init(evaluator equity.Evaluator) error {
	if evaluator == nil {
		return errors.New("solver needs an evaluator")
	}
	s.evaluator = evaluator
	s.transpositionTableOptim = true
	s.iterativeDeepeningOptim = true
	s.ttMemFraction = DefaultTTableMemFraction
	s.ttable = &TranspositionTable{}
	s.debugTT = &DebugTranspositionTable{}
	return nil
}

func cellIndex(m *move.Move, dim int) int {
	return m.Row*dim + m.Col
}

func terminalScore(st *game.GameState) int32 {
	switch st.Winner.Player() {
	case st.Current:
		return WinScore
	case st.Current.Opponent():
		return -WinScore
	}
	return 0
}

// estimate scores the position after a move from the mover's point of
// view. Decided games score beyond any evaluation.
func (s *Solver) estimate(next *game.GameState, mover board.Cell) int32 {
	if !next.Playing() {
		switch next.Winner.Player() {
		case mover:
			return HugeNumber - 1
		case mover.Opponent():
			return -HugeNumber + 1
		}
		return 0
	}
	return int32(s.evaluator.Evaluate(next, mover))
}

// orderedChildren applies every legal placement and sorts the results,
// best looking first. The transposition table move, if any, goes ahead
// of everything except immediate wins.
func (s *Solver) orderedChildren(st *game.GameState, ttMoveIdx int) []*child {
	moves := game.LegalMoves(st)
	children := make([]*child, 0, len(moves))
	dim := st.Board.Dim()
	for _, m := range moves {
		next, err := game.ApplyMove(st, m)
		if err != nil {
			// LegalMoves only offers playable squares.
			log.Error().Err(err).Str("move", m.ShortDescription()).Msg("unplayable-legal-move")
			continue
		}
		c := &child{m: m, st: next, estimate: s.estimate(next, st.Current)}
		if ttMoveIdx >= 0 && cellIndex(m, dim) == ttMoveIdx && c.estimate < HugeNumber-1 {
			c.estimate += HashMoveOffset
		}
		children = append(children, c)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].estimate > children[j].estimate
	})
	return children
}

func (s *Solver) checkStop(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return errOutOfTime
	}
	return nil
}

func (s *Solver) ttLookup(st *game.GameState, key uint64) TableEntry {
	if s.debugTTOptim {
		return s.debugTT.lookup(game.CanonicalKey(st))
	}
	return s.ttable.lookup(key)
}

func (s *Solver) ttStore(st *game.GameState, key uint64, e TableEntry) {
	if s.debugTTOptim {
		s.debugTT.store(game.CanonicalKey(st), e)
		return
	}
	s.ttable.store(key, e)
}

func (s *Solver) negamax(ctx context.Context, st *game.GameState, nodeKey uint64,
	depth, ply int, α, β int32, pv *PVLine) (int32, error) {

	if err := s.checkStop(ctx); err != nil {
		return 0, err
	}
	s.nodes.Add(1)
	if !st.Playing() {
		return terminalScore(st), nil
	}

	alphaOrig := α
	ttMoveIdx := -1
	if s.transpositionTableOptim {
		ttEntry := s.ttLookup(st, nodeKey)
		// The root must always be searched so that we end up with a move.
		if ttEntry.valid() && ply > 0 && ttEntry.depth >= uint8(depth) {
			score := ttEntry.score
			switch ttEntry.bound {
			case BoundExact:
				return score, nil
			case BoundLower:
				α = max(α, score)
			case BoundUpper:
				β = min(β, score)
			}
			if α >= β {
				return score, nil
			}
		}
		if ttEntry.valid() {
			ttMoveIdx = ttEntry.moveIndex()
		}
	}

	if depth == 0 {
		return int32(s.evaluator.Evaluate(st, st.Current)), nil
	}

	var children []*child
	if ply == 0 {
		children = s.rootChildren
	} else {
		children = s.orderedChildren(st, ttMoveIdx)
	}

	indent := strings.Repeat(" ", 2*ply)
	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "  %vplays:\n", indent)
	}
	childPV := PVLine{}
	bestValue := -HugeNumber
	var bestChild *child
	for _, c := range children {
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v- play: %v\n", indent, c.m.ShortDescription())
		}
		lm := c.st.LastMove
		childKey := s.zobrist.AddPlacement(nodeKey, lm.Row, lm.Col, st.Current)
		value, err := s.negamax(ctx, c.st, childKey, depth-1, ply+1, -β, -α, &childPV)
		if err != nil {
			return 0, err
		}
		value = -value
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v  value: %v\n", indent, value)
		}
		if ply == 0 {
			c.estimate = value
		}
		if value > bestValue {
			bestValue = value
			bestChild = c
			pv.Update(c.m, childPV, bestValue)
		}
		α = max(α, bestValue)
		if bestValue >= β {
			break // beta cut-off
		}
		childPV.Clear() // clear the child node's pv for the next child node
	}

	if s.transpositionTableOptim && bestChild != nil {
		bound := BoundExact
		if bestValue <= alphaOrig {
			bound = BoundUpper
		} else if bestValue >= β {
			bound = BoundLower
		}
		s.ttStore(st, nodeKey, TableEntry{
			score: bestValue,
			depth: uint8(depth),
			bound: bound,
			best:  uint8(cellIndex(bestChild.m, st.Board.Dim()) + 1),
		})
	}
	return bestValue, nil
}

// iterativelyDeepen searches to increasing depths, keeping the result of
// the last depth that finished.
func (s *Solver) iterativelyDeepen(ctx context.Context, plies int) error {
	initialHashKey := s.zobrist.Hash(s.root)

	start := 1
	if !s.iterativeDeepeningOptim {
		start = plies
	}
	for p := start; p <= plies; p++ {
		log.Debug().Int("plies", p).Msg("deepening-iteratively")
		s.currentIDDepth = p
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- ply: %d\n", p)
		}
		pv := PVLine{}
		val, err := s.negamax(ctx, s.root, initialHashKey, p, 0, -HugeNumber, HugeNumber, &pv)
		if err != nil {
			return err
		}
		log.Debug().Int32("val", val).Int("ply", p).Str("pv", pv.NLBString()).Msg("best-val")
		// Sort top layer of moves by value for the next time around.
		sort.SliceStable(s.rootChildren, func(i, j int) bool {
			return s.rootChildren[i].estimate > s.rootChildren[j].estimate
		})
		s.principalVariation = pv
		s.bestPVValue = val
		if val >= WinScore || val <= -WinScore {
			log.Debug().Int("ply", p).Int32("val", val).Msg("result-proven")
			break
		}
	}
	return nil
}

// Solve searches st for the side to move, who must be forPlayer. It
// returns the chosen placement and the principal variation of the last
// depth that completed. Running out of time is not an error: the best
// move so far is returned, or the best looking move if not even one ply
// finished.
func (s *Solver) Solve(ctx context.Context, st *game.GameState, forPlayer board.Cell,
	opts Options) (*move.Move, PVLine, error) {

	if forPlayer != st.Current {
		return nil, PVLine{}, fmt.Errorf("%w: %v", ErrNotOnTurn, forPlayer)
	}
	if !st.Playing() || st.Board.EmptyCount() == 0 {
		return nil, PVLine{}, ErrNoMoves
	}
	plies := opts.Depth
	if plies <= 0 {
		plies = DefaultDepth(st.Board.Dim())
	}
	// No line is longer than the number of empty squares.
	plies = lo.Clamp(plies, 1, st.Board.EmptyCount())
	s.requestedPlies = plies
	s.root = st
	s.solvingPlayer = forPlayer
	s.principalVariation = PVLine{}
	s.bestPVValue = 0
	s.deadline = time.Time{}
	if opts.MaxMillis > 0 {
		s.deadline = time.Now().Add(time.Duration(opts.MaxMillis) * time.Millisecond)
	}
	tstart := time.Now()

	if s.ttable.table == nil || s.ttable.Zobrist().BoardDim() != st.Board.Dim() {
		s.ttable.Reset(s.ttMemFraction, st.Board.Dim())
	} else {
		s.ttable.newSearch()
	}
	if s.debugTTOptim {
		s.debugTT.reset()
	}
	s.zobrist = s.ttable.Zobrist()
	if s.zobrist.BoardDim() != st.Board.Dim() {
		return nil, PVLine{}, errInvalidDims
	}
	s.nodes.Store(0)

	s.rootChildren = s.orderedChildren(st, -1)
	if len(s.rootChildren) == 0 {
		return nil, PVLine{}, ErrNoMoves
	}
	fallback := s.rootChildren[0].m

	g := &errgroup.Group{}
	done := make(chan bool)

	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := s.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	var searchErr error
	g.Go(func() error {
		log.Debug().Msgf("Using iterative deepening with %v max plies", plies)
		searchErr = s.iterativelyDeepen(ctx, plies)
		done <- true
		return nil
	})
	g.Wait()

	best := s.principalVariation.GetPVMove()
	switch {
	case searchErr == nil:
	case errors.Is(searchErr, errOutOfTime):
		log.Debug().Int("completed-depth", s.currentIDDepth-1).Msg("search-out-of-time")
	case errors.Is(searchErr, context.Canceled), errors.Is(searchErr, context.DeadlineExceeded):
		log.Debug().Err(searchErr).Msg("search-cancelled")
	default:
		return nil, PVLine{}, searchErr
	}
	if best == nil {
		best = fallback
		s.principalVariation = PVLine{Moves: []*move.Move{fallback}}
	}

	stores, lookups, hits, collisions := s.ttable.Stats()
	if s.debugTTOptim {
		stores, lookups, hits = s.debugTT.stores, s.debugTT.lookups, s.debugTT.hits
	}
	log.Debug().
		Uint64("ttable-stores", stores).
		Uint64("ttable-lookups", lookups).
		Uint64("ttable-hits", hits).
		Uint64("ttable-collisions", collisions).
		Uint64("nodes", s.nodes.Load()).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Str("best", best.ShortDescription()).
		Int32("value", s.bestPVValue).
		Msg("solve-returning")

	return best.Copy(), s.principalVariation, nil
}

func (s *Solver) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

// SetDebugTranspositionTable swaps the hashed table for one keyed by the
// canonical position string.
func (s *Solver) SetDebugTranspositionTable(d bool) {
	s.debugTTOptim = d
}

func (s *Solver) SetTranspositionTableMemFraction(f float64) {
	s.ttMemFraction = f
}

func (s *Solver) SetTranspositionTable(tt *TranspositionTable) {
	s.ttable = tt
}

func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

func (s *Solver) BestValue() int32 {
	return s.bestPVValue
}

func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

var solverPool = sync.Pool{
	New: func() interface{} {
		s := &Solver{}
		s.Init(equity.NewHeuristicEvaluator(equity.DefaultWeights()))
		return s
	},
}

// BestMove returns the best placement for the side to move with the
// default evaluator, or nil if there is no legal move. A forPlayer that
// is not on turn is logged and the side to move is searched instead.
func BestMove(st *game.GameState, forPlayer board.Cell, opts Options) *move.Move {
	if forPlayer != st.Current {
		log.Warn().Stringer("for-player", forPlayer).Stringer("on-turn", st.Current).
			Msg("best-move-not-on-turn")
		forPlayer = st.Current
	}
	s := solverPool.Get().(*Solver)
	defer solverPool.Put(s)
	m, _, err := s.Solve(context.Background(), st, forPlayer, opts)
	if err != nil {
		if !errors.Is(err, ErrNoMoves) {
			log.Err(err).Msg("best-move")
		}
		return nil
	}
	return m
}
