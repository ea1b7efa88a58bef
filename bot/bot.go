package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/equity"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
	"github.com/domino14/gridwar/search/negamax"
)

// Difficulty selects how hard the bot tries.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// An easy bot plays a uniformly random legal move this often, in percent.
const RandomMovePercent = 25

const mediumMaxDepth = 3

var (
	ErrBadDifficulty = errors.New("unknown difficulty")
	ErrBadRequest    = errors.New("bad request")
	ErrBotFailed     = errors.New("bot returned an error")
)

// ParseDifficulty accepts easy, medium or hard in any case. The empty
// string means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyMedium, "":
		return DifficultyMedium, nil
	case DifficultyHard:
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadDifficulty, s)
}

// Request asks the bot for a move. If State is nil a new game is created
// from Config (or the configured default board) and the bot moves first.
type Request struct {
	GameID     string              `json:"gameID,omitempty"`
	State      *game.GameState     `json:"state,omitempty"`
	Config     *game.VariantConfig `json:"config,omitempty"`
	Difficulty Difficulty          `json:"difficulty,omitempty"`
}

// Response carries the bot's move and the state after it, or an error.
type Response struct {
	GameID string          `json:"gameID,omitempty"`
	Move   *move.Move      `json:"move,omitempty"`
	State  *game.GameState `json:"state,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Bot is the move service. It is created once at startup and shared by
// every transport.
type Bot struct {
	config    *config.Config
	evaluator equity.Evaluator
	solvers   sync.Pool

	rngMu sync.Mutex
	rng   *frand.RNG
}

func NewBot(cfg *config.Config) *Bot {
	return NewBotWithRNG(cfg, frand.New())
}

// NewBotWithRNG is NewBot with an explicit random source, for blunders
// and block placement in new games.
func NewBotWithRNG(cfg *config.Config, rng *frand.RNG) *Bot {
	b := &Bot{
		config:    cfg,
		evaluator: equity.NewEvaluatorFromDataPath(cfg.GetString(config.ConfigDataPath), ""),
		rng:       rng,
	}
	b.solvers.New = func() interface{} {
		s := &negamax.Solver{}
		s.Init(b.evaluator)
		if f := cfg.GetFloat64(config.ConfigTTableMemFraction); f > 0 {
			s.SetTranspositionTableMemFraction(f)
		}
		return s
	}
	return b
}

func (b *Bot) Config() *config.Config {
	return b.config
}

func (b *Bot) intn(n int) int {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.rng.Intn(n)
}

// SearchOptions returns the search limits for a difficulty on a board of
// the given size.
func (b *Bot) SearchOptions(d Difficulty, boardSize int) negamax.Options {
	depth := b.config.GetInt(config.ConfigSearchDepth)
	if depth <= 0 {
		depth = negamax.DefaultDepth(boardSize)
	}
	switch d {
	case DifficultyEasy:
		return negamax.Options{Depth: 1}
	case DifficultyHard:
		return negamax.Options{Depth: depth, MaxMillis: b.config.GetInt(config.ConfigSearchMaxMillis)}
	default:
		return negamax.Options{Depth: min(mediumMaxDepth, depth)}
	}
}

// ChooseMove returns a placement for the side to move in st.
func (b *Bot) ChooseMove(ctx context.Context, st *game.GameState, d Difficulty) (*move.Move, error) {
	moves := game.LegalMoves(st)
	if len(moves) == 0 {
		return nil, negamax.ErrNoMoves
	}
	if d == DifficultyEasy && b.intn(100) < RandomMovePercent {
		m := moves[b.intn(len(moves))]
		log.Debug().Str("move", m.ShortDescription()).Msg("easy-bot-random-move")
		return m, nil
	}
	s := b.solvers.Get().(*negamax.Solver)
	defer b.solvers.Put(s)
	m, pv, err := s.Solve(ctx, st, st.Current, b.SearchOptions(d, st.Board.Dim()))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("difficulty", string(d)).Str("pv", pv.NLBString()).Msg("bot-chose-move")
	return m, nil
}

func (b *Bot) newGame(cfg *game.VariantConfig) (*game.GameState, error) {
	vc := game.ClassicConfig(b.config.GetInt(config.ConfigBoardSize), b.config.GetInt(config.ConfigWinLength))
	if cfg != nil {
		vc = *cfg
	}
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return game.CreateGameWithRNG(vc, b.rng)
}

func validateState(st *game.GameState) error {
	if err := st.Config.Validate(); err != nil {
		return err
	}
	if st.Board.Dim() != st.Config.BoardSize {
		return fmt.Errorf("%w: board is %dx%d but the variant says %d", ErrBadRequest,
			st.Board.Dim(), st.Board.Dim(), st.Config.BoardSize)
	}
	for _, row := range st.Board {
		if len(row) != st.Config.BoardSize {
			return fmt.Errorf("%w: board is not square", ErrBadRequest)
		}
	}
	if st.Current != board.X && st.Current != board.O {
		return fmt.Errorf("%w: current player must be X or O", ErrBadRequest)
	}
	if !st.Playing() {
		return game.ErrGameOver
	}
	return nil
}

func errorResponse(gameID, message string, err error) *Response {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &Response{GameID: gameID, Error: msg}
}

// Respond answers a decoded request.
func (b *Bot) Respond(ctx context.Context, req *Request) *Response {
	d, err := ParseDifficulty(string(req.Difficulty))
	if err != nil {
		return errorResponse(req.GameID, "could not parse request", err)
	}
	st := req.State
	if st == nil {
		st, err = b.newGame(req.Config)
		if err != nil {
			return errorResponse(req.GameID, "could not create game", err)
		}
	}
	if err := validateState(st); err != nil {
		return errorResponse(req.GameID, "invalid state", err)
	}
	m, err := b.ChooseMove(ctx, st, d)
	if err != nil {
		return errorResponse(req.GameID, "could not generate move", err)
	}
	next, err := game.ApplyMove(st, m)
	if err != nil {
		return errorResponse(req.GameID, "could not apply move", err)
	}
	log.Info().Str("game-id", req.GameID).Str("move", m.ShortDescription()).Msg("generated-move")
	return &Response{GameID: req.GameID, Move: next.LastMove, State: next}
}

// Handle decodes a JSON request and answers it.
func (b *Bot) Handle(ctx context.Context, data []byte) *Response {
	req := Request{}
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse("", "could not parse request", err)
	}
	return b.Respond(ctx, &req)
}
