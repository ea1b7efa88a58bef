package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gridwar/automatic"
	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/equity"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/gamestore"
	"github.com/domino14/gridwar/move"
	"github.com/domino14/gridwar/search/negamax"
)

const (
	defaultAutoplayGames = 100
	defaultGamesListed   = 20
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.options.ToDisplayText()), nil
	}
	opt := cmd.args[0]
	if len(cmd.args) == 1 {
		_, val := sc.options.Show(opt)
		return msg(val), nil
	}
	if err := sc.options.Set(opt, cmd.args[1]); err != nil {
		return nil, err
	}
	_, val := sc.options.Show(opt)
	return msg("set " + opt + " to " + val), nil
}

func (sc *ShellController) setGame(st *game.GameState, id string) {
	sc.game = st
	sc.gameID = id
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	st, err := game.CreateGame(sc.options.Variant)
	if err != nil {
		return nil, err
	}
	sc.setGame(st, gamestore.NewID())
	return msg(st.ToDisplayText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	return msg(sc.game.ToDisplayText()), nil
}

// setBoard replaces the board with the given rows (one argument per row,
// using . X O # *). The side to move is worked out from the mark counts.
func (sc *ShellController) setBoard(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: setboard <row> <row> ...")
	}
	b, err := board.FromRows(cmd.args...)
	if err != nil {
		return nil, err
	}
	cfg := sc.options.Variant
	if sc.game != nil {
		cfg = sc.game.Config
	}
	cfg.BoardSize = b.Dim()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nx, no := b.Count(board.X), b.Count(board.O)
	current := board.X
	switch nx - no {
	case 0:
	case 1:
		current = board.O
	default:
		return nil, fmt.Errorf("X has %d marks and O has %d; X moves first", nx, no)
	}
	st := &game.GameState{Board: b, Current: current, Config: cfg, History: []move.Move{}}
	st.Winner = game.CheckWinner(st)
	sc.setGame(st, gamestore.NewID())
	return msg(st.ToDisplayText()), nil
}

func (sc *ShellController) applyMove(m *move.Move) (*Response, error) {
	next, err := game.ApplyMove(sc.game, m)
	if err != nil {
		return nil, err
	}
	sc.game = next
	return msg(next.ToDisplayText()), nil
}

// playUserMove parses the command itself as a move, so that `play b2`,
// `double b2 d4`, `shift row 2 +` and `bomb c3` all work.
func (sc *ShellController) playUserMove(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	if len(cmd.args) == 0 {
		return nil, errors.New("need a move; see `help " + cmd.cmd + "`")
	}
	m, err := move.ParseMove(sc.game.Current, cmd.cmd+" "+strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	return sc.applyMove(m)
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	return sc.playUserMove(cmd)
}

func (sc *ShellController) double(cmd *shellcmd) (*Response, error) {
	return sc.playUserMove(cmd)
}

func (sc *ShellController) shift(cmd *shellcmd) (*Response, error) {
	return sc.playUserMove(cmd)
}

func (sc *ShellController) bomb(cmd *shellcmd) (*Response, error) {
	return sc.playUserMove(cmd)
}

func moveTable(moves []*move.Move) string {
	rows := lo.Map(moves, func(m *move.Move, idx int) string {
		return fmt.Sprintf("%3d: %s", idx+1, m.ShortDescription())
	})
	return strings.Join(rows, "\n")
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	moves := game.LegalMoves(sc.game)
	if len(moves) == 0 {
		return msg("No legal moves."), nil
	}
	out := fmt.Sprintf("%d placements:\n%s", len(moves), moveTable(moves))
	if powers := game.PowerMoves(sc.game); len(powers) > 0 {
		out += fmt.Sprintf("\n%d power moves:\n%s", len(powers), moveTable(powers))
	}
	return msg(out), nil
}

func (sc *ShellController) evaluator() equity.Evaluator {
	return equity.NewEvaluatorFromDataPath(sc.config.GetString(config.ConfigDataPath), "")
}

func (sc *ShellController) eval(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	ev := sc.evaluator()
	return msg(fmt.Sprintf("Evaluation: X %d, O %d",
		ev.Evaluate(sc.game, board.X), ev.Evaluate(sc.game, board.O))), nil
}

func (sc *ShellController) getSolver() (*negamax.Solver, error) {
	if sc.solver == nil {
		s := &negamax.Solver{}
		if err := s.Init(sc.evaluator()); err != nil {
			return nil, err
		}
		if f := sc.config.GetFloat64(config.ConfigTTableMemFraction); f > 0 {
			s.SetTranspositionTableMemFraction(f)
		}
		sc.solver = s
	}
	return sc.solver, nil
}

func (sc *ShellController) hint(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	depth, err := cmd.options.IntDefault("depth", sc.config.GetInt(config.ConfigSearchDepth))
	if err != nil {
		return nil, err
	}
	maxtime, err := cmd.options.IntDefault("maxtime", sc.config.GetInt(config.ConfigSearchMaxMillis))
	if err != nil {
		return nil, err
	}
	s, err := sc.getSolver()
	if err != nil {
		return nil, err
	}
	if logfile := cmd.options.String("log"); logfile != "" {
		f, err := os.Create(logfile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		s.SetLogStream(f)
		defer s.SetLogStream(nil)
	}
	start := time.Now()
	m, pv, err := s.Solve(context.Background(), sc.game, sc.game.Current,
		negamax.Options{Depth: depth, MaxMillis: maxtime})
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Best move: %s\nValue: %d\nVariation: %s\nNodes: %d in %.3fs",
		m.ShortDescription(), s.BestValue(), pv.NLBString(), s.Nodes(),
		time.Since(start).Seconds())), nil
}

func (sc *ShellController) remoteMover(ctx context.Context, kind string) (bot.Mover, error) {
	if m, ok := sc.remote[kind]; ok {
		return m, nil
	}
	var m bot.Mover
	switch kind {
	case "nats":
		url := sc.config.GetString(config.ConfigNatsURL)
		if url == "" {
			return nil, errors.New("set nats-url to play against a remote bot")
		}
		nc, err := nats.Connect(url)
		if err != nil {
			return nil, err
		}
		m = bot.NewClient(nc, sc.config.GetString(config.ConfigBotChannel))
	case "lambda":
		function := sc.config.GetString(config.ConfigLambdaFunction)
		if function == "" {
			return nil, errors.New("set lambda-function to play against the move function")
		}
		lc, err := bot.NewLambdaClient(ctx, function)
		if err != nil {
			return nil, err
		}
		m = lc
	default:
		return nil, fmt.Errorf("unknown remote %q; use nats or lambda", kind)
	}
	sc.remote[kind] = m
	return m, nil
}

// aiplay lets the bot make the move for the side on turn, locally or
// through a remote bot.
func (sc *ShellController) aiplay(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	d := sc.options.Difficulty
	if ds := cmd.options.String("difficulty"); ds != "" {
		var err error
		if d, err = bot.ParseDifficulty(ds); err != nil {
			return nil, err
		}
	}
	ctx := context.Background()
	var m *move.Move
	var err error
	if remote := cmd.options.String("remote"); remote != "" {
		mover, merr := sc.remoteMover(ctx, remote)
		if merr != nil {
			return nil, merr
		}
		m, err = mover.RequestMove(ctx, &bot.Request{GameID: sc.gameID, State: sc.game, Difficulty: d})
	} else {
		m, err = sc.bot.ChooseMove(ctx, sc.game, d)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("move", m.ShortDescription()).Msg("aiplay")
	return sc.applyMove(m)
}

// exportedGame is the YAML layout written by `export`.
type exportedGame struct {
	ID      string             `yaml:"id"`
	Config  game.VariantConfig `yaml:"config"`
	Board   []string           `yaml:"board"`
	ToMove  board.Cell         `yaml:"toMove"`
	Powers  game.PowerUsage    `yaml:"powers"`
	Moves   []string           `yaml:"moves"`
	History []move.Move        `yaml:"history"`
	Winner  game.Winner        `yaml:"winner"`
}

func exportGame(id string, st *game.GameState) ([]byte, error) {
	eg := exportedGame{
		ID:      id,
		Config:  st.Config,
		Board:   strings.Split(st.Board.String(), "/"),
		ToMove:  st.Current,
		Powers:  st.Powers,
		History: st.History,
		Winner:  st.Winner,
		Moves: lo.Map(st.History, func(m move.Move, _ int) string {
			return m.ShortDescription()
		}),
	}
	return yaml.Marshal(eg)
}

func (sc *ShellController) export(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: export <file.yaml>")
	}
	data, err := exportGame(sc.gameID, sc.game)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cmd.args[0], data, 0o644); err != nil {
		return nil, err
	}
	return msg("exported to " + cmd.args[0]), nil
}

func (sc *ShellController) getStore() (*gamestore.Store, error) {
	if sc.store == nil {
		s, err := gamestore.Open(sc.config.GetString(config.ConfigDBPath))
		if err != nil {
			return nil, err
		}
		sc.store = s
	}
	return sc.store, nil
}

func (sc *ShellController) save(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	s, err := sc.getStore()
	if err != nil {
		return nil, err
	}
	players := cmd.options.String("players")
	if players == "" {
		players = "shell"
	}
	if err := s.Save(context.Background(), gamestore.RecordFromState(sc.gameID, players, sc.game)); err != nil {
		return nil, err
	}
	return msg("saved game " + sc.gameID), nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: load <game id>")
	}
	s, err := sc.getStore()
	if err != nil {
		return nil, err
	}
	rec, err := s.Get(context.Background(), cmd.args[0])
	if err != nil {
		return nil, err
	}
	st, err := rec.Replay()
	if err != nil {
		return nil, err
	}
	sc.setGame(st, rec.ID)
	out := st.ToDisplayText()
	if rec.Config.RandomBlocks > 0 {
		out += "\n(the starting blocks of this game were not stored and are not shown)"
	}
	return msg(out), nil
}

func (sc *ShellController) games(cmd *shellcmd) (*Response, error) {
	limit, err := cmd.options.IntDefault("limit", defaultGamesListed)
	if err != nil {
		return nil, err
	}
	s, err := sc.getStore()
	if err != nil {
		return nil, err
	}
	recs, err := s.List(context.Background(), limit)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return msg("No saved games."), nil
	}
	rows := lo.Map(recs, func(r *gamestore.Record, _ int) string {
		return fmt.Sprintf("%-20s %s  %-28s %-6v %3d  %s", r.ID,
			r.Created.Local().Format("2006-01-02 15:04"), r.Config.Description(),
			r.Winner, r.Plies, r.Players)
	})
	return msg(strings.Join(rows, "\n")), nil
}

func (sc *ShellController) autoplaying() bool {
	if sc.autoplayDone == nil {
		return false
	}
	select {
	case <-sc.autoplayDone:
		return false
	default:
		return true
	}
}

func (sc *ShellController) stopAutoplay() {
	if sc.autoplayCancel == nil {
		return
	}
	sc.autoplayCancel()
	<-sc.autoplayDone
	sc.autoplayCancel = nil
}

// WaitAutoplay blocks until a running autoplay finishes.
func (sc *ShellController) WaitAutoplay() {
	if sc.autoplayDone != nil {
		<-sc.autoplayDone
	}
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 1 && cmd.args[0] == "stop" {
		if !sc.autoplaying() {
			return nil, errors.New("autoplay is not running")
		}
		sc.stopAutoplay()
		if sc.autoplayErr != nil && !errors.Is(sc.autoplayErr, context.Canceled) {
			return nil, sc.autoplayErr
		}
		return msg("autoplay stopped"), nil
	}
	if sc.autoplaying() {
		return nil, errors.New("autoplay is already running; `autoplay stop` first")
	}
	numGames, err := cmd.options.IntDefault("games", defaultAutoplayGames)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", 1)
	if err != nil {
		return nil, err
	}
	logfile := cmd.options.String("logfile")
	if logfile == "" {
		logfile = filepath.Join(sc.config.GetString(config.ConfigDataPath), "autoplay.csv")
	}
	setup := automatic.RunnerSetup{}
	for i, key := range []string{"p1", "p2"} {
		if setup.Players[i], err = bot.ParseDifficulty(cmd.options.String(key)); err != nil {
			return nil, err
		}
	}
	if seedfile := cmd.options.String("seeds"); seedfile != "" {
		if setup.Seeds, err = automatic.LoadSeeds(seedfile); err != nil {
			return nil, err
		}
	}
	if cmd.options.Bool("save") {
		if setup.Store, err = sc.getStore(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(logfile), 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc.autoplayCancel = cancel
	sc.autoplayDone = make(chan struct{})
	variant := sc.options.Variant
	go func() {
		defer close(sc.autoplayDone)
		sc.autoplayErr = automatic.StartCompVComp(ctx, sc.config, variant, numGames, threads,
			logfile, setup)
		if sc.autoplayErr != nil {
			log.Err(sc.autoplayErr).Msg("autoplay-failed")
			return
		}
		log.Info().Str("logfile", logfile).Msg("autoplay-finished")
	}()
	return msg(fmt.Sprintf("playing %d games (%s vs %s) on %d threads; logging to %s",
		numGames, setup.Players[0], setup.Players[1], threads, logfile)), nil
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: analyze <logfile>")
	}
	out, err := automatic.AnalyzeLogFile(cmd.args[0])
	if err != nil {
		return nil, err
	}
	return msg(out), nil
}
