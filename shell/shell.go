package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/gamestore"
	"github.com/domino14/gridwar/search/negamax"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoGame            = errors.New("please start a game first with the `new` command")
	errQuit              = errors.New("sending quit signal")
)

// ShellOptions are the settings `new` starts games with.
type ShellOptions struct {
	Variant    game.VariantConfig
	Difficulty bot.Difficulty
}

func NewShellOptions(cfg *config.Config) *ShellOptions {
	return &ShellOptions{
		Variant: game.ClassicConfig(cfg.GetInt(config.ConfigBoardSize),
			cfg.GetInt(config.ConfigWinLength)),
		Difficulty: bot.DifficultyMedium,
	}
}

var optionKeys = []string{"size", "winlength", "gravity", "wrap", "misere", "blocks",
	"double", "shift", "bomb", "difficulty"}

func (opts *ShellOptions) Show(key string) (bool, string) {
	v := opts.Variant
	switch key {
	case "size":
		return true, strconv.Itoa(v.BoardSize)
	case "winlength":
		return true, strconv.Itoa(v.WinLength)
	case "gravity":
		return true, strconv.FormatBool(v.Gravity)
	case "wrap":
		return true, strconv.FormatBool(v.Wrap)
	case "misere":
		return true, strconv.FormatBool(v.Misere)
	case "blocks":
		return true, strconv.Itoa(v.RandomBlocks)
	case "double":
		return true, strconv.FormatBool(v.DoubleMove)
	case "shift":
		return true, strconv.FormatBool(v.LaneShift)
	case "bomb":
		return true, strconv.FormatBool(v.Bomb)
	case "difficulty":
		return true, string(opts.Difficulty)
	default:
		return false, "No such option: " + key
	}
}

// Set changes one option. The variant is validated when a game starts,
// not here, so that size and line length can be changed in either order.
func (opts *ShellOptions) Set(key, value string) error {
	v := &opts.Variant
	var err error
	switch key {
	case "size":
		v.BoardSize, err = strconv.Atoi(value)
	case "winlength":
		v.WinLength, err = strconv.Atoi(value)
	case "gravity":
		v.Gravity, err = strconv.ParseBool(value)
	case "wrap":
		v.Wrap, err = strconv.ParseBool(value)
	case "misere":
		v.Misere, err = strconv.ParseBool(value)
	case "blocks":
		v.RandomBlocks, err = strconv.Atoi(value)
	case "double":
		v.DoubleMove, err = strconv.ParseBool(value)
	case "shift":
		v.LaneShift, err = strconv.ParseBool(value)
	case "bomb":
		v.Bomb, err = strconv.ParseBool(value)
	case "difficulty":
		opts.Difficulty, err = bot.ParseDifficulty(value)
	default:
		return errors.New("no such option: " + key)
	}
	return err
}

func (opts *ShellOptions) ToDisplayText() string {
	out := strings.Builder{}
	out.WriteString("Settings:\n")
	for _, key := range optionKeys {
		_, val := opts.Show(key)
		out.WriteString("  " + key + ": ")
		out.WriteString(val + "\n")
	}
	return out.String()
}

type ShellController struct {
	l        *readline.Instance
	out      io.Writer
	config   *config.Config
	execPath string
	version  string
	options  *ShellOptions

	game   *game.GameState
	gameID string

	bot    *bot.Bot
	solver *negamax.Solver
	store  *gamestore.Store
	remote map[string]bot.Mover

	autoplayCancel context.CancelFunc
	// closed when the running autoplay returns
	autoplayDone chan struct{}
	autoplayErr  error
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := &ShellController{
		config:   cfg,
		execPath: execPath,
		version:  gitVersion,
		options:  NewShellOptions(cfg),
		bot:      bot.NewBot(cfg),
		remote:   map[string]bot.Mover{},
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mgridwar>\033[0m ",
		HistoryFile:     "/tmp/gridwar_readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// extractFields splits a line into a command, its positional arguments
// and its -option value pairs. Quoting follows shell rules.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		f := fields[idx]
		// A lone "-" or "+" is an argument (lane shift direction), and so
		// is a negative number.
		if strings.HasPrefix(f, "-") && len(f) > 1 {
			if _, err := strconv.Atoi(f); err != nil {
				if idx == len(fields)-1 {
					return nil, errWrongOptionSyntax
				}
				key := f[1:]
				options[key] = append(options[key], fields[idx+1])
				idx++
				continue
			}
		}
		args = append(args, f)
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "set":
		return sc.set(cmd)
	case "setboard":
		return sc.setBoard(cmd)
	case "play":
		return sc.play(cmd)
	case "double":
		return sc.double(cmd)
	case "shift":
		return sc.shift(cmd)
	case "bomb":
		return sc.bomb(cmd)
	case "moves":
		return sc.moves(cmd)
	case "eval":
		return sc.eval(cmd)
	case "hint":
		return sc.hint(cmd)
	case "aiplay":
		return sc.aiplay(cmd)
	case "export":
		return sc.export(cmd)
	case "save":
		return sc.save(cmd)
	case "load":
		return sc.load(cmd)
	case "games":
		return sc.games(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	case "analyze":
		return sc.analyze(cmd)
	case "script":
		return sc.script(cmd)
	case "exit", "bye":
		return nil, errQuit
	}
	return nil, fmt.Errorf("unknown command %q; try `help`", cmd.cmd)
}

// Execute runs a single command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	cmd, err := extractFields(line)
	if err == errNoData {
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	resp, err := sc.dispatch(cmd)
	if err == errQuit {
		sig <- syscall.SIGINT
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	if sc.version != "" {
		sc.showMessage("gridwar " + sc.version)
	}
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "exit" || line == "bye" {
			sig <- syscall.SIGINT
			break
		}
		sc.Execute(sig, line)
	}
	log.Debug().Msg("exiting-readline-loop")
}

// Cleanup stops any running autoplay and closes the game database.
func (sc *ShellController) Cleanup() {
	sc.stopAutoplay()
	if sc.store != nil {
		if err := sc.store.Close(); err != nil {
			log.Err(err).Msg("closing-gamestore")
		}
	}
}
