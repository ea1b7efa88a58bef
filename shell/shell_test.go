package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testController(t *testing.T) *ShellController {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Set(config.ConfigDataPath, dir)
	cfg.Set(config.ConfigDBPath, filepath.Join(dir, "games.db"))
	sc := &ShellController{
		out:     &bytes.Buffer{},
		config:  cfg,
		options: NewShellOptions(cfg),
		bot:     bot.NewBot(cfg),
		remote:  map[string]bot.Mover{},
	}
	t.Cleanup(sc.Cleanup)
	return sc
}

func run(t *testing.T, sc *ShellController, line string) (*Response, error) {
	t.Helper()
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	return sc.dispatch(cmd)
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -logfile /path/to/log.txt",
			&shellcmd{"autoplay", nil, CmdOptions{"logfile": {"/path/to/log.txt"}}},
			nil},
		{"autoplay stop",
			&shellcmd{"autoplay", []string{"stop"}, CmdOptions{}},
			nil},
		{"autoplay -p1 easy -p2 hard -threads 4 ",
			&shellcmd{"autoplay", nil,
				CmdOptions{"p1": {"easy"}, "p2": {"hard"}, "threads": {"4"}}},
			nil,
		},
		{"shift row 2 -",
			&shellcmd{"shift", []string{"row", "2", "-"}, CmdOptions{}},
			nil},
		{"shift col 1 -1",
			&shellcmd{"shift", []string{"col", "1", "-1"}, CmdOptions{}},
			nil},
		{`export "my game.yaml"`,
			&shellcmd{"export", []string{"my game.yaml"}, CmdOptions{}},
			nil},
		{"hint -depth",
			nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func TestCmdOptions(t *testing.T) {
	is := is.New(t)
	opts := CmdOptions{"games": {"12"}, "save": {"TRUE"}, "bad": {"x"}}
	n, err := opts.Int("games")
	is.NoErr(err)
	is.Equal(n, 12)
	_, err = opts.Int("threads")
	is.True(err != nil)
	n, err = opts.IntDefault("threads", 3)
	is.NoErr(err)
	is.Equal(n, 3)
	_, err = opts.IntDefault("bad", 3)
	is.True(err != nil)
	is.True(opts.Bool("save"))
	is.True(!opts.Bool("nope"))
	is.Equal(opts.String("nope"), "")
}

func TestSetOptions(t *testing.T) {
	is := is.New(t)
	sc := testController(t)

	_, err := run(t, sc, "set size 4")
	is.NoErr(err)
	_, err = run(t, sc, "set gravity true")
	is.NoErr(err)
	_, err = run(t, sc, "set difficulty HARD")
	is.NoErr(err)
	is.Equal(sc.options.Variant.BoardSize, 4)
	is.True(sc.options.Variant.Gravity)
	is.Equal(sc.options.Difficulty, bot.DifficultyHard)

	r, err := run(t, sc, "set winlength")
	is.NoErr(err)
	is.Equal(r.message, "3")

	r, err = run(t, sc, "set")
	is.NoErr(err)
	is.True(strings.Contains(r.message, "gravity: true"))

	_, err = run(t, sc, "set gravity sideways")
	is.True(err != nil)
	_, err = run(t, sc, "set colour blue")
	is.True(err != nil)
}

func TestNoGame(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	for _, line := range []string{"show", "play b2", "moves", "eval", "hint", "aiplay", "save"} {
		_, err := run(t, sc, line)
		is.Equal(err, errNoGame)
	}
}

func TestPlayToWin(t *testing.T) {
	is := is.New(t)
	sc := testController(t)

	_, err := run(t, sc, "new")
	is.NoErr(err)
	is.True(sc.gameID != "")
	for _, m := range []string{"a1", "b1", "a2", "b2"} {
		_, err = run(t, sc, "play "+m)
		is.NoErr(err)
	}
	// the cell is taken
	_, err = run(t, sc, "play b2")
	is.True(err != nil)

	r, err := run(t, sc, "play a3")
	is.NoErr(err)
	is.Equal(sc.game.Winner, game.WinnerX)
	is.True(strings.Contains(r.message, "Game over: X wins"))

	_, err = run(t, sc, "play c3")
	is.True(err != nil)
}

func TestPowersFromShell(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	_, err := run(t, sc, "set size 4")
	is.NoErr(err)
	for _, p := range []string{"double", "shift", "bomb"} {
		_, err = run(t, sc, "set "+p+" true")
		is.NoErr(err)
	}
	_, err = run(t, sc, "new")
	is.NoErr(err)

	_, err = run(t, sc, "double a1 d4")
	is.NoErr(err)
	is.Equal(sc.game.Board.At(0, 0), board.X)
	is.Equal(sc.game.Board.At(3, 3), board.X)
	is.True(sc.game.Powers.X.DoubleMove)

	_, err = run(t, sc, "bomb a1")
	is.NoErr(err)
	is.Equal(sc.game.Board.At(0, 0), board.Bombed)

	_, err = run(t, sc, "shift row 4 -")
	is.NoErr(err)
	is.Equal(sc.game.Board.At(3, 2), board.X)
	is.Equal(sc.game.Board.At(3, 3), board.Empty)

	_, err = run(t, sc, "play c1")
	is.NoErr(err)
	// X has already spent the double move.
	_, err = run(t, sc, "double b3 d1")
	is.True(err != nil)
}

func TestSetBoard(t *testing.T) {
	is := is.New(t)
	sc := testController(t)

	_, err := run(t, sc, "setboard XX. OO. ...")
	is.NoErr(err)
	is.Equal(sc.game.Current, board.X)

	r, err := run(t, sc, "moves")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "5 placements:"))

	r, err = run(t, sc, "hint -depth 3")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "Best move: X C1"))

	_, err = run(t, sc, "setboard X.. X.. ...")
	is.True(err != nil)
	_, err = run(t, sc, "setboard XXX OO. ... ...")
	is.True(err != nil)

	_, err = run(t, sc, "setboard XXX OO. ...")
	is.NoErr(err)
	is.Equal(sc.game.Winner, game.WinnerX)
}

func TestAIPlay(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	_, err := run(t, sc, "setboard XX. OO. ...")
	is.NoErr(err)
	_, err = run(t, sc, "aiplay -difficulty hard")
	is.NoErr(err)
	is.Equal(sc.game.Winner, game.WinnerX)

	_, err = run(t, sc, "new")
	is.NoErr(err)
	_, err = run(t, sc, "aiplay -difficulty impossible")
	is.True(err != nil)
	_, err = run(t, sc, "aiplay -remote carrier-pigeon")
	is.True(err != nil)
	// neither remote is configured
	_, err = run(t, sc, "aiplay -remote nats")
	is.True(err != nil)
	_, err = run(t, sc, "aiplay -remote lambda")
	is.True(err != nil)
}

func TestExport(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	_, err := run(t, sc, "new")
	is.NoErr(err)
	_, err = run(t, sc, "play b2")
	is.NoErr(err)
	_, err = run(t, sc, "play a1")
	is.NoErr(err)

	path := filepath.Join(t.TempDir(), "game.yaml")
	_, err = run(t, sc, "export "+path)
	is.NoErr(err)

	bts, err := os.ReadFile(path)
	is.NoErr(err)
	var out struct {
		ID     string   `yaml:"id"`
		Board  []string `yaml:"board"`
		ToMove string   `yaml:"toMove"`
		Moves  []string `yaml:"moves"`
		Winner string   `yaml:"winner"`
	}
	is.NoErr(yaml.Unmarshal(bts, &out))
	is.Equal(out.ID, sc.gameID)
	is.Equal(out.Board, []string{"O..", ".X.", "..."})
	is.Equal(out.ToMove, "X")
	is.Equal(out.Moves, []string{"X B2", "O A1"})
}

func TestSaveLoad(t *testing.T) {
	is := is.New(t)
	sc := testController(t)

	r, err := run(t, sc, "games")
	is.NoErr(err)
	is.Equal(r.message, "No saved games.")

	_, err = run(t, sc, "new")
	is.NoErr(err)
	for _, m := range []string{"a1", "b1", "a2", "b2", "a3"} {
		_, err = run(t, sc, "play "+m)
		is.NoErr(err)
	}
	id := sc.gameID
	finished := sc.game
	_, err = run(t, sc, "save -players me")
	is.NoErr(err)

	_, err = run(t, sc, "new")
	is.NoErr(err)
	_, err = run(t, sc, "load "+id)
	is.NoErr(err)
	is.Equal(sc.gameID, id)
	is.True(sc.game.Board.Equals(finished.Board))
	is.Equal(sc.game.Winner, game.WinnerX)

	r, err = run(t, sc, "games -limit 5")
	is.NoErr(err)
	is.True(strings.Contains(r.message, id))

	_, err = run(t, sc, "load nosuchgame")
	is.True(err != nil)
}

func TestScript(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "play.lua")
	out := filepath.Join(dir, "out.txt")
	lua := `
gridwar_new()
for _, m in ipairs({"a1", "b1", "a2", "b2", "a3"}) do
  gridwar_play(m)
end
local _, err = gridwar_play("c3")
local st = gridwar_state()
local json = require("json")
local f = io.open("` + out + `", "w")
f:write(st.winner .. " " .. st.plies .. " " .. tostring(err ~= nil) .. " " .. json.encode({ok = true}))
f:close()
`
	is.NoErr(os.WriteFile(script, []byte(lua), 0o644))
	_, err := run(t, sc, "script "+script)
	is.NoErr(err)
	bts, err := os.ReadFile(out)
	is.NoErr(err)
	is.Equal(string(bts), `X 5 true {"ok":true}`)
}

func TestHelp(t *testing.T) {
	is := is.New(t)
	sc := testController(t)
	r, err := run(t, sc, "help")
	is.NoErr(err)
	is.True(strings.Contains(r.message, "autoplay"))
	r, err = run(t, sc, "help aiplay")
	is.NoErr(err)
	is.True(strings.Contains(r.message, "lambda-function"))
	r, err = run(t, sc, "help ../shell")
	is.NoErr(err)
	is.True(strings.HasPrefix(r.message, "There is no help text"))
}

func TestAutocomplete(t *testing.T) {
	is := is.New(t)
	c := NewShellCompleter(testController(t))

	line := []rune("aipl")
	matches, n := c.Do(line, len(line))
	is.Equal(n, 4)
	is.Equal(matches, [][]rune{[]rune("ay")})

	line = []rune("aiplay -difficulty h")
	matches, _ = c.Do(line, len(line))
	is.Equal(matches, [][]rune{[]rune("ard")})

	line = []rune("set gra")
	matches, _ = c.Do(line, len(line))
	is.Equal(matches, [][]rune{[]rune("vity")})
}
