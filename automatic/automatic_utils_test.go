package automatic

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/gamestore"
)

func TestCompVComp(t *testing.T) {
	is := is.New(t)
	store, err := gamestore.Open(":memory:")
	is.NoErr(err)
	defer store.Close()

	logfile := filepath.Join(t.TempDir(), "games.csv")
	err = StartCompVComp(context.Background(), DefaultConfig, game.ClassicConfig(3, 3),
		4, 2, logfile, RunnerSetup{
			Players: [2]bot.Difficulty{bot.DifficultyEasy, bot.DifficultyHard},
			Store:   store,
		})
	is.NoErr(err)
	is.Equal(CVCCounter.Value(), int64(4))
	is.Equal(IsPlaying.Value(), int64(0))

	out, err := AnalyzeLogFile(logfile)
	is.NoErr(err)
	is.True(strings.Contains(out, "Games played: 4"))
	is.True(strings.Contains(out, "p1-easy went first: 2"))
	is.True(strings.Contains(out, "p1-easy wins: 0"))

	n, err := store.Count(context.Background())
	is.NoErr(err)
	is.Equal(n, 4)
}

func TestCompVCompAlreadyPlaying(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	done := make(chan error, 1)
	go func() {
		done <- StartCompVComp(ctx, DefaultConfig, game.ClassicConfig(3, 3),
			1000000, 1, filepath.Join(dir, "first.csv"), RunnerSetup{
				Players: [2]bot.Difficulty{bot.DifficultyEasy, bot.DifficultyEasy},
			})
	}()

	deadline := time.Now().Add(10 * time.Second)
	for IsPlaying.Value() == 0 {
		is.True(time.Now().Before(deadline))
		time.Sleep(time.Millisecond)
	}

	second := filepath.Join(dir, "second.csv")
	err := StartCompVComp(context.Background(), DefaultConfig, game.ClassicConfig(3, 3),
		1, 1, second, RunnerSetup{})
	is.True(errors.Is(err, ErrAlreadyPlaying))
	_, err = os.Stat(second)
	is.True(os.IsNotExist(err))

	cancel()
	is.NoErr(<-done)

	// the guard is released once the first batch returns
	err = StartCompVComp(context.Background(), DefaultConfig, game.ClassicConfig(3, 3),
		1, 1, second, RunnerSetup{})
	is.NoErr(err)
}

func TestCompVCompBadVariant(t *testing.T) {
	is := is.New(t)
	err := StartCompVComp(context.Background(), DefaultConfig, game.VariantConfig{BoardSize: 3, WinLength: 4},
		1, 1, filepath.Join(t.TempDir(), "x.csv"), RunnerSetup{})
	is.True(err != nil)
}

func TestSummarizeLog(t *testing.T) {
	is := is.New(t)
	lines := CSVHeader +
		"a,p1-easy,p2-hard,p1-easy,p2-hard,7\n" +
		"b,p1-easy,p2-hard,p2-hard,p2-hard,5\n" +
		"c,p1-easy,p2-hard,p1-easy,draw,9\n" +
		"d,p1-easy,p2-hard,p2-hard,p1-easy,8\n"
	s, err := SummarizeLog(strings.NewReader(lines))
	is.NoErr(err)
	is.Equal(s.P1Name, "p1-easy")
	is.Equal(s.P2Name, "p2-hard")
	is.Equal(s.P1.Wins, 1)
	is.Equal(s.P1.Draws, 1)
	is.Equal(s.P1.Losses, 2)
	is.Equal(s.P1First, 2)
	// a: first lost, b: first won, c: draw, d: first lost
	is.Equal(s.First.Wins, 1)
	is.Equal(s.First.Losses, 2)
	is.Equal(s.First.Draws, 1)
	is.Equal(s.Plies.Mean(), 7.25)
	is.True(strings.Contains(s.String(), "Games played: 4"))
}

func TestSummarizeLogErrors(t *testing.T) {
	is := is.New(t)
	_, err := SummarizeLog(strings.NewReader(CSVHeader))
	is.True(err != nil)
	_, err = SummarizeLog(strings.NewReader(CSVHeader + "a,p1,p2,p1,p3,5\n"))
	is.True(err != nil)
	_, err = SummarizeLog(strings.NewReader(CSVHeader + "a,p1,p2,p1,p1,five\n"))
	is.True(err != nil)
}

func TestSeedsRoundTrip(t *testing.T) {
	is := is.New(t)
	seeds := GenerateSeeds(3)
	is.True(seeds[0] != seeds[1])
	var buf bytes.Buffer
	is.NoErr(WriteSeeds(&buf, seeds))
	is.True(strings.HasPrefix(buf.String(), "#"))
	back, err := ReadSeeds(&buf)
	is.NoErr(err)
	is.Equal(back, seeds)

	path := filepath.Join(t.TempDir(), "seeds.txt")
	is.NoErr(SaveSeeds(seeds, path))
	loaded, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(loaded, seeds)

	_, err = ReadSeeds(strings.NewReader("AAAA\n"))
	is.True(err != nil)
}

func TestSeedsFixBlocks(t *testing.T) {
	is := is.New(t)
	cfg := game.ClassicConfig(6, 4)
	cfg.RandomBlocks = 5
	seeds := GenerateSeeds(2)
	a, err := game.CreateGameWithRNG(cfg, rngFor(seeds, 0))
	is.NoErr(err)
	b, err := game.CreateGameWithRNG(cfg, rngFor(seeds, 2))
	is.NoErr(err)
	is.True(a.Board.Equals(b.Board))
}
