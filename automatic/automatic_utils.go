package automatic

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/gamestore"
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int
)

var ErrAlreadyPlaying = errors.New("games are already being played, please wait till complete")

// playing is held for the whole of a StartCompVComp call.
var playing atomic.Bool

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

// RunnerSetup is everything about a batch of games besides the variant
// and its size.
type RunnerSetup struct {
	Players [2]bot.Difficulty
	// Store, if set, receives every finished game.
	Store *gamestore.Store
	// Seeds, if any, fix the block layout of game i to Seeds[i%len].
	Seeds [][32]byte
}

func rngFor(seeds [][32]byte, i int) *frand.RNG {
	if len(seeds) == 0 {
		return frand.New()
	}
	seed := seeds[i%len(seeds)]
	return frand.NewCustom(seed[:], 1024, 12)
}

// StartCompVComp plays numGames bot-vs-bot games on threads workers and
// writes one CSV line per game to outputFilename. Players alternate going
// first. It returns when every game is done or ctx is cancelled;
// cancelled games are not logged.
func StartCompVComp(ctx context.Context, cfg *config.Config, variant game.VariantConfig,
	numGames, threads int, outputFilename string, setup RunnerSetup) error {

	if err := variant.Validate(); err != nil {
		return err
	}
	if threads < 1 {
		threads = 1
	}
	if !playing.CompareAndSwap(false, true) {
		return ErrAlreadyPlaying
	}
	defer playing.Store(false)
	logfile, err := os.Create(outputFilename)
	if err != nil {
		return err
	}
	defer logfile.Close()
	log.Debug().Int("games", numGames).Int("threads", threads).Msg("starting-games")

	CVCCounter.Set(0)
	jobs := make(chan int, 100)
	logChan := make(chan string, 100)

	writerDone := make(chan error, 1)
	go func() {
		w := bufio.NewWriter(logfile)
		var werr error
		if _, err := w.WriteString(CSVHeader); err != nil {
			werr = err
		}
		for msg := range logChan {
			if werr != nil {
				continue
			}
			_, werr = w.WriteString(msg)
		}
		if err := w.Flush(); werr == nil {
			werr = err
		}
		writerDone <- werr
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < numGames; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				log.Info().Msg("got stop signal, exiting soon...")
				return nil
			}
		}
		log.Debug().Msg("finished-queueing-jobs")
		return nil
	})

	for range threads {
		g.Go(func() error {
			r := NewGameRunner(logChan, cfg, variant, setup.Players[0], setup.Players[1])
			r.SetStore(setup.Store)
			IsPlaying.Add(1)
			defer IsPlaying.Add(-1)
			for i := range jobs {
				gameID := fmt.Sprintf("%s-%d", gamestore.NewID(), i)
				_, err := r.PlayGame(gctx, gameID, rngFor(setup.Seeds, i), i%2 == 0)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("game %d: %w", i, err)
				}
				CVCCounter.Add(1)
			}
			return nil
		})
	}

	gerr := g.Wait()
	close(logChan)
	werr := <-writerDone
	log.Info().Int64("games", CVCCounter.Value()).Msg("all-games-finished")
	if gerr != nil {
		return gerr
	}
	return werr
}
