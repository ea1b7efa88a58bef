// Package automatic plays the bot against itself: many games, many
// threads, one CSV line per finished game.
package automatic

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/gamestore"
)

// CSVHeader is the first line of every self-play log.
const CSVHeader = "gameID,p1,p2,first,winner,plies\n"

// DrawName is written in the winner column of drawn games.
const DrawName = "draw"

// GameRunner plays complete games between two bot difficulties.
type GameRunner struct {
	bot     *bot.Bot
	variant game.VariantConfig
	players [2]bot.Difficulty
	store   *gamestore.Store

	logchan  chan string
	gamechan chan string
}

// NewGameRunner returns a runner for the variant. p1 and p2 are the
// difficulties of the two players.
func NewGameRunner(logchan chan string, cfg *config.Config, variant game.VariantConfig,
	p1, p2 bot.Difficulty) *GameRunner {
	return &GameRunner{
		bot:     bot.NewBot(cfg),
		variant: variant,
		players: [2]bot.Difficulty{p1, p2},
		logchan: logchan,
	}
}

// SetStore makes the runner save every finished game.
func (r *GameRunner) SetStore(s *gamestore.Store) {
	r.store = s
}

// PlayerName is how player idx (0 or 1) appears in logs.
func (r *GameRunner) PlayerName(idx int) string {
	return fmt.Sprintf("p%d-%s", idx+1, r.players[idx])
}

// PlayGame plays one game to the end. When p1First is set player one
// plays X. rng only places random blocks.
func (r *GameRunner) PlayGame(ctx context.Context, gameID string, rng *frand.RNG,
	p1First bool) (*game.GameState, error) {

	st, err := game.CreateGameWithRNG(r.variant, rng)
	if err != nil {
		return nil, err
	}
	xIdx := 0
	if !p1First {
		xIdx = 1
	}
	for st.Playing() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		onTurn := xIdx
		if st.Current == board.O {
			onTurn = 1 - xIdx
		}
		m, err := r.bot.ChooseMove(ctx, st, r.players[onTurn])
		if err != nil {
			return nil, err
		}
		st, err = game.ApplyMove(st, m)
		if err != nil {
			return nil, err
		}
	}
	if r.gamechan != nil {
		r.gamechan <- st.ToDisplayText()
	}

	winner := DrawName
	switch st.Winner {
	case game.WinnerX:
		winner = r.PlayerName(xIdx)
	case game.WinnerO:
		winner = r.PlayerName(1 - xIdx)
	}
	if r.logchan != nil {
		r.logchan <- fmt.Sprintf("%s,%s,%s,%s,%s,%d\n", gameID, r.PlayerName(0),
			r.PlayerName(1), r.PlayerName(xIdx), winner, st.Turn())
	}
	if r.store != nil {
		players := r.PlayerName(xIdx) + " vs " + r.PlayerName(1-xIdx)
		if err := r.store.Save(ctx, gamestore.RecordFromState(gameID, players, st)); err != nil {
			log.Err(err).Str("game-id", gameID).Msg("saving-game")
		}
	}
	return st, nil
}
