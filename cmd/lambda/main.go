package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
)

var cfg *config.Config
var nc *nats.Conn
var moveBot *bot.Bot

const HardTimeLimit = 60 * time.Second // max time per move

// HandleRequest answers one bot request. If the event names a reply
// channel the response is also published there, and we wait for an
// acknowledgement.
func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (*bot.Response, error) {
	logger := log.With().Str("game-id", evt.GameID).Logger()

	ctx, cancel := context.WithTimeout(ctx, HardTimeLimit)
	defer cancel()

	resp := moveBot.Respond(ctx, &evt.Request)
	if resp.Error != "" {
		logger.Error().Str("error", resp.Error).Msg("bot-move-failed")
	}
	if evt.ReplyChannel == "" || nc == nil {
		return resp, nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("move-success-sending-via-nats")
	err = retry.Do(
		func() error {
			// Only the acknowledgement matters, not its contents.
			_, err := nc.Request(evt.ReplyChannel, data, 3*time.Second)
			return err
		},
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			logger.Err(err).Uint("n", n).Msg("did-not-receive-ack-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		logger.Err(err).Msg("bot-move-reply-failed")
	}
	logger.Info().Msg("exiting-fn")
	return resp, nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg = config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		panic(err)
	}
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")
	moveBot = bot.NewBot(cfg)

	if natsURL := cfg.GetString(config.ConfigNatsURL); natsURL != "" {
		nc, err = nats.Connect(natsURL)
		if err != nil {
			log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
		}
	}

	lambda.Start(HandleRequest)
}
