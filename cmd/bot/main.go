package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/gridwar/bot"
	"github.com/domino14/gridwar/config"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	// Data files are looked up relative to the executable unless given
	// as absolute paths.
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bot.NewBot(cfg)
	g, gctx := errgroup.WithContext(ctx)

	if natsURL := cfg.GetString(config.ConfigNatsURL); natsURL != "" {
		nc, err := nats.Connect(natsURL)
		if err != nil {
			log.Fatal().Err(err).Str("url", natsURL).Msg("nats-connect")
		}
		defer nc.Drain()
		g.Go(func() error {
			return bot.Main(gctx, cfg.GetString(config.ConfigBotChannel), b, nc)
		})
	} else {
		log.Info().Msg("no nats-url; not listening on nats")
	}

	srv := &http.Server{
		Addr:              cfg.GetString(config.ConfigHTTPAddr),
		Handler:           bot.NewRouter(b),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http-listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("got quit signal...")
		sctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Err(err).Msg("bot-exited")
		os.Exit(1)
	}
	log.Info().Msg("server gracefully shut down")
}
