package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/config"
	"github.com/domino14/gridwar/shell"
)

var (
	GitVersion string
)

//go:embed gridwar.txt
var banner string

func consoleLogger(debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("[%-5s]", i))
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// startCPUProfile returns the function that stops the profile.
func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	memstats := &runtime.MemStats{}
	runtime.ReadMemStats(memstats)
	log.Info().Uint64("heap-alloc", memstats.HeapAlloc).Uint32("num-gc", memstats.NumGC).
		Msg("memory-stats")
	return pprof.WriteHeapProfile(f)
}

func main() {
	// Relative data and database paths are resolved against the
	// executable's directory.
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

	logger := consoleLogger(cfg.GetBool(config.ConfigDebug))
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")

	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		stop, err := startCPUProfile(path)
		if err != nil {
			log.Fatal().Err(err).Msg("cpu-profile")
		}
		defer stop()
	}

	quit := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Debug().Msg("got-quit-signal")
		close(quit)
	}()

	sc := shell.NewShellController(cfg, exPath, GitVersion)
	// Positional arguments run as a single command instead of the loop.
	if line := strings.TrimSpace(shellquote.Join(cfg.Args()...)); line != "" {
		sc.Execute(sig, line)
		sc.WaitAutoplay()
		sig <- syscall.SIGINT
	} else {
		fmt.Println(banner)
		go sc.Loop(sig)
	}

	<-quit

	if path := cfg.GetString(config.ConfigMemProfile); path != "" {
		if err := writeMemProfile(path); err != nil {
			log.Err(err).Msg("mem-profile")
		}
	}
	sc.Cleanup()
}
