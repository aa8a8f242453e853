package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/scorecard/internal/samplegame"
	"github.com/okian/scorecard/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeamCount = 10
	defaultFlagCount = 10
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the server (replay phase)")
		badgerPath = flag.String("badger", "./data/scorecard", "Badger path the server reads flags from (seed phase)")
		gameFile   = flag.String("game", "sample_game.json", "Game file written by the seed phase and read by replay")
		teamCount  = flag.Int("teams", defaultTeamCount, "Number of teams to generate")
		flagCount  = flag.Int("flags", defaultFlagCount, "Number of flags to generate")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		replay     = flag.Bool("replay", false, "Replay the saved game against a running server")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &samplegame.Config{
		BaseURL:    *baseURL,
		BadgerPath: *badgerPath,
		GameFile:   *gameFile,
		TeamCount:  *teamCount,
		FlagCount:  *flagCount,
		Timeout:    *timeout,
		Replay:     *replay,
		Verbose:    *verbose,
	}

	if _, err := samplegame.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("sample game failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
