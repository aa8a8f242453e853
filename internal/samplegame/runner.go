package samplegame

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scorecard/pkg/logger"
)

// Run executes one phase of a sample game: generate and seed when
// cfg.Replay is false, otherwise replay the saved game against the server
// and verify every reported score.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}()

	if cfg.Replay {
		return stats, replay(ctx, cfg, stats)
	}
	return stats, seed(ctx, cfg, stats)
}

// seed generates the game, writes the flag definitions into the server's
// flag table, and saves the game file for the replay phase.
func seed(ctx context.Context, cfg *Config, stats *Stats) error {
	teams := GenerateTeams(cfg.TeamCount)
	stats.TeamsGenerated = len(teams)
	flags := GenerateFlags(cfg.FlagCount, teams)
	logger.Get().Info(ctx, "generated sample game",
		logger.Int("teams", len(teams)),
		logger.Int("flags", len(flags)))

	table, closeDB, err := OpenFlagTable(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("open flag table: %w", err)
	}
	if err := SeedFlags(ctx, table, flags); err != nil {
		_ = closeDB()
		return err
	}
	stats.FlagsSeeded = len(flags)
	if err := closeDB(); err != nil {
		return fmt.Errorf("close flag table: %w", err)
	}

	if err := saveGame(cfg.GameFile, teams, flags); err != nil {
		return err
	}
	logger.Get().Info(ctx, "seeded flags and saved the game",
		logger.Int("flags", len(flags)),
		logger.String("badgerPath", cfg.BadgerPath),
		logger.String("gameFile", cfg.GameFile))
	return nil
}

// replay claims flags for every team in the saved game and checks the
// scores the server reports.
func replay(ctx context.Context, cfg *Config, stats *Stats) error {
	teams, flags, err := loadGame(cfg.GameFile)
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "replaying saved game",
		logger.Int("teams", len(teams)),
		logger.Int("flags", len(flags)),
		logger.String("baseURL", cfg.BaseURL))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	for _, team := range teams {
		if err := playTeam(ctx, c, cfg, stats, team, flags); err != nil {
			return err
		}
	}

	logger.Get().Info(ctx, "replay complete",
		logger.Int("claims", stats.ClaimsSubmitted),
		logger.Int("valid", stats.ClaimsValid),
		logger.Int("rejected", stats.ClaimsRejected),
		logger.Int("tallies", stats.TalliesChecked),
		logger.Int("mismatches", stats.TallyMismatches))
	if stats.TallyMismatches > 0 {
		return fmt.Errorf("%d teams reported unexpected scores", stats.TallyMismatches)
	}
	return nil
}

// playTeam claims a random subset of flags for one team and checks the
// resulting score.
func playTeam(ctx context.Context, c *client, cfg *Config, stats *Stats, team int, flags []GeneratedFlag) error {
	var expected float64
	for _, gen := range flags {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Gated flags are only claimable by their listed team; everyone
		// else skips them. Other flags are claimed with 3 in 4 odds.
		var authKey *string
		if gen.Secret != "" {
			if gen.GatedTeam != team {
				continue
			}
			secret := gen.Secret
			authKey = &secret
		} else if randInt(claimDenominator) == 0 {
			continue
		}

		valid, err := c.SubmitClaim(ctx, team, gen.Def.Flag, authKey)
		stats.ClaimsSubmitted++
		if err != nil {
			stats.ClaimsFailed++
			return fmt.Errorf("team %d claiming %s: %w", team, gen.Def.Flag, err)
		}
		if !valid {
			stats.ClaimsRejected++
			return fmt.Errorf("team %d claim of %s unexpectedly invalid", team, gen.Def.Flag)
		}
		stats.ClaimsValid++
		expected += gen.ImmediateWeight()
	}

	reply, err := c.FetchScore(ctx, team)
	stats.TalliesChecked++
	if err != nil {
		return fmt.Errorf("team %d tally: %w", team, err)
	}
	if reply.Score != expected {
		stats.TallyMismatches++
		logger.Get().Warn(ctx, "team score mismatch",
			logger.Int("team", team),
			logger.Float64("got", reply.Score),
			logger.Float64("expected", expected))
	} else if cfg.Verbose {
		logger.Get().Info(ctx, "team score verified",
			logger.Int("team", team),
			logger.Float64("score", reply.Score),
			logger.Int("bitmaskEntries", len(reply.Bitmask)))
	}
	return nil
}
