// Package samplegame seeds a demo flag set and replays claim and tally
// traffic against a running server, verifying the scores it reports.
//
// Badger is single-process, so a run has two phases: seed the flag table
// while the server is down (writing the generated game to a file), then
// replay that file against the running server.
package samplegame

import "time"

// Config holds configuration for a sample game run.
type Config struct {
	BaseURL    string        // Base URL of the running server (replay phase)
	BadgerPath string        // Badger path the server reads flags from (seed phase)
	GameFile   string        // File the generated game is saved to and replayed from
	TeamCount  int           // Number of teams to generate
	FlagCount  int           // Number of flags to generate
	Timeout    time.Duration // HTTP request timeout
	Replay     bool          // Replay a previously seeded game instead of seeding
	Verbose    bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	FlagsSeeded     int
	TeamsGenerated  int
	ClaimsSubmitted int
	ClaimsValid     int
	ClaimsRejected  int
	ClaimsFailed    int
	TalliesChecked  int
	TallyMismatches int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
