package samplegame

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/scorecard/internal/domain/model"
)

// Flag kind distribution cases.
const (
	kindDivisor      = 6
	caseDurable      = 0
	caseDurableAlt   = 1
	caseAlive        = 2
	caseDead         = 3
	caseGated        = 4
	caseWeightless   = 5
	weightMin        = 10
	weightRange      = 41 // weights land in [10, 50]
	timeoutMin       = 60
	timeoutRange     = 240
	teamIDMin        = 1000
	teamIDRange      = 9000
	claimDenominator = 4 // roughly 3 of 4 flags claimed per team
)

// randInt returns a random int in [0, n) using crypto/rand.
func randInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// GenerateTeams returns teamCount distinct team identifiers.
func GenerateTeams(teamCount int) []int {
	teams := make([]int, 0, teamCount)
	seen := make(map[int]bool, teamCount)
	for len(teams) < teamCount {
		team := teamIDMin + randInt(teamIDRange)
		if seen[team] {
			continue
		}
		seen[team] = true
		teams = append(teams, team)
	}
	return teams
}

// GeneratedFlag pairs a definition with the secret a gated flag expects,
// so the replay can present it.
type GeneratedFlag struct {
	Def model.FlagDefinition

	// GatedTeam and Secret are set only for authorization-gated flags.
	GatedTeam int
	Secret    string
}

// GenerateFlags builds a mix of flag kinds: durable, time-windowed in both
// directions, authorization-gated, and weightless. Flag names are uuids.
// Gated flags are bound to one of the supplied teams.
func GenerateFlags(flagCount int, teams []int) []GeneratedFlag {
	flags := make([]GeneratedFlag, 0, flagCount)
	for i := 0; i < flagCount; i++ {
		gen := GeneratedFlag{
			Def: model.FlagDefinition{Flag: uuid.New().String()},
		}

		weight := float64(weightMin + randInt(weightRange))
		timeout := float64(timeoutMin + randInt(timeoutRange))

		switch randInt(kindDivisor) {
		case caseDurable, caseDurableAlt:
			gen.Def.Weight = &weight
		case caseAlive:
			yes := true
			gen.Def.Weight = &weight
			gen.Def.Timeout = &timeout
			gen.Def.Yes = &yes
			gen.Def.Nickname = "alive-" + gen.Def.Flag[:8]
		case caseDead:
			yes := false
			gen.Def.Weight = &weight
			gen.Def.Timeout = &timeout
			gen.Def.Yes = &yes
			gen.Def.Nickname = "dormant-" + gen.Def.Flag[:8]
		case caseGated:
			gen.Def.Weight = &weight
			gen.GatedTeam = teams[randInt(len(teams))]
			gen.Secret = uuid.New().String()
			gen.Def.AuthKey = map[string]string{
				itoa(gen.GatedTeam): gen.Secret,
			}
		case caseWeightless:
			gen.Def.Nickname = "bonus-" + gen.Def.Flag[:8]
		}

		flags = append(flags, gen)
	}
	return flags
}

func itoa(n int) string { return strconv.Itoa(n) }

// ImmediateWeight returns the score a just-claimed flag contributes right
// away: dormant flags have not aged out yet and weightless flags never
// count.
func (g GeneratedFlag) ImmediateWeight() float64 {
	if g.Def.Weight == nil {
		return 0
	}
	if g.Def.Timed() && !g.Def.RequiresFresh() {
		return 0
	}
	return *g.Def.Weight
}
