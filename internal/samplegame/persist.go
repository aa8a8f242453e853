package samplegame

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/scorecard/internal/domain/model"
)

// savedGame is the file format linking the seed and replay phases.
type savedGame struct {
	Teams []int       `json:"teams"`
	Flags []savedFlag `json:"flags"`
}

type savedFlag struct {
	Item      map[string]any `json:"item"`
	GatedTeam int            `json:"gated_team,omitempty"`
	Secret    string         `json:"secret,omitempty"`
}

// saveGame writes the generated game to path.
func saveGame(path string, teams []int, flags []GeneratedFlag) error {
	game := savedGame{Teams: teams, Flags: make([]savedFlag, len(flags))}
	for i, gen := range flags {
		game.Flags[i] = savedFlag{
			Item:      gen.Def.ToItem(),
			GatedTeam: gen.GatedTeam,
			Secret:    gen.Secret,
		}
	}

	data, err := json.MarshalIndent(game, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize game: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write game file: %w", err)
	}
	return nil
}

// loadGame reads a previously saved game from path.
func loadGame(path string) ([]int, []GeneratedFlag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read game file: %w", err)
	}
	var game savedGame
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, nil, fmt.Errorf("decode game file: %w", err)
	}

	flags := make([]GeneratedFlag, len(game.Flags))
	for i, saved := range game.Flags {
		def, err := model.FlagFromItem(saved.Item)
		if err != nil {
			return nil, nil, fmt.Errorf("decode game file: %w", err)
		}
		flags[i] = GeneratedFlag{Def: def, GatedTeam: saved.GatedTeam, Secret: saved.Secret}
	}
	return game.Teams, flags, nil
}
