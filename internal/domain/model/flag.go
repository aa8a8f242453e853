// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
)

// Item attribute names shared between the flag table and the claim tables.
const (
	AttrFlag     = "flag"
	AttrTeam     = "team"
	AttrWeight   = "weight"
	AttrTimeout  = "timeout"
	AttrYes      = "yes"
	AttrAuthKey  = "auth_key"
	AttrNickname = "nickname"
	AttrLastSeen = "last_seen"
)

// FlagDefinition describes a claimable flag as configured by the game
// administrator. Optional attributes are pointers so that "absent" is
// distinguishable from a zero value.
type FlagDefinition struct {
	// Flag is the unique flag name. Flag names may be secret and must
	// never be exposed to clients unhashed.
	Flag string

	// Weight is the score contribution of the flag while valid. A flag
	// without a weight is claimable but never counted.
	Weight *float64

	// Timeout is a validity window in seconds. Nil means the flag is
	// durable: once claimed it counts forever.
	Timeout *float64

	// Yes selects the window direction when Timeout is set. True or unset
	// means the claim must be fresh; false means it must have aged out.
	Yes *bool

	// AuthKey maps team identifiers to the secret each team must present
	// to claim this flag. Teams absent from the map can never claim it.
	AuthKey map[string]string

	// Nickname is an optional display label carried into the bitmask.
	Nickname string
}

// Timed reports whether the flag has a validity window.
func (f FlagDefinition) Timed() bool { return f.Timeout != nil }

// RequiresFresh reports whether a timed flag counts only while recently
// claimed. Unset Yes defaults to true.
func (f FlagDefinition) RequiresFresh() bool { return f.Yes == nil || *f.Yes }

// ClaimRecord is a team's most recent successful claim of a flag.
// Claims are idempotent upserts: last write wins, no history kept.
type ClaimRecord struct {
	Team int
	Flag string

	// LastSeen is the wall-clock time of the most recent claim as unix
	// seconds with fractional precision.
	LastSeen float64
}

// FlagFromItem decodes a FlagDefinition from a raw table item. Unknown
// attributes are ignored. The flag name is required; everything else is
// optional.
func FlagFromItem(item map[string]any) (FlagDefinition, error) {
	name, ok := item[AttrFlag].(string)
	if !ok || name == "" {
		return FlagDefinition{}, fmt.Errorf("flag item has no %q attribute", AttrFlag)
	}

	def := FlagDefinition{Flag: name}

	if w, ok := item[AttrWeight]; ok {
		f, err := toFloat(w)
		if err != nil {
			return FlagDefinition{}, fmt.Errorf("flag %q: bad weight: %w", name, err)
		}
		def.Weight = &f
	}
	if t, ok := item[AttrTimeout]; ok {
		f, err := toFloat(t)
		if err != nil {
			return FlagDefinition{}, fmt.Errorf("flag %q: bad timeout: %w", name, err)
		}
		if f < 0 {
			return FlagDefinition{}, fmt.Errorf("flag %q: timeout must be non-negative", name)
		}
		def.Timeout = &f
	}
	if y, ok := item[AttrYes].(bool); ok {
		def.Yes = &y
	}
	if n, ok := item[AttrNickname].(string); ok {
		def.Nickname = n
	}
	if ak, ok := item[AttrAuthKey]; ok {
		keys, err := toStringMap(ak)
		if err != nil {
			return FlagDefinition{}, fmt.Errorf("flag %q: bad auth_key: %w", name, err)
		}
		def.AuthKey = keys
	}

	return def, nil
}

// ToItem encodes the definition as a raw table item for seeding tools and
// tests.
func (f FlagDefinition) ToItem() map[string]any {
	item := map[string]any{AttrFlag: f.Flag}
	if f.Weight != nil {
		item[AttrWeight] = *f.Weight
	}
	if f.Timeout != nil {
		item[AttrTimeout] = *f.Timeout
	}
	if f.Yes != nil {
		item[AttrYes] = *f.Yes
	}
	if f.Nickname != "" {
		item[AttrNickname] = f.Nickname
	}
	if f.AuthKey != nil {
		ak := make(map[string]any, len(f.AuthKey))
		for team, secret := range f.AuthKey {
			ak[team] = secret
		}
		item[AttrAuthKey] = ak
	}
	return item
}

// ToItem encodes the claim as a raw table item keyed by (team, flag).
func (c ClaimRecord) ToItem() map[string]any {
	return map[string]any{
		AttrTeam:     c.Team,
		AttrFlag:     c.Flag,
		AttrLastSeen: c.LastSeen,
	}
}

// ClaimFromItem decodes a ClaimRecord from a raw table item.
func ClaimFromItem(item map[string]any) (ClaimRecord, error) {
	var rec ClaimRecord

	team, err := toFloat(item[AttrTeam])
	if err != nil {
		return rec, fmt.Errorf("claim item: bad team: %w", err)
	}
	rec.Team = int(team)

	name, ok := item[AttrFlag].(string)
	if !ok {
		return rec, fmt.Errorf("claim item has no %q attribute", AttrFlag)
	}
	rec.Flag = name

	seen, err := toFloat(item[AttrLastSeen])
	if err != nil {
		return rec, fmt.Errorf("claim item: bad last_seen: %w", err)
	}
	rec.LastSeen = seen

	return rec, nil
}

// toFloat normalizes the numeric encodings seen after JSON round trips.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toStringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("value for %q is %T, want string", k, val)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a map: %T", v)
	}
}
