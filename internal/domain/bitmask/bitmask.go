// Package bitmask builds the ordered, privacy-preserving per-flag claim
// vector returned to scoreboard clients.
package bitmask

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Tuple is one evaluated flag: its name, the score it currently
// contributes (nil when it does not count), and its display nickname.
type Tuple struct {
	Flag     string
	Score    *float64
	Nickname string
}

// Entry is one position of the client-facing bitmask. The flag name is
// replaced by its SHA-256 hex digest so dashboards can render claim state
// without learning flag identities from network traffic.
type Entry struct {
	Hash     string `json:"hash"`
	Claimed  bool   `json:"claimed"`
	Nickname string `json:"nickname,omitempty"`
}

// Encode sorts the tuples by flag name and maps each to a bitmask entry.
// Flag names are unique, so the secondary ordering on score and nickname
// only matters for malformed inputs; it keeps the sort total either way.
// The ordering is stable across refreshes because it depends only on the
// flag names, never on claim state.
func Encode(tuples []Tuple) []Entry {
	sorted := make([]Tuple, len(tuples))
	copy(sorted, tuples)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Flag != b.Flag {
			return a.Flag < b.Flag
		}
		if av, bv := scoreOrd(a.Score), scoreOrd(b.Score); av != bv {
			return av < bv
		}
		return a.Nickname < b.Nickname
	})

	entries := make([]Entry, len(sorted))
	for i, t := range sorted {
		entries[i] = Entry{
			Hash:     HashFlag(t.Flag),
			Claimed:  t.Score != nil && *t.Score != 0,
			Nickname: t.Nickname,
		}
	}
	return entries
}

// HashFlag returns the opaque client-facing identifier of a flag name.
func HashFlag(flag string) string {
	sum := sha256.Sum256([]byte(flag))
	return hex.EncodeToString(sum[:])
}

// scoreOrd orders nil scores before any numeric score.
func scoreOrd(s *float64) float64 {
	if s == nil {
		return -1 << 60
	}
	return *s
}
