// Package validity evaluates whether a claimed flag currently contributes
// to a team's score.
package validity

import (
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

// Evaluate applies the flag's validity rule at time now against the team's
// recorded claim. lastSeen is nil when the team never claimed the flag.
// The return value is the contributing weight, or nil when the flag does
// not currently count.
//
// Rules:
//   - no weight: never counts, claimed or not
//   - weight, no timeout: durable, counts once claimed
//   - weight and timeout, fresh mode: counts only while the claim is at
//     most timeout seconds old
//   - weight and timeout, aged mode: counts only once the claim is at
//     least timeout seconds old
func Evaluate(def model.FlagDefinition, lastSeen *float64, now time.Time) *float64 {
	if lastSeen == nil || def.Weight == nil {
		return nil
	}

	if def.Timed() {
		cutoff := UnixSeconds(now) - *def.Timeout
		if def.RequiresFresh() {
			if *lastSeen < cutoff {
				return nil
			}
		} else {
			if *lastSeen > cutoff {
				return nil
			}
		}
	}

	weight := *def.Weight
	return &weight
}

// UnixSeconds converts a time to unix seconds with fractional precision,
// the representation claims are stored in. The whole and fractional parts
// are converted separately; dividing UnixNano directly would overflow the
// float64 mantissa for current epochs and lose sub-microsecond precision.
func UnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
