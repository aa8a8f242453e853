// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file/env.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

// Claim backend selectors.
const (
	BackendBadger = "badger"
	BackendS3     = "s3"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Backend selects the claim storage backend: badger or s3.
	Backend string `koanf:"backend"`

	// BadgerPath is the directory of the embedded badger database. The
	// flag definition table always lives here.
	BadgerPath string `koanf:"badger_path"`

	// S3Bucket and S3Prefix locate the content-addressed claim store
	// when the s3 backend is selected.
	S3Bucket string `koanf:"s3_bucket"`
	S3Prefix string `koanf:"s3_prefix"`

	// FlagCacheLifetime bounds staleness of the flag definition
	// snapshot, in seconds. Float-parseable per request overrides apply.
	FlagCacheLifetime float64 `koanf:"flag_cache_lifetime"`

	// ScoreCacheLifetime bounds staleness of per-team score entries, in
	// seconds.
	ScoreCacheLifetime float64 `koanf:"score_cache_lifetime"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Backend:            BackendBadger,
		BadgerPath:         "./data/scorecard",
		S3Prefix:           "claims",
		FlagCacheLifetime:  30,
		ScoreCacheLifetime: 30,
	}
}
