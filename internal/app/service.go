// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/scorecard/internal/adapters/kvstore"
	"github.com/okian/scorecard/internal/domain/bitmask"
	"github.com/okian/scorecard/internal/domain/cache"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/validity"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// SubmitRequest carries one flag claim attempt.
type SubmitRequest struct {
	Team string
	Flag string

	// AuthKey is the per-flag secret, required only for gated flags.
	AuthKey *string

	// FlagCacheLifetime overwrites the flag cache TTL (seconds) when set.
	FlagCacheLifetime *float64
}

// SubmitResult is the outcome of a claim attempt. A non-empty ClientErrors
// means the request was malformed and Valid carries no meaning.
type SubmitResult struct {
	Valid        bool
	ClientErrors []string
}

// TallyRequest asks for a team's current score.
type TallyRequest struct {
	Team string

	// ScoreCacheLifetime and FlagCacheLifetime overwrite the respective
	// cache TTLs (seconds) when set.
	ScoreCacheLifetime *float64
	FlagCacheLifetime  *float64

	// DisableCache skips the score cache read. The computed result is
	// still cached for later callers.
	DisableCache bool
}

// TallyResult is a team's computed score and claim bitmask. A non-empty
// ClientErrors means the request was malformed and the other fields carry
// no meaning.
type TallyResult struct {
	Team         int
	Score        float64
	Bitmask      []bitmask.Entry
	ClientErrors []string
}

// Service implements the API dependencies for the scoring system: it
// validates and records claims, and tallies team scores against the flag
// validity windows.
type Service struct {
	mu sync.RWMutex

	// Storage
	claims     kvstore.Table
	flagSource kvstore.Scanner

	// Caches
	flagCache  *cache.FlagCache
	scoreCache *cache.ScoreCache

	// Configuration
	flagCacheLifetime  float64
	scoreCacheLifetime float64

	// Clock, injectable for deterministic tests
	now func() time.Time

	// State
	started       bool
	lastRefreshed time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClaimTable sets the backend that claim records are written to and
// read from.
func WithClaimTable(table kvstore.Table) Option {
	return func(s *Service) {
		s.claims = table
	}
}

// WithFlagSource sets the store the flag definition snapshot is scanned
// from.
func WithFlagSource(source kvstore.Scanner) Option {
	return func(s *Service) {
		s.flagSource = source
	}
}

// WithFlagCacheLifetime sets the initial flag cache TTL in seconds.
func WithFlagCacheLifetime(seconds float64) Option {
	return func(s *Service) {
		if seconds >= 0 {
			s.flagCacheLifetime = seconds
		}
	}
}

// WithScoreCacheLifetime sets the initial score cache TTL in seconds.
func WithScoreCacheLifetime(seconds float64) Option {
	return func(s *Service) {
		if seconds >= 0 {
			s.scoreCacheLifetime = seconds
		}
	}
}

// WithClock injects the wall clock used for claim timestamps and cache
// staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		flagCacheLifetime:  cache.DefaultFlagTTL,
		scoreCacheLifetime: cache.DefaultScoreTTL,
		now:                time.Now,
		logger:             nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the caches and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.claims == nil {
		return ErrNoClaimTable
	}
	if s.flagSource == nil {
		return ErrNoFlagSource
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.flagCache = cache.NewFlagCache(s.flagSource,
		cache.WithFlagTTL(s.flagCacheLifetime),
		cache.WithFlagNow(s.now),
	)
	s.scoreCache = cache.NewScoreCache(
		cache.WithScoreTTL(s.scoreCacheLifetime),
		cache.WithScoreNow(s.now),
	)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Float64("flagCacheLifetime", s.flagCacheLifetime),
		logger.Float64("scoreCacheLifetime", s.scoreCacheLifetime),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")

	// Close the claim backend if it owns resources
	if closer, ok := s.claims.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

// Submit validates a claim attempt and, when it succeeds, upserts the
// team's claim record with the current time. Unknown flags and failed
// authorization checks are normal outcomes, not errors; only backend
// failures return a non-nil error.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := s.ready(); err != nil {
		return SubmitResult{}, err
	}

	team, clientErrs := parseTeam(req.Team)
	if strings.TrimSpace(req.Flag) == "" {
		clientErrs = append(clientErrs, "flag is required")
	}
	if len(clientErrs) > 0 {
		for range clientErrs {
			metrics.RecordSubmissionClientError()
		}
		return SubmitResult{ClientErrors: clientErrs}, nil
	}

	flags, err := s.currentFlags(ctx, req.FlagCacheLifetime)
	if err != nil {
		return SubmitResult{}, err
	}

	def, ok := findFlag(flags, req.Flag)
	if !ok {
		s.logger.Debug(ctx, "claim for unknown flag",
			logger.Int("team", team),
		)
		metrics.RecordSubmission(false)
		return SubmitResult{Valid: false}, nil
	}

	if def.AuthKey != nil {
		secret, listed := def.AuthKey[strconv.Itoa(team)]
		if !listed || req.AuthKey == nil || *req.AuthKey != secret {
			s.logger.Debug(ctx, "claim failed authorization",
				logger.Int("team", team),
				logger.Bool("teamListed", listed),
			)
			metrics.RecordSubmission(false)
			return SubmitResult{Valid: false}, nil
		}
	}

	rec := model.ClaimRecord{
		Team:     team,
		Flag:     def.Flag,
		LastSeen: validity.UnixSeconds(s.now()),
	}

	start := time.Now()
	if err := s.claims.PutItem(ctx, rec.ToItem()); err != nil {
		metrics.RecordBackendError("put")
		return SubmitResult{}, fmt.Errorf("record claim: %w", err)
	}
	metrics.RecordBackendLatency("put", float64(time.Since(start).Milliseconds()))
	metrics.RecordSubmission(true)

	s.logger.Debug(ctx, "claim recorded",
		logger.Int("team", team),
		logger.Float64("lastSeen", rec.LastSeen),
	)

	return SubmitResult{Valid: true}, nil
}

// Tally returns a team's current score and bitmask, from the score cache
// when a fresh entry exists and the cache is not disabled, otherwise by
// recomputing against the flag snapshot and the claim backend.
func (s *Service) Tally(ctx context.Context, req TallyRequest) (TallyResult, error) {
	if err := s.ready(); err != nil {
		return TallyResult{}, err
	}

	team, clientErrs := parseTeam(req.Team)
	if len(clientErrs) > 0 {
		for range clientErrs {
			metrics.RecordTallyClientError()
		}
		return TallyResult{ClientErrors: clientErrs}, nil
	}

	if req.ScoreCacheLifetime != nil {
		s.scoreCache.SetTTL(*req.ScoreCacheLifetime)
	}

	if !req.DisableCache {
		if entry, ok := s.scoreCache.Get(team); ok {
			metrics.RecordScoreCacheHit()
			return TallyResult{Team: entry.Team, Score: entry.Score, Bitmask: entry.Bitmask}, nil
		}
		metrics.RecordScoreCacheMiss()
	}

	flags, err := s.currentFlags(ctx, req.FlagCacheLifetime)
	if err != nil {
		return TallyResult{}, err
	}

	now := s.now()
	var score float64
	tuples := make([]bitmask.Tuple, 0, len(flags))
	for _, def := range flags {
		lastSeen, err := s.lookupClaim(ctx, team, def.Flag)
		if err != nil {
			return TallyResult{}, err
		}

		contribution := validity.Evaluate(def, lastSeen, now)
		if contribution != nil {
			score += *contribution
		}
		tuples = append(tuples, bitmask.Tuple{
			Flag:     def.Flag,
			Score:    contribution,
			Nickname: def.Nickname,
		})
	}

	entry := s.scoreCache.Put(cache.TeamScore{
		Team:    team,
		Score:   score,
		Bitmask: bitmask.Encode(tuples),
	})
	metrics.RecordTally()
	metrics.UpdateCachedTeams(s.scoreCache.Len())

	s.logger.Debug(ctx, "tally computed",
		logger.Int("team", team),
		logger.Float64("score", entry.Score),
		logger.Int("flags", len(flags)),
	)

	return TallyResult{Team: entry.Team, Score: entry.Score, Bitmask: entry.Bitmask}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"flagCacheLifetime":  s.flagCacheLifetime,
		"scoreCacheLifetime": s.scoreCacheLifetime,
	}

	if s.started {
		stats["flagCacheTTL"] = s.flagCache.TTL()
		stats["flagsRefreshedAt"] = s.flagCache.RefreshedAt()
		stats["scoreCacheTTL"] = s.scoreCache.TTL()
		stats["cachedTeams"] = s.scoreCache.Len()

		metrics.UpdateCachedTeams(s.scoreCache.Len())
	}

	return stats
}

// ready reports whether Start completed.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// currentFlags reads the flag snapshot and records refresh metrics when
// the snapshot actually changed.
func (s *Service) currentFlags(ctx context.Context, requestedTTL *float64) ([]model.FlagDefinition, error) {
	start := time.Now()
	flags, err := s.flagCache.Current(ctx, requestedTTL)
	if err != nil {
		metrics.RecordBackendError("scan")
		return nil, err
	}

	refreshedAt := s.flagCache.RefreshedAt()
	s.mu.Lock()
	refreshed := refreshedAt.After(s.lastRefreshed)
	if refreshed {
		s.lastRefreshed = refreshedAt
	}
	s.mu.Unlock()

	if refreshed {
		metrics.RecordBackendLatency("scan", float64(time.Since(start).Milliseconds()))
		metrics.RecordFlagRefresh(len(flags))
		s.logger.Debug(ctx, "flag snapshot refreshed",
			logger.Int("flags", len(flags)),
		)
	}

	return flags, nil
}

// lookupClaim fetches the team's last_seen for one flag. Absence of a
// claim record is a normal outcome and returns nil.
func (s *Service) lookupClaim(ctx context.Context, team int, flag string) (*float64, error) {
	key := kvstore.Item{
		model.AttrTeam: team,
		model.AttrFlag: flag,
	}

	start := time.Now()
	item, err := s.claims.GetItem(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		metrics.RecordBackendError("get")
		return nil, fmt.Errorf("read claim: %w", err)
	}
	metrics.RecordBackendLatency("get", float64(time.Since(start).Milliseconds()))

	rec, err := model.ClaimFromItem(item)
	if err != nil {
		return nil, fmt.Errorf("read claim: %w", err)
	}
	lastSeen := rec.LastSeen
	return &lastSeen, nil
}

// parseTeam validates the team identifier. Both integers and
// integer-valued strings are accepted.
func parseTeam(raw string) (int, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, []string{"team is required"}
	}
	team, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, []string{fmt.Sprintf("team %q is not an integer", raw)}
	}
	return team, nil
}

// findFlag locates a definition by exact name match.
func findFlag(flags []model.FlagDefinition, name string) (model.FlagDefinition, bool) {
	for _, def := range flags {
		if def.Flag == name {
			return def, true
		}
	}
	return model.FlagDefinition{}, false
}
