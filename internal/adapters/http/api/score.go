// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/bitmask"
)

type scoreResponse struct {
	Team    int             `json:"team"`
	Score   float64         `json:"score"`
	Bitmask []bitmask.Entry `json:"bitmask"`
}

// ScoreHandler handles score tally requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /score/{team} requests. Optional query
// parameters: score_cache_lifetime, flag_cache_lifetime (seconds, float)
// and no_cache (boolean).
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	// Extract path parameter after /score/
	team := strings.TrimPrefix(r.URL.Path, "/score/")
	if team == "" || strings.Contains(team, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	query := r.URL.Query()
	req := service.TallyRequest{Team: team}

	var err error
	if req.ScoreCacheLifetime, err = lifetimeParam(query.Get("score_cache_lifetime")); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.FlagCacheLifetime, err = lifetimeParam(query.Get("flag_cache_lifetime")); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if raw := query.Get("no_cache"); raw != "" {
		if req.DisableCache, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	result, err := h.deps.Tally(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	if len(result.ClientErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, clientErrorResponse{ClientError: result.ClientErrors})
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Team:    result.Team,
		Score:   result.Score,
		Bitmask: result.Bitmask,
	})
}

// lifetimeParam parses an optional cache lifetime query value in seconds.
func lifetimeParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &seconds, nil
}
