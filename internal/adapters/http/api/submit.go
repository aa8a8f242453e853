// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/scorecard/internal/app"
)

// submitRequest mirrors the JSON body of POST /submit. Team is decoded
// loosely because clients send it as either a number or a string.
type submitRequest struct {
	Team              any      `json:"team"`
	Flag              string   `json:"flag"`
	AuthKey           *string  `json:"auth_key"`
	FlagCacheLifetime *float64 `json:"flag_cache_lifetime"`
}

type submitResponse struct {
	Valid bool `json:"valid"`
}

// SubmitHandler handles flag claim requests.
type SubmitHandler struct {
	deps Dependencies
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps Dependencies) *SubmitHandler {
	return &SubmitHandler{deps: deps}
}

// HandlePostSubmit handles POST /submit requests.
func (h *SubmitHandler) HandlePostSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req submitRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Submit(r.Context(), service.SubmitRequest{
		Team:              teamString(req.Team),
		Flag:              req.Flag,
		AuthKey:           req.AuthKey,
		FlagCacheLifetime: req.FlagCacheLifetime,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	if len(result.ClientErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, clientErrorResponse{ClientError: result.ClientErrors})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Valid: result.Valid})
}
