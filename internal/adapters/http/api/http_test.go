package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/scorecard/internal/adapters/http/api"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/bitmask"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing

type mockDependencies struct {
	submitResult service.SubmitResult
	submitErr    error
	submitReqs   []service.SubmitRequest

	tallyResult service.TallyResult
	tallyErr    error
	tallyReqs   []service.TallyRequest
}

func (m *mockDependencies) Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error) {
	m.submitReqs = append(m.submitReqs, req)
	return m.submitResult, m.submitErr
}

func (m *mockDependencies) Tally(ctx context.Context, req service.TallyRequest) (service.TallyResult, error) {
	m.tallyReqs = append(m.tallyReqs, req)
	return m.tallyResult, m.tallyErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{
			submitResult: service.SubmitResult{Valid: true},
			tallyResult:  service.TallyResult{Team: 1},
		}
		statsProvider := &mockStatsProvider{}
		server := api.NewServer(deps, statsProvider)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And submit endpoint should be accessible", func() {
				req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{"team":1,"flag":"f"}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And score endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/score/1", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And unknown paths should return not found", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSubmitHandler_HandlePostSubmit(t *testing.T) {
	Convey("Given a submit handler", t, func() {
		deps := &mockDependencies{
			submitResult: service.SubmitResult{Valid: true},
		}
		handler := api.NewSubmitHandler(deps)

		Convey("When handling a valid POST request", func() {
			body := `{"team": 7, "flag": "flag-one"}`
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return the claim outcome", func() {
				handler.HandlePostSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]any
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["valid"], ShouldEqual, true)
			})

			Convey("And the team should be forwarded as a string", func() {
				handler.HandlePostSubmit(w, req)
				So(len(deps.submitReqs), ShouldEqual, 1)
				So(deps.submitReqs[0].Team, ShouldEqual, "7")
				So(deps.submitReqs[0].Flag, ShouldEqual, "flag-one")
			})
		})

		Convey("When the team is sent as a string", func() {
			body := `{"team": "42", "flag": "flag-one", "auth_key": "secret"}`
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(body))
			w := httptest.NewRecorder()

			handler.HandlePostSubmit(w, req)

			Convey("Then it should be forwarded unchanged", func() {
				So(len(deps.submitReqs), ShouldEqual, 1)
				So(deps.submitReqs[0].Team, ShouldEqual, "42")
				So(deps.submitReqs[0].AuthKey, ShouldNotBeNil)
				So(*deps.submitReqs[0].AuthKey, ShouldEqual, "secret")
			})
		})

		Convey("When the service reports client errors", func() {
			deps.submitResult = service.SubmitResult{ClientErrors: []string{"team is required", "flag is required"}}
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{}`))
			w := httptest.NewRecorder()

			Convey("Then it should return 400 with every error", func() {
				handler.HandlePostSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response map[string][]string
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(len(response["client_error"]), ShouldEqual, 2)
			})
		})

		Convey("When handling an invalid JSON request", func() {
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{invalid json`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service returns a backend error", func() {
			deps.submitErr = errors.New("storage unreachable")
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{"team":1,"flag":"f"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandlePostSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/submit", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandlePostSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestScoreHandler_HandleGetScore(t *testing.T) {
	Convey("Given a score handler", t, func() {
		deps := &mockDependencies{
			tallyResult: service.TallyResult{
				Team:  42,
				Score: 3.5,
				Bitmask: []bitmask.Entry{
					{Hash: bitmask.HashFlag("a"), Claimed: true},
					{Hash: bitmask.HashFlag("b"), Claimed: false, Nickname: "web"},
				},
			},
		}
		handler := api.NewScoreHandler(deps)

		Convey("When requesting a team's score", func() {
			req := httptest.NewRequest("GET", "/score/42", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the tally", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var response struct {
					Team    int             `json:"team"`
					Score   float64         `json:"score"`
					Bitmask []bitmask.Entry `json:"bitmask"`
				}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Team, ShouldEqual, 42)
				So(response.Score, ShouldEqual, 3.5)
				So(len(response.Bitmask), ShouldEqual, 2)
				So(response.Bitmask[1].Nickname, ShouldEqual, "web")
			})
		})

		Convey("When passing cache control query parameters", func() {
			req := httptest.NewRequest("GET", "/score/42?score_cache_lifetime=5&flag_cache_lifetime=2.5&no_cache=true", nil)
			w := httptest.NewRecorder()

			handler.HandleGetScore(w, req)

			Convey("Then they should be forwarded to the service", func() {
				So(len(deps.tallyReqs), ShouldEqual, 1)
				forwarded := deps.tallyReqs[0]
				So(forwarded.Team, ShouldEqual, "42")
				So(*forwarded.ScoreCacheLifetime, ShouldEqual, 5.0)
				So(*forwarded.FlagCacheLifetime, ShouldEqual, 2.5)
				So(forwarded.DisableCache, ShouldBeTrue)
			})
		})

		Convey("When the lifetime parameter is not a number", func() {
			req := httptest.NewRequest("GET", "/score/42?score_cache_lifetime=soon", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When no team is present in the path", func() {
			req := httptest.NewRequest("GET", "/score/", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service reports client errors", func() {
			deps.tallyResult = service.TallyResult{ClientErrors: []string{`team "abc" is not an integer`}}
			req := httptest.NewRequest("GET", "/score/abc", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 with the errors", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response map[string][]string
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(len(response["client_error"]), ShouldEqual, 1)
			})
		})

		Convey("When the service returns a backend error", func() {
			deps.tallyErr = errors.New("storage unreachable")
			req := httptest.NewRequest("GET", "/score/42", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-GET request", func() {
			req := httptest.NewRequest("POST", "/score/42", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleGetScore(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"started":     true,
				"cachedTeams": 3,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["started"], ShouldEqual, true)
				So(response["cachedTeams"], ShouldEqual, 3)
			})
		})
	})
}
