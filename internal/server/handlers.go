package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"jollofwars/internal/analytics"
	"jollofwars/internal/broadcast"
	"jollofwars/internal/db"
	"jollofwars/internal/events"
	"jollofwars/internal/game"
	"jollofwars/internal/gamestate"
	"jollofwars/internal/kv"
	"jollofwars/internal/leaderboard"
	"jollofwars/internal/sessions"
)

type Server struct {
	Sessions   *sessions.Store
	GameState  *gamestate.Gateway
	Analytics  *analytics.Service
	Bus        *events.Bus
	Feed       *broadcast.Broadcaster
	KV         *kv.Client
	GameConfig game.Config

	DB           *db.DB              // nil if no database configured
	ActionBuffer chan db.ActionEvent // nil if no database configured

	SubmitLimiter *RateLimiter // nil disables limiting
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorResponse struct {
	Error string `json:"error"`
	Retry bool   `json:"retry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to write JSON response: %v\n", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, leaderboard.ErrInvalidEntry),
		errors.Is(err, game.ErrInvalidTeam),
		errors.Is(err, game.ErrInvalidTick),
		errors.Is(err, game.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrOutOfTurn),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, sessions.ErrNotFinished),
		errors.Is(err, sessions.ErrSubmitted),
		errors.Is(err, analytics.ErrContention):
		return http.StatusConflict
	case errors.Is(err, sessions.ErrClosed):
		return http.StatusGone
	case errors.Is(err, kv.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	switch {
	case errors.Is(err, leaderboard.ErrSubmissionFailed):
		resp = errorResponse{Error: "couldn't save your score, try again", Retry: true}
		log.Printf("[HTTP] submission failed: %v\n", err)
	case status == http.StatusInternalServerError:
		resp.Error = "internal error"
		log.Printf("[HTTP] %v\n", err)
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
	DB     string `json:"db"`
}

// handleHealth reports 503 only when a configured dependency is failing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Redis: "disabled", DB: "disabled"}
	status := http.StatusOK

	if s.KV.Available() {
		resp.Redis = "ok"
		if err := s.KV.Ping(ctx); err != nil {
			resp.Redis = "error: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	if s.DB != nil {
		resp.DB = "ok"
		if err := s.DB.Ping(ctx); err != nil {
			resp.DB = "error: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
