package server

import (
	"net/http"
	"strconv"
	"time"

	"jollofwars/internal/db"
	"jollofwars/internal/game"
	"jollofwars/internal/kv"
)

func (s *Server) handleGetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeError(w, badRequest("missing playerId parameter"))
		return
	}
	st, err := s.Analytics.GetStats(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecordPlayerStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string    `json:"playerId"`
		Score    *int      `json:"score"`
		Team     game.Team `json:"team"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerID == "" || req.Score == nil {
		writeError(w, badRequest("missing required fields (playerId, score)"))
		return
	}
	if *req.Score < 0 {
		writeError(w, badRequest("score must not be negative"))
		return
	}
	if req.Team != game.TeamNone && !req.Team.Valid() {
		writeError(w, game.ErrInvalidTeam)
		return
	}
	st, err := s.Analytics.RecordGame(r.Context(), req.PlayerID, *req.Score, req.Team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePlayerGames lists archived games; it needs the database.
func (s *Server) handlePlayerGames(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, kv.ErrUnavailable)
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeError(w, badRequest("missing playerId parameter"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, 100)
	}
	games, err := s.DB.RecentGames(r.Context(), playerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponses(games))
}

type gameResponse struct {
	RoundID          string    `json:"roundId"`
	SessionID        string    `json:"sessionId"`
	Team             string    `json:"team"`
	TotalScore       int       `json:"totalScore"`
	CompletedActions int       `json:"completedActions"`
	LongestCombo     int       `json:"longestCombo"`
	ActionEvents     int       `json:"actionEvents"`
	EndedAt          time.Time `json:"endedAt"`
}

func toGameResponses(games []db.GameRecord) []gameResponse {
	out := make([]gameResponse, len(games))
	for i, g := range games {
		out[i] = gameResponse{
			RoundID:          g.RoundID,
			SessionID:        g.SessionID,
			Team:             g.Team,
			TotalScore:       g.TotalScore,
			CompletedActions: g.CompletedActions,
			LongestCombo:     g.LongestCombo,
			ActionEvents:     g.ActionEvents,
			EndedAt:          g.EndedAt,
		}
	}
	return out
}
