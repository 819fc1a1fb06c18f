package server

import (
	"net/http"

	"jollofwars/internal/game"
)

func (s *Server) handleLoadGameState(w http.ResponseWriter, r *http.Request) {
	st := s.GameState.Load(r.Context(), game.NewState(s.GameConfig), r.URL.Query().Get("userId"))
	writeJSON(w, http.StatusOK, st.Persisted())
}

func (s *Server) handleSaveGameState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State  *game.Persisted `json:"state"`
		UserID string          `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.State == nil {
		writeError(w, badRequest("missing state in request body"))
		return
	}
	if req.State.Team != game.TeamNone && !req.State.Team.Valid() {
		writeError(w, game.ErrInvalidTeam)
		return
	}

	st := game.NewState(s.GameConfig)
	st.Team = req.State.Team
	st.TutorialComplete = req.State.TutorialComplete
	st.PlayerStats = req.State.PlayerStats
	if err := s.GameState.Save(r.Context(), st, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleClearGameState(w http.ResponseWriter, r *http.Request) {
	if err := s.GameState.Clear(r.Context(), r.URL.Query().Get("userId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
