package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jollofwars/internal/leaderboard"
)

const defaultTopLimit = 10

func (s *Server) handleListLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Analytics.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var sub leaderboard.Submission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.Analytics.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleTopPlayers serves the ranking with one entry per player.
func (s *Server) handleTopPlayers(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, badRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	top, err := s.Analytics.Top(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

type userScoreResponse struct {
	Entry *leaderboard.Entry `json:"entry"`
	Rank  int                `json:"rank,omitempty"`
}

func (s *Server) handleUserScore(w http.ResponseWriter, r *http.Request) {
	fid := r.URL.Query().Get("fid")
	if fid == "" {
		writeError(w, badRequest("missing fid parameter"))
		return
	}
	best, err := s.Analytics.BestFor(r.Context(), fid)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := userScoreResponse{Entry: best}
	if best != nil {
		top, err := s.Analytics.Top(r.Context(), 0)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, e := range top {
			if e.PlayerIdentity == fid {
				resp.Rank = e.Rank
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTeamStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.Analytics.TeamTotals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleLeaderboardEvents streams new submissions and finished games as
// server-sent events.
func (s *Server) handleLeaderboardEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	msgChan := s.Feed.Subscribe()
	defer s.Feed.Unsubscribe(msgChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}
