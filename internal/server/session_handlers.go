package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"jollofwars/internal/game"
	"jollofwars/internal/sessions"
	"jollofwars/internal/wshub"
)

type sessionResponse struct {
	ID       string     `json:"id"`
	PlayerID string     `json:"playerId,omitempty"`
	Version  int        `json:"version"`
	State    game.State `json:"state"`
	Accuracy float64    `json:"accuracy"`
}

func snapshot(sess *sessions.Session) sessionResponse {
	st, v := sess.Snapshot()
	return sessionResponse{ID: sess.ID, PlayerID: sess.PlayerID, Version: v, State: st, Accuracy: st.Accuracy()}
}

// eventRequest is the wire form of a session event, shared by the HTTP and
// websocket transports.
type eventRequest struct {
	Type    string  `json:"type"`
	Team    string  `json:"team,omitempty"`
	Delta   float64 `json:"delta,omitempty"`
	Success bool    `json:"success,omitempty"`
	Timing  int     `json:"timing,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Value   string  `json:"value,omitempty"`
}

func (req eventRequest) toEvent() (game.Event, error) {
	switch req.Type {
	case "select_team":
		return game.SelectTeam{Team: game.Team(req.Team)}, nil
	case "start_game":
		return game.StartGame{}, nil
	case "begin_playing":
		return game.BeginPlaying{}, nil
	case "skip_tutorial":
		return game.SkipTutorial{}, nil
	case "tick":
		return game.Tick{Delta: req.Delta}, nil
	case "perform_action":
		return game.PerformAction{Kind: game.ActionKind(req.Kind), Value: req.Value}, nil
	case "complete_action":
		return game.CompleteAction{Success: req.Success, Timing: req.Timing}, nil
	case "end_game":
		return game.EndGame{}, nil
	case "reset_game":
		return game.ResetGame{}, nil
	}
	return nil, badRequest("unknown event type %q", req.Type)
}

func (s *Server) session(r *http.Request) (*sessions.Session, error) {
	return s.Sessions.Get(chi.URLParam(r, "id"))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	sess, err := s.Sessions.Create(r.Context(), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess))
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.Apply(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess))
}

func (s *Server) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		PlayerName string `json:"playerName"`
		Identity   string `json:"fid"`
		IsVerified bool   `json:"isVerifiedUser"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, release, err := sess.Claim(req.PlayerName, req.Identity, req.IsVerified)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.Analytics.Submit(r.Context(), sub)
	if err != nil {
		release()
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	client := &wshub.Client{ID: uuid.NewString(), Conn: conn, Send: make(chan []byte, 16)}
	if !sess.Hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}
	defer sess.Hub.Unregister(client.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.WritePump(ctx)

	st, v := sess.Snapshot()
	sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "state", Version: v, State: st})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req eventRequest
		if err := json.Unmarshal(data, &req); err != nil {
			sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "error", Error: "bad json"})
			continue
		}
		ev, err := req.toEvent()
		if err != nil {
			sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "error", Error: err.Error()})
			continue
		}
		if _, err := sess.Apply(ctx, ev); err != nil {
			if errors.Is(err, sessions.ErrClosed) {
				return
			}
			sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: "error", Error: err.Error()})
		}
	}
}
