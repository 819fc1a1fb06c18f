package server

import (
	"context"
	"errors"
	"log"
	"time"

	"jollofwars/internal/db"
	"jollofwars/internal/events"
	"jollofwars/internal/kv"
	"jollofwars/internal/sessions"
)

// finishGame runs when a session reaches results: it announces the game,
// folds it into the player's lifetime stats and archives it.
func (s *Server) finishGame(f sessions.Finished) {
	st := f.State
	s.Bus.PublishFinish(events.GameFinished{SessionID: f.SessionID, Team: st.Team, Score: st.DisplayTotal()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if f.PlayerID != "" {
		if _, err := s.Analytics.RecordGame(ctx, f.PlayerID, st.DisplayTotal(), st.Team); err != nil && !errors.Is(err, kv.ErrUnavailable) {
			log.Printf("[Stats] recording %s for %s failed: %v\n", f.SessionID, f.PlayerID, err)
		}
	}

	if s.DB == nil {
		return
	}
	rec := db.GameRecord{
		RoundID:          f.RoundID,
		SessionID:        f.SessionID,
		PlayerID:         f.PlayerID,
		Team:             string(st.Team),
		BaseScore:        st.Score.Base,
		TimingBonus:      st.Score.TimingBonus,
		ComboBonus:       st.Score.ComboBonus,
		AccuracyPenalty:  st.Score.AccuracyPenalty,
		TotalScore:       st.Score.Total,
		CompletedActions: st.CompletedActions,
		LongestCombo:     st.PlayerStats.LongestCombo,
		EndedAt:          f.EndedAt,
	}
	if !f.StartedAt.IsZero() {
		started := f.StartedAt
		rec.StartedAt = &started
	}
	if _, err := s.DB.RecordGame(ctx, rec); err != nil {
		log.Printf("[DB] RecordGame error: %v\n", err)
	}
}

// recordAction hands an action to the batch writer without blocking the session.
func (s *Server) recordAction(a sessions.ActionRecord) {
	if s.ActionBuffer == nil {
		return
	}
	ev := db.ActionEvent{
		SessionID:   a.SessionID,
		RoundID:     a.RoundID,
		PlayerID:    a.PlayerID,
		ActionIndex: a.ActionIndex,
		Kind:        string(a.Kind),
		Target:      a.Target,
		Success:     a.Success,
		TimingMs:    a.TimingMs,
		Combo:       a.Combo,
		OccurredAt:  a.At,
	}
	select {
	case s.ActionBuffer <- ev:
	default:
		log.Printf("[DB] action buffer full, dropped event for %s\n", a.SessionID)
	}
}
