package db

import (
	"context"
	"fmt"
	"time"
)

// GameRecord is one finished round. A session plays any number of rounds.
type GameRecord struct {
	ID               string
	RoundID          string
	SessionID        string
	PlayerID         string
	Team             string
	BaseScore        int
	TimingBonus      int
	ComboBonus       int
	AccuracyPenalty  int
	TotalScore       int
	CompletedActions int
	LongestCombo     int
	StartedAt        *time.Time
	EndedAt          time.Time
	ActionEvents     int // filled by RecentGames
}

// RecordGame stores a finished round. Each round id is recorded once; a
// repeat is rejected by the unique constraint.
func (d *DB) RecordGame(ctx context.Context, g GameRecord) (string, error) {
	var id string
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO games (round_id, session_id, player_id, team, base_score, timing_bonus, combo_bonus,
			accuracy_penalty, total_score, completed_actions, longest_combo, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, g.RoundID, g.SessionID, g.PlayerID, g.Team, g.BaseScore, g.TimingBonus, g.ComboBonus,
		g.AccuracyPenalty, g.TotalScore, g.CompletedActions, g.LongestCombo, g.StartedAt, g.EndedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("recording game: %w", err)
	}
	return id, nil
}

// RecentGames returns playerID's latest finished rounds, newest first, with the
// number of action events archived for each.
func (d *DB) RecentGames(ctx context.Context, playerID string, limit int) ([]GameRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT g.id, g.round_id, g.session_id, g.player_id, g.team, g.base_score, g.timing_bonus,
			g.combo_bonus, g.accuracy_penalty, g.total_score, g.completed_actions, g.longest_combo,
			g.started_at, g.ended_at,
			(SELECT COUNT(*) FROM action_events a WHERE a.round_id = g.round_id)
		FROM games g
		WHERE g.player_id = $1
		ORDER BY g.ended_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	games := []GameRecord{}
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.ID, &g.RoundID, &g.SessionID, &g.PlayerID, &g.Team, &g.BaseScore,
			&g.TimingBonus, &g.ComboBonus, &g.AccuracyPenalty, &g.TotalScore, &g.CompletedActions,
			&g.LongestCombo, &g.StartedAt, &g.EndedAt, &g.ActionEvents); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
