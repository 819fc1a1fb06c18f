package analytics

import (
	"context"
	"fmt"
	"log"
	"time"
)

type RebuildReport struct {
	EntriesProcessed int
	PlayersUpdated   int
}

// StatsFromEntries folds leaderboard entries into lifetime stats keyed by the
// player's identity, or by name for anonymous entries.
func StatsFromEntries(entries []Entry) map[string]PlayerStats {
	out := make(map[string]PlayerStats)
	for _, e := range entries {
		id := e.PlayerIdentity
		if id == "" {
			id = e.PlayerName
		}
		if id == "" {
			continue
		}
		st, ok := out[id]
		if !ok {
			st.LastGameDate = time.UnixMilli(0).UTC()
		}
		st.TotalScore += e.Score
		st.HighScore = max(st.HighScore, e.Score)
		st.GamesPlayed++
		if played := time.UnixMilli(e.Timestamp).UTC(); played.After(st.LastGameDate) {
			st.LastGameDate = played
			st.LastTeam = e.Team
		}
		out[id] = st
	}
	return out
}

// RebuildStats recomputes every player's stats from the stored leaderboard and
// overwrites their records. It reads the store directly, bypassing the cache.
func (s *Service) RebuildStats(ctx context.Context) (RebuildReport, error) {
	entries, err := s.board.List(ctx)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("listing leaderboard: %w", err)
	}
	stats := StatsFromEntries(entries)
	for id, st := range stats {
		if err := s.stats.Put(ctx, id, st); err != nil {
			return RebuildReport{}, err
		}
		log.Printf("[Stats] rebuilt %s: %d games, total %d\n", id, st.GamesPlayed, st.TotalScore)
	}
	return RebuildReport{EntriesProcessed: len(entries), PlayersUpdated: len(stats)}, nil
}
