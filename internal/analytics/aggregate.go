package analytics

import (
	"jollofwars/internal/game"
	"jollofwars/internal/leaderboard"
)

type Entry = leaderboard.Entry

// SumByTeam totals scores per team over the full listing. Entries are not
// deduplicated: every submission counts toward its team.
func SumByTeam(entries []Entry) TeamTotals {
	totals := make(TeamTotals, len(game.Teams))
	for _, t := range game.Teams {
		totals[t] = 0
	}
	for _, e := range entries {
		if e.Team.Valid() {
			totals[e.Team] += e.Score
		}
	}
	return totals
}

// DeduplicateByPlayer keeps the highest-scoring entry per player key and
// returns the survivors in leaderboard order. On equal scores the entry seen
// first is kept.
func DeduplicateByPlayer(entries []Entry) []Entry {
	best := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := e.PlayerKey()
		i, seen := best[key]
		if !seen {
			best[key] = len(out)
			out = append(out, e)
			continue
		}
		if e.Score > out[i].Score {
			out[i] = e
		}
	}
	leaderboard.SortEntries(out)
	return out
}

// Rank numbers entries from 1 and truncates to limit when limit is positive.
func Rank(entries []Entry, limit int) []RankedEntry {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	ranked := make([]RankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = RankedEntry{Rank: i + 1, Entry: e}
	}
	return ranked
}
