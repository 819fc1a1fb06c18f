package analytics

import (
	"time"

	"jollofwars/internal/game"
)

// TeamTotals maps each team to the sum of every stored entry's score.
type TeamTotals map[game.Team]int

// PlayerStats are a player's lifetime totals across finished games.
type PlayerStats struct {
	TotalScore   int       `json:"totalScore"`
	HighScore    int       `json:"highScore"`
	GamesPlayed  int       `json:"gamesPlayed"`
	LastGameDate time.Time `json:"lastGameDate"`
	LastTeam     game.Team `json:"lastTeam,omitempty"`
}

// RankedEntry is a leaderboard entry with its 1-based display rank.
type RankedEntry struct {
	Rank int `json:"rank"`
	Entry
}
