package analytics

import (
	"testing"
	"time"

	"jollofwars/internal/game"
)

func entry(id, name, fid string, score int, team game.Team) Entry {
	return Entry{ID: id, PlayerName: name, PlayerIdentity: fid, Score: score, Team: team, Timestamp: 1}
}

func TestSumByTeam(t *testing.T) {
	entries := []Entry{
		entry("1", "Ama", "42", 500, game.TeamGhana),
		entry("2", "Ama", "42", 700, game.TeamGhana),
		entry("3", "Chidi", "", 300, game.TeamNigeria),
		entry("4", "Bad", "", 999, "togo"),
	}
	got := SumByTeam(entries)
	if got[game.TeamGhana] != 1200 {
		t.Errorf("ghana = %d, want 1200 (not deduplicated)", got[game.TeamGhana])
	}
	if got[game.TeamNigeria] != 300 {
		t.Errorf("nigeria = %d, want 300", got[game.TeamNigeria])
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestSumByTeam_EmptyHasBothTeams(t *testing.T) {
	got := SumByTeam(nil)
	for _, team := range game.Teams {
		if v, ok := got[team]; !ok || v != 0 {
			t.Errorf("%s = %d (present %v), want 0", team, v, ok)
		}
	}
}

func TestDeduplicateByPlayer(t *testing.T) {
	entries := []Entry{
		entry("1", "Ama", "42", 500, game.TeamGhana),
		entry("2", "Kofi", "", 800, game.TeamGhana),
		entry("3", "Ama again", "42", 1100, game.TeamGhana),
		entry("4", "Kofi", "", 200, game.TeamGhana),
		entry("5", "42", "", 400, game.TeamNigeria),
		entry("6", "Ama", "42", 900, game.TeamGhana),
	}
	got := DeduplicateByPlayer(entries)

	want := []string{"3", "2", "5"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("got[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}

	seen := map[string]bool{}
	for _, e := range got {
		if seen[e.PlayerKey()] {
			t.Errorf("player %s appears twice", e.PlayerKey())
		}
		seen[e.PlayerKey()] = true
	}
}

func TestDeduplicateByPlayer_KeepsEarlierOnTie(t *testing.T) {
	entries := []Entry{
		entry("1", "Efe", "", 600, game.TeamNigeria),
		entry("2", "Efe", "", 600, game.TeamNigeria),
	}
	got := DeduplicateByPlayer(entries)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("DeduplicateByPlayer() = %+v, want entry 1", got)
	}
}

func TestRank(t *testing.T) {
	entries := []Entry{
		entry("a", "A", "", 3, game.TeamGhana),
		entry("b", "B", "", 2, game.TeamGhana),
		entry("c", "C", "", 1, game.TeamGhana),
	}
	got := Rank(entries, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Rank != 1 || got[1].Rank != 2 || got[1].ID != "b" {
		t.Errorf("Rank() = %+v", got)
	}
	if all := Rank(entries, 0); len(all) != 3 {
		t.Errorf("Rank(limit 0) len = %d, want 3", len(all))
	}
}

func TestStatsFromEntries(t *testing.T) {
	entries := []Entry{
		{ID: "1", PlayerName: "Ama", PlayerIdentity: "42", Score: 500, Team: game.TeamGhana, Timestamp: 1000},
		{ID: "2", PlayerName: "Ama", PlayerIdentity: "42", Score: 900, Team: game.TeamNigeria, Timestamp: 3000},
		{ID: "3", PlayerName: "Ama", PlayerIdentity: "42", Score: 100, Team: game.TeamGhana, Timestamp: 2000},
		{ID: "4", PlayerName: "Kofi", Score: 50, Team: game.TeamGhana, Timestamp: 500},
	}
	got := StatsFromEntries(entries)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	ama := got["42"]
	if ama.TotalScore != 1500 || ama.HighScore != 900 || ama.GamesPlayed != 3 {
		t.Errorf("42 = %+v, want total 1500 high 900 games 3", ama)
	}
	if !ama.LastGameDate.Equal(time.UnixMilli(3000)) || ama.LastTeam != game.TeamNigeria {
		t.Errorf("42 last game = %v %s, want 3000ms nigeria", ama.LastGameDate, ama.LastTeam)
	}
	if kofi := got["Kofi"]; kofi.GamesPlayed != 1 || kofi.TotalScore != 50 {
		t.Errorf("Kofi = %+v", kofi)
	}
}
