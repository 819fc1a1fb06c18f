package db

import (
	"context"
	"os"
	"testing"
	"time"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		// Clean up test data
		database.conn.Exec("DELETE FROM action_events")
		database.conn.Exec("DELETE FROM games")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	database := getTestDB(t)

	// Verify tables exist by querying them
	tables := []string{"games", "action_events"}
	for _, table := range tables {
		var exists bool
		err := database.conn.QueryRow(`
			SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)
		`, table).Scan(&exists)
		if err != nil {
			t.Errorf("checking table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s does not exist", table)
		}
	}

	// Migrations run on every start
	if err := database.Migrate(); err != nil {
		t.Errorf("second Migrate() error: %v", err)
	}
}

func TestRecordGame_OneRowPerRound(t *testing.T) {
	database := getTestDB(t)
	ctx := context.Background()

	started := time.Now().Add(-40 * time.Second)
	first := GameRecord{
		RoundID:          "round-1",
		SessionID:        "session-1",
		PlayerID:         "42",
		Team:             "ghana",
		BaseScore:        800,
		TimingBonus:      800,
		ComboBonus:       360,
		TotalScore:       1960,
		CompletedActions: 8,
		LongestCombo:     8,
		StartedAt:        &started,
		EndedAt:          time.Now().Add(-time.Minute),
	}
	id, err := database.RecordGame(ctx, first)
	if err != nil {
		t.Fatalf("RecordGame() error: %v", err)
	}
	if id == "" {
		t.Error("RecordGame() returned empty ID")
	}

	// A second round in the same session keeps the first one.
	second := first
	second.RoundID = "round-2"
	second.TotalScore = 500
	second.EndedAt = time.Now()
	if _, err := database.RecordGame(ctx, second); err != nil {
		t.Fatalf("RecordGame() second round error: %v", err)
	}

	if _, err := database.RecordGame(ctx, second); err == nil {
		t.Error("RecordGame() accepted the same round twice")
	}

	games, err := database.RecentGames(ctx, "42", 10)
	if err != nil {
		t.Fatalf("RecentGames() error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len = %d, want 2", len(games))
	}
	if games[0].RoundID != "round-2" || games[1].RoundID != "round-1" || games[1].TotalScore != 1960 {
		t.Errorf("RecentGames() = %+v, want round-2 then round-1", games)
	}
}

func TestRecentGames_Empty(t *testing.T) {
	database := getTestDB(t)
	games, err := database.RecentGames(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatalf("RecentGames() error: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("len = %d, want 0", len(games))
	}
}

func TestBatchRecordActions(t *testing.T) {
	database := getTestDB(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := database.RecordGame(ctx, GameRecord{RoundID: "round-3", SessionID: "session-2", PlayerID: "7", Team: "nigeria", EndedAt: now}); err != nil {
		t.Fatalf("RecordGame() error: %v", err)
	}
	events := []ActionEvent{
		{SessionID: "session-2", RoundID: "round-3", ActionIndex: 0, Kind: "tap", Target: "rice", Success: true, TimingMs: 100, Combo: 1, OccurredAt: now},
		{SessionID: "session-2", RoundID: "round-3", ActionIndex: 1, Kind: "tap", Target: "tomato", Success: false, TimingMs: 900, Combo: 0, OccurredAt: now},
		{SessionID: "session-2", RoundID: "round-3", ActionIndex: 1, Kind: "tap", Target: "tomato", Success: true, TimingMs: 250, Combo: 1, OccurredAt: now},
		{SessionID: "session-2", RoundID: "round-4", ActionIndex: 0, Kind: "tap", Target: "rice", Success: true, TimingMs: 100, Combo: 1, OccurredAt: now},
	}

	if err := database.BatchRecordActions(ctx, events); err != nil {
		t.Fatalf("BatchRecordActions() error: %v", err)
	}

	games, err := database.RecentGames(ctx, "7", 5)
	if err != nil {
		t.Fatalf("RecentGames() error: %v", err)
	}
	if len(games) != 1 || games[0].ActionEvents != 3 {
		t.Errorf("RecentGames() = %+v, want one round with 3 action events", games)
	}
}
