package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jollofwars/internal/game"
	"jollofwars/internal/kv"
)

func newTestClient(t *testing.T) (*kv.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return kv.New(rdb, 2*time.Second), mr
}

var fixedNow = time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)

func newTestStats(t *testing.T) (*StatsStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestClient(t)
	s := NewStatsStore(client)
	s.now = func() time.Time { return fixedNow }
	return s, mr
}

func TestStatsGet_Defaults(t *testing.T) {
	s, _ := newTestStats(t)
	got, err := s.Get(context.Background(), "new-player")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := PlayerStats{LastGameDate: fixedNow}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestStatsGet_Lenient(t *testing.T) {
	s, mr := newTestStats(t)
	mr.HSet(StatsKey("p"), "totalScore", "abc", "highScore", "900", "gamesPlayed", "3", "lastGameDate", "yesterday")

	got, err := s.Get(context.Background(), "p")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.TotalScore != 0 || got.HighScore != 900 || got.GamesPlayed != 3 {
		t.Errorf("Get() = %+v", got)
	}
	if !got.LastGameDate.Equal(fixedNow) {
		t.Errorf("LastGameDate = %v, want %v", got.LastGameDate, fixedNow)
	}
}

func TestStatsRecord_Accumulates(t *testing.T) {
	s, _ := newTestStats(t)
	ctx := context.Background()

	for _, score := range []int{500, 1200, 300} {
		if _, err := s.Record(ctx, "p", score, game.TeamGhana); err != nil {
			t.Fatalf("Record(%d) error: %v", score, err)
		}
	}
	got, err := s.Record(ctx, "p", 0, game.TeamNigeria)
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	want := PlayerStats{TotalScore: 2000, HighScore: 1200, GamesPlayed: 4, LastGameDate: fixedNow, LastTeam: game.TeamNigeria}
	if got != want {
		t.Errorf("Record() = %+v, want %+v", got, want)
	}

	read, err := s.Get(ctx, "p")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if read != want {
		t.Errorf("Get() = %+v, want %+v", read, want)
	}
}

func TestStatsRecord_FirstGameSetsHighScore(t *testing.T) {
	s, mr := newTestStats(t)
	if _, err := s.Record(context.Background(), "p", 0, game.TeamGhana); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if got := mr.HGet(StatsKey("p"), "highScore"); got != "0" {
		t.Errorf("highScore field = %q, want %q", got, "0")
	}
}

func TestStatsRecord_ConcurrentNoLostUpdates(t *testing.T) {
	s, _ := newTestStats(t)
	ctx := context.Background()

	const games = 8
	var wg sync.WaitGroup
	errs := make(chan error, games)
	for i := 1; i <= games; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			if _, err := s.Record(ctx, "p", score, game.TeamGhana); err != nil {
				errs <- err
			}
		}(i * 100)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Record() error: %v", err)
	}

	got, err := s.Get(ctx, "p")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.GamesPlayed != games {
		t.Errorf("GamesPlayed = %d, want %d", got.GamesPlayed, games)
	}
	if got.TotalScore != 3600 {
		t.Errorf("TotalScore = %d, want 3600", got.TotalScore)
	}
	if got.HighScore != 800 {
		t.Errorf("HighScore = %d, want 800", got.HighScore)
	}
}

func TestStats_Unavailable(t *testing.T) {
	s := NewStatsStore(nil)
	if _, err := s.Get(context.Background(), "p"); !errors.Is(err, kv.ErrUnavailable) {
		t.Errorf("Get() = %v, want %v", err, kv.ErrUnavailable)
	}
	if _, err := s.Record(context.Background(), "p", 1, game.TeamGhana); !errors.Is(err, kv.ErrUnavailable) {
		t.Errorf("Record() = %v, want %v", err, kv.ErrUnavailable)
	}
}
