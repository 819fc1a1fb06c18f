package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"jollofwars/internal/game"
	"jollofwars/internal/kv"
)

// ErrContention is returned when a stats update keeps losing its optimistic
// transaction to concurrent writers.
var ErrContention = errors.New("player stats contended")

const (
	StatsKeyPrefix = "jollof_wars:player_stats:"

	maxRecordAttempts = 10
)

func StatsKey(playerID string) string {
	return StatsKeyPrefix + playerID
}

// StatsStore keeps per-player lifetime totals in one hash per player.
type StatsStore struct {
	kv  *kv.Client
	now func() time.Time
}

func NewStatsStore(client *kv.Client) *StatsStore {
	return &StatsStore{kv: client, now: time.Now}
}

// Get returns the stored stats for playerID. A player with no record gets zero
// totals and the current time as last game date.
func (s *StatsStore) Get(ctx context.Context, playerID string) (PlayerStats, error) {
	if !s.kv.Available() {
		return s.defaults(), kv.ErrUnavailable
	}
	ctx, cancel := s.kv.Bound(ctx)
	defer cancel()

	fields, err := s.kv.Redis().HGetAll(ctx, StatsKey(playerID)).Result()
	if err != nil {
		return s.defaults(), fmt.Errorf("reading stats for %s: %w", playerID, err)
	}
	return s.parse(fields), nil
}

// Record adds one finished game to playerID's totals and returns the result.
// Increments use HINCRBY and the high score is only raised, all under WATCH,
// so concurrent games for the same player never lose an update.
func (s *StatsStore) Record(ctx context.Context, playerID string, score int, team game.Team) (PlayerStats, error) {
	if !s.kv.Available() {
		return s.defaults(), kv.ErrUnavailable
	}
	ctx, cancel := s.kv.Bound(ctx)
	defer cancel()

	key := StatsKey(playerID)
	var after *redis.MapStringStringCmd
	txn := func(tx *redis.Tx) error {
		high, err := tx.HGet(ctx, key, "highScore").Int()
		missing := errors.Is(err, redis.Nil)
		if err != nil && !missing {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HIncrBy(ctx, key, "totalScore", int64(score))
			p.HIncrBy(ctx, key, "gamesPlayed", 1)
			if missing || score > high {
				p.HSet(ctx, key, "highScore", score)
			}
			fields := []any{"lastGameDate", s.now().UTC().Format(time.RFC3339)}
			if team != game.TeamNone {
				fields = append(fields, "lastTeam", string(team))
			}
			p.HSet(ctx, key, fields...)
			after = p.HGetAll(ctx, key)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxRecordAttempts; attempt++ {
		err := s.kv.Redis().Watch(ctx, txn, key)
		if err == nil {
			return s.parse(after.Val()), nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return s.defaults(), fmt.Errorf("recording game for %s: %w", playerID, err)
		}
		log.Printf("[Stats] %s: transaction conflict, attempt %d\n", playerID, attempt)
	}
	return s.defaults(), fmt.Errorf("recording game for %s: %w", playerID, ErrContention)
}

// Put overwrites playerID's stats. Only the rebuild tool writes whole records.
func (s *StatsStore) Put(ctx context.Context, playerID string, st PlayerStats) error {
	if !s.kv.Available() {
		return kv.ErrUnavailable
	}
	ctx, cancel := s.kv.Bound(ctx)
	defer cancel()

	fields := []any{
		"totalScore", st.TotalScore,
		"highScore", st.HighScore,
		"gamesPlayed", st.GamesPlayed,
		"lastGameDate", st.LastGameDate.UTC().Format(time.RFC3339),
	}
	if st.LastTeam != game.TeamNone {
		fields = append(fields, "lastTeam", string(st.LastTeam))
	}
	if err := s.kv.Redis().HSet(ctx, StatsKey(playerID), fields...).Err(); err != nil {
		return fmt.Errorf("writing stats for %s: %w", playerID, err)
	}
	return nil
}

func (s *StatsStore) defaults() PlayerStats {
	return PlayerStats{LastGameDate: s.now().UTC()}
}

// parse is lenient: unreadable fields fall back to their defaults.
func (s *StatsStore) parse(f map[string]string) PlayerStats {
	st := s.defaults()
	st.TotalScore, _ = strconv.Atoi(f["totalScore"])
	st.HighScore, _ = strconv.Atoi(f["highScore"])
	st.GamesPlayed, _ = strconv.Atoi(f["gamesPlayed"])
	if t, err := time.Parse(time.RFC3339, f["lastGameDate"]); err == nil {
		st.LastGameDate = t
	}
	if team, ok := game.ParseTeam(f["lastTeam"]); ok {
		st.LastTeam = team
	}
	return st
}
