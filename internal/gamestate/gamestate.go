package gamestate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"jollofwars/internal/game"
	"jollofwars/internal/kv"
	"jollofwars/internal/metrics"
)

const (
	GeneralKey    = "jollof_wars:game_state"
	UserKeyPrefix = "jollof_wars:user_state:"

	UserStateTTL = 30 * 24 * time.Hour
)

const (
	fieldTeam     = "team"
	fieldStats    = "playerStats"
	fieldTutorial = "tutorialComplete"
)

// Gateway mirrors the persisted projection of a session (team, lifetime stats,
// tutorial flag) to the store. Transient round state is never written.
type Gateway struct {
	kv *kv.Client
}

func New(client *kv.Client) *Gateway {
	return &Gateway{kv: client}
}

func UserKey(playerID string) string {
	return UserKeyPrefix + playerID
}

func keyFor(playerID string) string {
	if playerID != "" {
		return UserKey(playerID)
	}
	return GeneralKey
}

// Save writes the projection to the per-player record when playerID is set,
// refreshing its expiry, and to the general record otherwise.
func (g *Gateway) Save(ctx context.Context, state game.State, playerID string) error {
	fields, err := encode(state.Persisted())
	if err != nil {
		return fmt.Errorf("encoding game state: %w", err)
	}
	key := keyFor(playerID)
	_, err = g.kv.Atomic(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		if playerID != "" {
			p.Expire(ctx, key, UserStateTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving game state: %w", err)
	}
	return nil
}

// SaveAsync runs Save in the background and only logs failures. The write is
// detached from the caller's lifetime so an abandoned session still lands.
func (g *Gateway) SaveAsync(state game.State, playerID string) {
	go func() {
		if err := g.Save(context.Background(), state, playerID); err != nil {
			metrics.StoreErrors.WithLabelValues("save_state").Inc()
			log.Printf("[GameState] save failed (player=%q): %v\n", playerID, err)
		}
	}()
}

// Load merges the stored projection onto def. The per-player record wins when it
// exists; otherwise the general record is used. Store failures return def as is.
func (g *Gateway) Load(ctx context.Context, def game.State, playerID string) game.State {
	keys := []string{GeneralKey}
	if playerID != "" {
		keys = []string{UserKey(playerID), GeneralKey}
	}

	hashes, err := g.kv.HGetAllBatch(ctx, keys)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("load_state").Inc()
		log.Printf("[GameState] load failed (player=%q): %v\n", playerID, err)
		return def
	}
	for _, h := range hashes {
		if h.Err != nil {
			metrics.StoreErrors.WithLabelValues("load_state").Inc()
			log.Printf("[GameState] load %s failed: %v\n", h.Key, h.Err)
			return def
		}
		if h.Missing() {
			continue
		}
		return merge(def, h.Fields)
	}
	return def
}

// Clear removes the per-player record, or the general record when playerID is empty.
func (g *Gateway) Clear(ctx context.Context, playerID string) error {
	if !g.kv.Available() {
		return kv.ErrUnavailable
	}
	ctx, cancel := g.kv.Bound(ctx)
	defer cancel()
	if err := g.kv.Redis().Del(ctx, keyFor(playerID)).Err(); err != nil {
		return fmt.Errorf("clearing game state: %w", err)
	}
	return nil
}

func encode(p game.Persisted) (map[string]any, error) {
	stats := p.PlayerStats
	if stats.Badges == nil {
		stats.Badges = []string{}
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	tutorial := "false"
	if p.TutorialComplete {
		tutorial = "true"
	}
	return map[string]any{
		fieldTeam:     string(p.Team),
		fieldStats:    string(raw),
		fieldTutorial: tutorial,
	}, nil
}

// merge applies each stored field independently; a malformed field keeps the default.
func merge(def game.State, fields map[string]string) game.State {
	out := def

	if raw, ok := fields[fieldTeam]; ok && raw != "" {
		if team, ok := game.ParseTeam(raw); ok {
			out.Team = team
		} else {
			log.Printf("[GameState] ignoring unknown team %q\n", raw)
		}
	}

	if raw, ok := fields[fieldStats]; ok && raw != "" {
		var stats game.PlayerStats
		if err := json.Unmarshal([]byte(raw), &stats); err != nil {
			log.Printf("[GameState] ignoring malformed playerStats: %v\n", err)
		} else {
			if stats.Badges == nil {
				stats.Badges = []string{}
			}
			out.PlayerStats = stats
		}
	}

	if fields[fieldTutorial] == "true" {
		out.TutorialComplete = true
	}
	return out
}
