package analytics

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"jollofwars/internal/events"
	"jollofwars/internal/game"
	"jollofwars/internal/kv"
	"jollofwars/internal/leaderboard"
	"jollofwars/internal/metrics"
)

const (
	DefaultListTTL = 5 * time.Minute
	DefaultBestTTL = time.Minute

	listKey = "all"
)

type Options struct {
	ListTTL time.Duration
	BestTTL time.Duration
	Bus     *events.Bus
}

// bestScore caches a lookup result, including "no entry".
type bestScore struct {
	entry *Entry
}

// Service sits in front of the leaderboard and stats stores. Listings and
// best-score lookups are cached in process; a successful submission drops the
// listing and the submitter's best score.
type Service struct {
	board *leaderboard.Store
	stats *StatsStore
	bus   *events.Bus

	lists *ttlcache.Cache[string, []Entry]
	best  *ttlcache.Cache[string, bestScore]

	// gen counts invalidations. A cache fill that started under an older
	// generation is dropped.
	mu  sync.Mutex
	gen uint64
}

func NewService(client *kv.Client, opts Options) *Service {
	if opts.ListTTL <= 0 {
		opts.ListTTL = DefaultListTTL
	}
	if opts.BestTTL <= 0 {
		opts.BestTTL = DefaultBestTTL
	}
	return &Service{
		board: leaderboard.New(client),
		stats: NewStatsStore(client),
		bus:   opts.Bus,
		lists: ttlcache.New(
			ttlcache.WithTTL[string, []Entry](opts.ListTTL),
			ttlcache.WithDisableTouchOnHit[string, []Entry](),
		),
		best: ttlcache.New(
			ttlcache.WithTTL[string, bestScore](opts.BestTTL),
			ttlcache.WithDisableTouchOnHit[string, bestScore](),
		),
	}
}

// Start runs the caches' expiry loops until Stop is called.
func (s *Service) Start() {
	go s.lists.Start()
	go s.best.Start()
}

func (s *Service) Stop() {
	s.lists.Stop()
	s.best.Stop()
}

func (s *Service) Submit(ctx context.Context, sub leaderboard.Submission) (Entry, error) {
	e, err := s.board.Submit(ctx, sub)
	switch {
	case errors.Is(err, leaderboard.ErrInvalidEntry):
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return e, err
	case err != nil:
		metrics.Submissions.WithLabelValues("failed").Inc()
		return e, err
	}
	metrics.Submissions.WithLabelValues("ok").Inc()

	s.invalidate(func() {
		s.lists.Delete(listKey)
		if e.PlayerIdentity != "" {
			s.best.Delete(e.PlayerIdentity)
		}
	})
	if !s.bus.PublishSubmission(e) && s.bus != nil {
		log.Printf("[Leaderboard] live feed full, dropped %s\n", e.ID)
	}
	log.Printf("[Leaderboard] %s scored %d for %s (%s)\n", e.PlayerName, e.Score, e.Team, e.ID)
	return e, nil
}

// Leaderboard returns every entry, highest score first. An unavailable store
// yields an empty listing.
func (s *Service) Leaderboard(ctx context.Context) ([]Entry, error) {
	if item := s.lists.Get(listKey); item != nil {
		metrics.CacheRequests.WithLabelValues("leaderboard", "hit").Inc()
		return item.Value(), nil
	}
	metrics.CacheRequests.WithLabelValues("leaderboard", "miss").Inc()

	gen := s.generation()
	entries, err := s.board.List(ctx)
	if errors.Is(err, kv.ErrUnavailable) {
		log.Println("[Leaderboard] store unavailable, serving empty listing")
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.lists.Set(listKey, entries, ttlcache.DefaultTTL) })
	return entries, nil
}

// Top returns the deduplicated ranking, one entry per player.
func (s *Service) Top(ctx context.Context, limit int) ([]RankedEntry, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(DeduplicateByPlayer(entries), limit), nil
}

func (s *Service) TeamTotals(ctx context.Context) (TeamTotals, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return SumByTeam(entries), nil
}

// BestFor returns identity's best entry, or nil when it has none.
func (s *Service) BestFor(ctx context.Context, identity string) (*Entry, error) {
	if item := s.best.Get(identity); item != nil {
		metrics.CacheRequests.WithLabelValues("best", "hit").Inc()
		return item.Value().entry, nil
	}
	metrics.CacheRequests.WithLabelValues("best", "miss").Inc()

	gen := s.generation()
	e, err := s.board.BestFor(ctx, identity)
	if errors.Is(err, kv.ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.best.Set(identity, bestScore{entry: e}, ttlcache.DefaultTTL) })
	return e, nil
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Service) invalidate(drop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	drop()
}

// fill runs set only if nothing was invalidated since gen was read.
func (s *Service) fill(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		set()
	}
}

// GetStats returns zeroed stats when the store is down.
func (s *Service) GetStats(ctx context.Context, playerID string) (PlayerStats, error) {
	st, err := s.stats.Get(ctx, playerID)
	if errors.Is(err, kv.ErrUnavailable) {
		return st, nil
	}
	return st, err
}

func (s *Service) RecordGame(ctx context.Context, playerID string, score int, team game.Team) (PlayerStats, error) {
	st, err := s.stats.Record(ctx, playerID, score, team)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("record_game").Inc()
		return st, err
	}
	log.Printf("[Stats] %s: %d games, high score %d\n", playerID, st.GamesPlayed, st.HighScore)
	return st, nil
}

// Clear wipes the leaderboard and both caches.
func (s *Service) Clear(ctx context.Context) error {
	err := s.board.Clear(ctx)
	s.invalidate(func() {
		s.lists.DeleteAll()
		s.best.DeleteAll()
	})
	return err
}
