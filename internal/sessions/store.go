package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jollofwars/internal/game"
	"jollofwars/internal/gamestate"
	"jollofwars/internal/metrics"
)

const (
	DefaultIdleTTL = 1 * time.Hour

	sweepInterval = 5 * time.Minute
)

type Options struct {
	Config game.Config
	// TickInterval drives the server-side clock; zero leaves timing to clients.
	TickInterval time.Duration
	IdleTTL      time.Duration
	OnAction     func(ActionRecord)
	OnFinish     func(Finished)

	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	gateway  *gamestate.Gateway
	opts     Options
}

func NewStore(gateway *gamestate.Gateway, opts Options) *Store {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Config == (game.Config{}) {
		opts.Config = game.DefaultConfig()
	}
	return &Store{
		sessions: make(map[string]*Session),
		gateway:  gateway,
		opts:     opts,
	}
}

// Create starts a session for playerID seeded with its persisted state.
// playerID may be empty for anonymous play.
func (s *Store) Create(ctx context.Context, playerID string) (*Session, error) {
	initial := game.NewState(s.opts.Config)
	if s.gateway != nil {
		loaded := s.gateway.Load(ctx, initial, playerID)
		initial = game.Reduce(initial, game.LoadState{State: loaded})
	}

	sess := newSession(uuid.NewString(), playerID, initial, s.gateway, s.opts)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	log.Printf("[Session] %s created (player=%q)\n", sess.ID, playerID)
	return sess, nil
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sess.Close()
		metrics.ActiveSessions.Set(float64(n))
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions with no player activity since the idle TTL and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > s.opts.IdleTTL {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	if len(stale) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		log.Printf("[Session] swept %d idle sessions\n", len(stale))
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes the rest.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.Sweep(s.opts.now())
		}
	}
}

func (s *Store) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	metrics.ActiveSessions.Set(0)
}
