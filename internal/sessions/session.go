package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jollofwars/internal/game"
	"jollofwars/internal/gamestate"
	"jollofwars/internal/leaderboard"
	"jollofwars/internal/metrics"
	"jollofwars/internal/wshub"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrClosed      = errors.New("session closed")
	ErrNotFinished = errors.New("session has not reached results")
	ErrSubmitted   = errors.New("round already submitted")
)

// ActionRecord describes one CompleteAction applied to a session.
type ActionRecord struct {
	SessionID   string
	RoundID     string
	PlayerID    string
	ActionIndex int
	Kind        game.ActionKind
	Target      string
	Success     bool
	TimingMs    int
	Combo       int
	At          time.Time
}

// Finished is handed to the finish hook when a session enters results.
type Finished struct {
	SessionID string
	RoundID   string
	PlayerID  string
	State     game.State
	StartedAt time.Time
	EndedAt   time.Time
}

type request struct {
	ev    game.Event
	reply chan result
}

type result struct {
	state game.State
	err   error
}

// Session owns one play-through. Events are applied one at a time, in arrival
// order, by the session's own goroutine.
type Session struct {
	ID       string
	PlayerID string
	Hub      *wshub.Hub

	inbox     chan request
	done      chan struct{}
	closeOnce sync.Once

	gateway *gamestate.Gateway
	opts    Options

	mu         sync.Mutex
	state      game.State
	version    int
	lastActive time.Time
	startedAt  time.Time
	round      string // minted by every StartGame
	submitted  bool
}

func newSession(id, playerID string, initial game.State, gateway *gamestate.Gateway, opts Options) *Session {
	s := &Session{
		ID:         id,
		PlayerID:   playerID,
		Hub:        wshub.NewHub(),
		inbox:      make(chan request, 64),
		done:       make(chan struct{}),
		gateway:    gateway,
		opts:       opts,
		state:      initial,
		lastActive: opts.now(),
		round:      uuid.NewString(),
	}
	go s.loop()
	return s
}

// Apply queues ev behind any events already waiting and returns the state after
// it was applied. A rejected event leaves the state unchanged.
func (s *Session) Apply(ctx context.Context, ev game.Event) (game.State, error) {
	req := request{ev: ev, reply: make(chan result, 1)}
	select {
	case s.inbox <- req:
	case <-s.done:
		return game.State{}, ErrClosed
	case <-ctx.Done():
		return game.State{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.state, res.err
	case <-s.done:
		return game.State{}, ErrClosed
	case <-ctx.Done():
		return game.State{}, ctx.Err()
	}
}

// Snapshot returns the current state and its version without queueing.
func (s *Session) Snapshot() (game.State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Claim builds the submission for the finished round and marks the round as
// submitted. A second claim for the same round fails with ErrSubmitted until
// release is called, which callers do when storing the submission failed.
func (s *Session) Claim(playerName, identity string, verified bool) (sub leaderboard.Submission, release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err = submissionFor(s.state, playerName, identity, verified)
	if err != nil {
		return sub, nil, err
	}
	if s.submitted {
		return sub, nil, ErrSubmitted
	}
	s.submitted = true
	round := s.round
	release = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.round == round {
			s.submitted = false
		}
	}
	return sub, release, nil
}

func submissionFor(st game.State, playerName, identity string, verified bool) (leaderboard.Submission, error) {
	if st.Phase != game.PhaseResults {
		return leaderboard.Submission{}, ErrNotFinished
	}
	return leaderboard.Submission{
		PlayerName:     playerName,
		Score:          st.DisplayTotal(),
		Team:           st.Team,
		Combo:          st.PlayerStats.LongestCombo,
		PerfectActions: st.PlayerStats.PerfectActions,
		Accuracy:       st.Accuracy(),
		PlayerIdentity: identity,
		IsVerified:     verified,
	}, nil
}

// Close stops the session loop and disconnects its websocket clients.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.Hub.Close()
	})
}

func (s *Session) loop() {
	var tick <-chan time.Time
	if s.opts.TickInterval > 0 {
		ticker := time.NewTicker(s.opts.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	delta := s.opts.TickInterval.Seconds()

	for {
		select {
		case <-s.done:
			return
		case req := <-s.inbox:
			st, err := s.apply(req.ev)
			req.reply <- result{state: st, err: err}
		case <-tick:
			st, _ := s.Snapshot()
			if st.Phase == game.PhaseCountdown || st.Phase == game.PhasePlaying {
				s.apply(game.Tick{Delta: delta})
			}
		}
	}
}

func (s *Session) apply(ev game.Event) (game.State, error) {
	name := game.EventName(ev)
	cur, _ := s.Snapshot()
	if err := game.Validate(cur, ev); err != nil {
		metrics.GameEvents.WithLabelValues(name, "rejected").Inc()
		return cur, fmt.Errorf("%s: %w", name, err)
	}

	next := game.Reduce(cur, ev)
	now := s.opts.now()

	s.mu.Lock()
	s.state = next
	s.version++
	version := s.version
	if _, isTick := ev.(game.Tick); !isTick {
		s.lastActive = now
	}
	if _, isStart := ev.(game.StartGame); isStart {
		s.startedAt = now
		s.round = uuid.NewString()
		s.submitted = false
	}
	startedAt := s.startedAt
	round := s.round
	s.mu.Unlock()

	metrics.GameEvents.WithLabelValues(name, "applied").Inc()
	s.Hub.Broadcast(wshub.ServerMessage{Type: "state", Version: version, State: next})

	if ca, ok := ev.(game.CompleteAction); ok && s.opts.OnAction != nil {
		pending, _ := cur.Pending()
		s.opts.OnAction(ActionRecord{
			SessionID:   s.ID,
			RoundID:     round,
			PlayerID:    s.PlayerID,
			ActionIndex: cur.NextAction,
			Kind:        pending.Kind,
			Target:      pending.Target,
			Success:     ca.Success,
			TimingMs:    ca.Timing,
			Combo:       next.Combo,
			At:          now,
		})
	}

	if !cur.Persisted().Equal(next.Persisted()) && s.gateway != nil {
		s.gateway.SaveAsync(next, s.PlayerID)
	}

	if cur.Phase != game.PhaseResults && next.Phase == game.PhaseResults {
		metrics.GamesFinished.WithLabelValues(string(next.Team)).Inc()
		log.Printf("[Session] %s finished: team=%s score=%d\n", s.ID, next.Team, next.Score.Total)
		if s.opts.OnFinish != nil {
			go s.opts.OnFinish(Finished{
				SessionID: s.ID,
				RoundID:   round,
				PlayerID:  s.PlayerID,
				State:     next,
				StartedAt: startedAt,
				EndedAt:   now,
			})
		}
	}
	return next, nil
}
