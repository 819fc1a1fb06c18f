package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jollofwars/internal/game"
	"jollofwars/internal/kv"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(kv.New(rdb, time.Second)), mr
}

// steppingClock returns a clock that advances one millisecond per call.
func steppingClock() func() time.Time {
	now := time.UnixMilli(1700000000000)
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func TestSubmitList_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sub := validSubmission()
	sub.PlayerIdentity = "42"
	sub.IsVerified = true
	e, err := s.Submit(ctx, sub)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if e.ID == "" || e.Timestamp == 0 {
		t.Fatalf("Submit() = %+v, want id and timestamp set", e)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(got))
	}
	if got[0] != e {
		t.Errorf("List()[0] = %+v, want %+v", got[0], e)
	}
	if got[0].Score != 500 || got[0].Team != game.TeamGhana || got[0].Combo != 3 || got[0].Accuracy != 80 {
		t.Errorf("round trip lost data: %+v", got[0])
	}
}

func TestSubmitList_NameKeptAsPlainText(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	sub := validSubmission()
	sub.PlayerName = "Ade & Kofi's Pot"
	e, err := s.Submit(ctx, sub)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if stored := mr.HGet(EntryKey(e.ID), "playerName"); stored != sub.PlayerName {
		t.Errorf("stored name = %q, want %q", stored, sub.PlayerName)
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 || got[0].PlayerName != sub.PlayerName {
		t.Errorf("List() = %+v, want name %q", got, sub.PlayerName)
	}
}

func TestSubmit_Retention(t *testing.T) {
	s, mr := newTestStore(t)
	sub := validSubmission()
	sub.PlayerIdentity = "42"
	e, err := s.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if ttl := mr.TTL(EntryKey(e.ID)); ttl != RetentionTTL {
		t.Errorf("entry TTL = %v, want %v", ttl, RetentionTTL)
	}
	if ttl := mr.TTL(UserScoresKey("42")); ttl != RetentionTTL {
		t.Errorf("user index TTL = %v, want %v", ttl, RetentionTTL)
	}
	if ttl := mr.TTL(IndexKey); ttl != 0 {
		t.Errorf("ranked index TTL = %v, want none", ttl)
	}
}

func TestSubmit_RejectsInvalid(t *testing.T) {
	s, mr := newTestStore(t)
	sub := validSubmission()
	sub.PlayerName = ""

	if _, err := s.Submit(context.Background(), sub); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("Submit() = %v, want %v", err, ErrInvalidEntry)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("store touched on invalid submit: %v", keys)
	}
}

func TestSubmit_PartialFailureRollsBack(t *testing.T) {
	s, mr := newTestStore(t)
	// the ranked index has the wrong type, so ZADD fails after HSET succeeded
	mr.Set(IndexKey, "not a sorted set")

	sub := validSubmission()
	sub.PlayerIdentity = "42"
	_, err := s.Submit(context.Background(), sub)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("Submit() = %v, want %v", err, ErrSubmissionFailed)
	}

	for _, k := range mr.Keys() {
		if k != IndexKey {
			t.Errorf("key %q left behind after failed submit", k)
		}
	}
}

func TestSubmit_Unavailable(t *testing.T) {
	s := New(nil)
	_, err := s.Submit(context.Background(), validSubmission())
	if !errors.Is(err, ErrSubmissionFailed) || !errors.Is(err, kv.ErrUnavailable) {
		t.Errorf("Submit() = %v, want %v and %v", err, ErrSubmissionFailed, kv.ErrUnavailable)
	}
	if _, err := s.List(context.Background()); !errors.Is(err, kv.ErrUnavailable) {
		t.Errorf("List() = %v, want %v", err, kv.ErrUnavailable)
	}
}

func TestList_OrderAndTieBreak(t *testing.T) {
	s, _ := newTestStore(t)
	s.now = steppingClock()
	ctx := context.Background()

	submit := func(name string, score int) Entry {
		t.Helper()
		sub := validSubmission()
		sub.PlayerName = name
		sub.Score = score
		e, err := s.Submit(ctx, sub)
		if err != nil {
			t.Fatalf("Submit(%s) error: %v", name, err)
		}
		return e
	}
	submit("low", 100)
	submit("first", 900)
	submit("high", 1500)
	submit("second", 900)

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"high", "first", "second", "low"}
	if len(got) != len(want) {
		t.Fatalf("len(List()) = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].PlayerName != name {
			t.Errorf("List()[%d] = %s, want %s", i, got[i].PlayerName, name)
		}
	}
}

func TestList_SkipsMissingAndMalformed(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	e, err := s.Submit(ctx, validSubmission())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	mr.ZAdd(IndexKey, 9999, "ghost")
	mr.ZAdd(IndexKey, 800, "broken")
	mr.HSet(EntryKey("broken"), "playerName", "B", "team", "ghana", "score", "eight hundred")
	mr.ZAdd(IndexKey, 700, "wrongtype")
	mr.Set(EntryKey("wrongtype"), "x")

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != e.ID {
		t.Errorf("List() = %+v, want only %s", got, e.ID)
	}
}

func TestList_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List() = %v, want empty slice", got)
	}
}

func TestBestFor(t *testing.T) {
	s, _ := newTestStore(t)
	s.now = steppingClock()
	ctx := context.Background()

	for _, score := range []int{300, 1100, 700} {
		sub := validSubmission()
		sub.Score = score
		sub.PlayerIdentity = "42"
		if _, err := s.Submit(ctx, sub); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	other := validSubmission()
	other.Score = 5000
	other.PlayerIdentity = "7"
	if _, err := s.Submit(ctx, other); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	best, err := s.BestFor(ctx, "42")
	if err != nil {
		t.Fatalf("BestFor() error: %v", err)
	}
	if best == nil || best.Score != 1100 {
		t.Errorf("BestFor() = %+v, want score 1100", best)
	}

	none, err := s.BestFor(ctx, "nobody")
	if err != nil || none != nil {
		t.Errorf("BestFor(nobody) = %+v, %v, want nil, nil", none, err)
	}
	if none, _ := s.BestFor(ctx, ""); none != nil {
		t.Errorf("BestFor(\"\") = %+v, want nil", none)
	}
}

func TestClear(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	mr.HSet("jollof_wars:game_state", "team", "ghana")

	for range 3 {
		sub := validSubmission()
		sub.PlayerIdentity = "42"
		if _, err := s.Submit(ctx, sub); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(List()) = %d after Clear, want 0", len(got))
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "jollof_wars:game_state" {
		t.Errorf("keys after Clear = %v, want only the session record", keys)
	}
}
