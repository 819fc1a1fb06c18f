package leaderboard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jollofwars/internal/kv"
	"jollofwars/internal/metrics"
)

var ErrSubmissionFailed = errors.New("score submission failed")

const (
	IndexKey         = "jollof_wars:leaderboard"
	EntryKeyPrefix   = IndexKey + ":"
	UserScoresPrefix = "jollof_wars:user_scores:"

	RetentionTTL = 90 * 24 * time.Hour
)

func EntryKey(id string) string {
	return EntryKeyPrefix + id
}

func UserScoresKey(identity string) string {
	return UserScoresPrefix + identity
}

// Store is the ranked leaderboard: a sorted set of entry ids by score plus one
// hash per entry, and a personal sorted set per verified identity.
type Store struct {
	kv  *kv.Client
	now func() time.Time
}

func New(client *kv.Client) *Store {
	return &Store{kv: client, now: time.Now}
}

func newID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// Submit validates sub, assigns an id and timestamp, and writes the entry, the
// ranked index entry and the personal index entry as one transaction. If any
// command fails every write is undone and ErrSubmissionFailed is returned.
func (s *Store) Submit(ctx context.Context, sub Submission) (Entry, error) {
	sub, err := Validate(sub)
	if err != nil {
		return Entry{}, err
	}
	if !s.kv.Available() {
		return Entry{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, kv.ErrUnavailable)
	}

	now := s.now()
	e := Entry{
		ID:             newID(now),
		PlayerName:     sub.PlayerName,
		Score:          sub.Score,
		Team:           sub.Team,
		Timestamp:      now.UnixMilli(),
		Combo:          sub.Combo,
		PerfectActions: sub.PerfectActions,
		Accuracy:       sub.Accuracy,
		PlayerIdentity: sub.PlayerIdentity,
		IsVerified:     sub.IsVerified,
	}

	member := redis.Z{Score: float64(e.Score), Member: e.ID}
	res, err := s.kv.Atomic(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, EntryKey(e.ID), encode(e))
		p.Expire(ctx, EntryKey(e.ID), RetentionTTL)
		p.ZAdd(ctx, IndexKey, member)
		if e.PlayerIdentity != "" {
			p.ZAdd(ctx, UserScoresKey(e.PlayerIdentity), member)
			p.Expire(ctx, UserScoresKey(e.PlayerIdentity), RetentionTTL)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Leaderboard] submit %s failed (%d commands reported): %v\n", e.ID, len(res), err)
		s.rollback(e)
		return Entry{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	return e, nil
}

// rollback removes every trace of e. Ids are unique, so undoing a write that
// never happened is harmless.
func (s *Store) rollback(e Entry) {
	ctx, cancel := s.kv.Bound(context.Background())
	defer cancel()

	pipe := s.kv.Redis().Pipeline()
	pipe.ZRem(ctx, IndexKey, e.ID)
	if e.PlayerIdentity != "" {
		pipe.ZRem(ctx, UserScoresKey(e.PlayerIdentity), e.ID)
	}
	pipe.Del(ctx, EntryKey(e.ID))
	cmds, _ := pipe.Exec(ctx)
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			metrics.StoreErrors.WithLabelValues("rollback").Inc()
			log.Printf("[Leaderboard] rollback %s: %s failed: %v\n", e.ID, cmd.Name(), err)
		}
	}
}

// List returns every stored entry, highest score first. Equal scores keep
// submission order. Ids whose record is missing or unreadable are skipped.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.rankedEntries(ctx, IndexKey)
}

// BestFor returns the highest-scoring entry submitted under identity, or nil.
func (s *Store) BestFor(ctx context.Context, identity string) (*Entry, error) {
	if identity == "" {
		return nil, nil
	}
	entries, err := s.rankedEntries(ctx, UserScoresKey(identity))
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) rankedEntries(ctx context.Context, index string) ([]Entry, error) {
	if !s.kv.Available() {
		return nil, kv.ErrUnavailable
	}
	rctx, cancel := s.kv.Bound(ctx)
	ids, err := s.kv.Redis().ZRevRange(rctx, index, 0, -1).Result()
	cancel()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", index, err)
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = EntryKey(id)
	}
	hashes, err := s.kv.HGetAllBatch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	entries := make([]Entry, 0, len(hashes))
	for i, h := range hashes {
		if h.Err != nil {
			metrics.StoreErrors.WithLabelValues("read_entry").Inc()
			log.Printf("[Leaderboard] skipping %s: %v\n", ids[i], h.Err)
			continue
		}
		if h.Missing() {
			continue
		}
		e, err := decode(ids[i], h.Fields)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("decode_entry").Inc()
			log.Printf("[Leaderboard] skipping: %v\n", err)
			continue
		}
		entries = append(entries, e)
	}
	SortEntries(entries)
	return entries, nil
}

// SortEntries orders by score descending, then timestamp and id ascending.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Clear deletes every entry, the ranked index and all personal indexes.
func (s *Store) Clear(ctx context.Context) error {
	if !s.kv.Available() {
		return kv.ErrUnavailable
	}
	rdb := s.kv.Redis()
	for _, pattern := range []string{EntryKeyPrefix + "*", UserScoresPrefix + "*"} {
		iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 100 {
				if err := rdb.Del(ctx, batch...).Err(); err != nil {
					return fmt.Errorf("clearing leaderboard: %w", err)
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scanning %s: %w", pattern, err)
		}
		if len(batch) > 0 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("clearing leaderboard: %w", err)
			}
		}
	}
	if err := rdb.Del(ctx, IndexKey).Err(); err != nil {
		return fmt.Errorf("clearing leaderboard index: %w", err)
	}
	return nil
}
