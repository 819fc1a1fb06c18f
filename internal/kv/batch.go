package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one command in a batch.
type Result struct {
	Name string
	Err  error
}

// BatchResult holds one Result per queued command, in queue order.
type BatchResult []Result

// Err returns the first command error, or nil when every command succeeded.
func (b BatchResult) Err() error {
	for _, r := range b {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Name, r.Err)
		}
	}
	return nil
}

// Succeeded reports whether the i-th command completed without error.
func (b BatchResult) Succeeded(i int) bool {
	return i < len(b) && b[i].Err == nil
}

// Atomic queues the commands added by fn inside MULTI/EXEC. Redis does not roll
// back a transaction when one command fails, so the per-command results are
// returned for the caller to compensate.
func (c *Client) Atomic(ctx context.Context, fn func(redis.Pipeliner) error) (BatchResult, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	ctx, cancel := c.Bound(ctx)
	defer cancel()

	cmds, err := c.rdb.TxPipelined(ctx, fn)
	if len(cmds) == 0 && err != nil {
		return nil, err
	}
	res := toResults(cmds)
	if err != nil {
		return res, err
	}
	return res, res.Err()
}

// Hash is the outcome of reading one hash in a batch. Missing keys yield an
// empty Fields map and a nil Err.
type Hash struct {
	Key    string
	Fields map[string]string
	Err    error
}

func (h Hash) Missing() bool {
	return h.Err == nil && len(h.Fields) == 0
}

// HGetAllBatch pipelines HGETALL over keys and returns one Hash per key.
func (c *Client) HGetAllBatch(ctx context.Context, keys []string) ([]Hash, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, cancel := c.Bound(ctx)
	defer cancel()

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		// per-command errors are reported below; only bail when nothing ran
		if ctx.Err() != nil {
			return nil, err
		}
	}

	out := make([]Hash, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		out[i] = Hash{Key: keys[i], Fields: fields, Err: err}
	}
	return out, nil
}

func toResults(cmds []redis.Cmder) BatchResult {
	out := make(BatchResult, len(cmds))
	for i, cmd := range cmds {
		err := cmd.Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		out[i] = Result{Name: cmd.Name(), Err: err}
	}
	return out
}
