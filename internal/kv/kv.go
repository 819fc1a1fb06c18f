package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no store is configured or it cannot be reached.
var ErrUnavailable = errors.New("key-value store unavailable")

const DefaultTimeout = 3 * time.Second

// Client wraps a Redis connection. A nil *Client is valid and reports ErrUnavailable
// from every operation.
type Client struct {
	rdb     *redis.Client
	timeout time.Duration
}

func Connect(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	c := New(redis.NewClient(opts), timeout)
	if err := c.Ping(ctx); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	log.Println("[Redis] Connected")
	return c, nil
}

// New wraps an existing client. A non-positive timeout falls back to DefaultTimeout.
func New(rdb *redis.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{rdb: rdb, timeout: timeout}
}

// Available reports whether the client has a backing connection.
func (c *Client) Available() bool {
	return c != nil && c.rdb != nil
}

// Redis exposes the underlying client for commands the wrapper does not cover.
func (c *Client) Redis() *redis.Client {
	if !c.Available() {
		return nil
	}
	return c.rdb
}

// Bound returns ctx limited by the client's per-call timeout.
func (c *Client) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c == nil {
		return context.WithTimeout(ctx, DefaultTimeout)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Ping(ctx context.Context) error {
	if !c.Available() {
		return ErrUnavailable
	}
	ctx, cancel := c.Bound(ctx)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if !c.Available() {
		return nil
	}
	return c.rdb.Close()
}
