package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by Ping on a nil client.
var ErrNotConfigured = errors.New("redis client not configured")

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Namespace is prepended to every key.
	Namespace string
	// OnError observes failures that the client swallows.
	OnError func(op, key string, err error)
}

// Client is a small key/flag store over Redis that never fails its callers: a write that
// cannot reach Redis is dropped and a read reports absence. A nil *Client behaves the same way.
type Client struct {
	rdb       *redis.Client
	namespace string
	onError   func(op, key string, err error)
}

// New creates a client. No connection is made until the first command.
func New(opts Options) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		namespace: opts.Namespace,
		onError:   opts.OnError,
	}
}

func (c *Client) key(k string) string {
	return c.namespace + k
}

func (c *Client) fail(op, key string, err error) {
	if c.onError != nil {
		c.onError(op, key, err)
	}
}

// Ping reports whether Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return ErrNotConfigured
	}
	return c.rdb.Ping(ctx).Err()
}

// SetFlag marks key as present until ttl elapses.
func (c *Client) SetFlag(ctx context.Context, key string, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), "1", ttl).Err(); err != nil {
		c.fail("set", key, err)
	}
}

// Exists reports whether key is present. Unreachable Redis reads as absent.
func (c *Client) Exists(ctx context.Context, key string) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		c.fail("exists", key, err)
		return false
	}
	return n > 0
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
