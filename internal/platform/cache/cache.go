// Package cache connects to the Dragonfly/Redis instance that holds cached
// learner records.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies when New is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

// ClientName is sent with CLIENT SETNAME unless the URL names the client.
const ClientName = "pai-adaptive"

// CachedStore falls back to the inner store on any cache error.
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = time.Second
)

// Cache pairs a client with the lifetime of cached learner records.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

// ParseURL validates a redis:// or rediss:// URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = ClientName
	}
	return opts, nil
}

// New connects and pings. A non-positive ttl becomes DefaultTTL.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", opts.Addr, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{Client: client, TTL: ttl}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck backs the "cache" readiness check.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}
