package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the ingest pipeline.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func seenKey(subscriptionID, signature string) string {
	return fmt.Sprintf("seen:%s:%s", subscriptionID, signature)
}

// SeenSignature marks a (subscription, signature) pair as processed and
// reports whether it was already marked. The guard is best effort: keys
// expire after ttl, and the upstream provider may still redeliver outside
// the window.
func (c *Client) SeenSignature(
	ctx context.Context,
	subscriptionID, signature string,
	ttl time.Duration,
) (bool, error) {
	set, err := c.rdb.SetNX(ctx, seenKey(subscriptionID, signature), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check signature guard: %w", err)
	}
	return !set, nil
}

// ForgetSignature clears a guard entry. Called after a failed write so a
// provider redelivery is not misclassified as a duplicate of a row that was
// never written.
func (c *Client) ForgetSignature(ctx context.Context, subscriptionID, signature string) error {
	if err := c.rdb.Del(ctx, seenKey(subscriptionID, signature)).Err(); err != nil {
		return fmt.Errorf("failed to clear signature guard: %w", err)
	}
	return nil
}
