package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client with impact-cache operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Impact summary caching. Summaries are expensive to recompute, so they are
// cached per account and filter combination and invalidated whenever a new
// decision batch appends.

func summaryKey(accountID string, filters models.ImpactFilters) string {
	return fmt.Sprintf("impact:%s:summary:mature=%t:validated=%t",
		accountID, filters.MatureOnly, filters.ValidatedOnly)
}

// SetImpactSummary caches an impact summary with TTL
func (c *Client) SetImpactSummary(ctx context.Context, accountID string, filters models.ImpactFilters, summary *models.ImpactSummary, ttl time.Duration) error {
	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal impact summary: %w", err)
	}
	return c.rdb.Set(ctx, summaryKey(accountID, filters), jsonData, ttl).Err()
}

// GetImpactSummary retrieves a cached impact summary. Returns redis.Nil
// when the key is absent.
func (c *Client) GetImpactSummary(ctx context.Context, accountID string, filters models.ImpactFilters) (*models.ImpactSummary, error) {
	jsonData, err := c.rdb.Get(ctx, summaryKey(accountID, filters)).Bytes()
	if err != nil {
		return nil, err
	}

	var summary models.ImpactSummary
	if err := json.Unmarshal(jsonData, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal impact summary: %w", err)
	}
	return &summary, nil
}

// InvalidateAccount drops every cached value for an account. Called after a
// decision batch appends so stale summaries never outlive new data.
func (c *Client) InvalidateAccount(ctx context.Context, accountID string) error {
	pattern := fmt.Sprintf("impact:%s:*", accountID)

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys for %s: %w", accountID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Benchmark caching

// SetBenchmark caches a computed baseline value
func (c *Client) SetBenchmark(ctx context.Context, accountID, name string, value float64, ttl time.Duration) error {
	key := fmt.Sprintf("impact:%s:benchmark:%s", accountID, name)
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// GetBenchmark retrieves a cached baseline value
func (c *Client) GetBenchmark(ctx context.Context, accountID, name string) (float64, error) {
	key := fmt.Sprintf("impact:%s:benchmark:%s", accountID, name)
	return c.rdb.Get(ctx, key).Float64()
}
