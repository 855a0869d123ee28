package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

type redisUnreadCounter struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisUnreadCounter keeps counters as fields of one Redis hash.
func NewRedisUnreadCounter(client redis.UniversalClient, key string, logger *slog.Logger) UnreadCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisUnreadCounter{client: client, key: key, logger: logger}
}

func (c *redisUnreadCounter) Increment(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.HIncrBy(ctx, c.key, id, 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("incrementing unread counters: %w", err)
	}
	c.logger.DebugContext(ctx, "unread counters incremented", "users", len(userIDs))
	return nil
}

func (c *redisUnreadCounter) Reset(ctx context.Context, userID string) error {
	if err := c.client.HDel(ctx, c.key, userID).Err(); err != nil {
		return fmt.Errorf("resetting unread counter: %w", err)
	}
	return nil
}

func (c *redisUnreadCounter) Get(ctx context.Context, userID string) (int64, error) {
	n, err := c.client.HGet(ctx, c.key, userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading unread counter: %w", err)
	}
	return n, nil
}

func (c *redisUnreadCounter) All(ctx context.Context) (map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading unread counters: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed unread counter", "user_id", id, "value", v)
			continue
		}
		out[id] = n
	}
	return out, nil
}

type memoryUnreadCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryUnreadCounter() UnreadCounter {
	return &memoryUnreadCounter{counts: make(map[string]int64)}
}

func (c *memoryUnreadCounter) Increment(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.counts[id]++
	}
	return nil
}

func (c *memoryUnreadCounter) Reset(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, userID)
	return nil
}

func (c *memoryUnreadCounter) Get(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID], nil
}

func (c *memoryUnreadCounter) All(_ context.Context) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, nil
}
