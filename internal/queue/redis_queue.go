// Package queue reads ingestion requests from a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// listClient is the subset of the Redis client the queue needs.
type listClient interface {
	RPop(ctx context.Context, key string) *redis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisQueue pops JSON work items from the tail of a list; producers LPUSH.
type RedisQueue struct {
	client listClient
	name   string
	logger *slog.Logger
}

// NewRedisQueue connects to the server at redisURL (redis:// or rediss://).
func NewRedisQueue(ctx context.Context, redisURL, name string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisQueue(client, name), nil
}

// Close releases the connection pool when the queue owns one.
func (q *RedisQueue) Close() error {
	if c, ok := q.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newRedisQueue(client listClient, name string) *RedisQueue {
	return &RedisQueue{
		client: client,
		name:   name,
		logger: slog.Default().With("component", "queue", "queue", name),
	}
}

// Pop removes and decodes the next item. It returns core.ErrQueueEmpty when
// the list is empty and wraps core.ErrMalformedItem for entries that cannot
// be decoded; those entries are already gone from the list.
func (q *RedisQueue) Pop(ctx context.Context) (models.WorkItem, error) {
	raw, err := q.client.RPop(ctx, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return models.WorkItem{}, core.ErrQueueEmpty
	}
	if err != nil {
		return models.WorkItem{}, fmt.Errorf("rpop %s: %w", q.name, err)
	}

	item, err := decodeItem([]byte(raw))
	if err != nil {
		q.logger.Warn("dropping malformed item", "raw", raw, "err", err)
		return models.WorkItem{}, err
	}
	return item, nil
}

// Push adds an item to the head of the list.
func (q *RedisQueue) Push(ctx context.Context, item models.WorkItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.name, b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.name, err)
	}
	return nil
}

func decodeItem(raw []byte) (models.WorkItem, error) {
	var item models.WorkItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.WorkItem{}, fmt.Errorf("%w: %v", core.ErrMalformedItem, err)
	}
	if item.FileURL == "" || item.UserID == "" {
		return models.WorkItem{}, fmt.Errorf("%w: fileUrl and userId are required", core.ErrMalformedItem)
	}
	return item, nil
}

var _ core.WorkQueue = (*RedisQueue)(nil)
