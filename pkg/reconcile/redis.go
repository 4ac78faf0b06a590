package reconcile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
)

// DefaultRedisKey is the list key pending records are stored under.
const DefaultRedisKey = "clientflow:ledger:backfill"

// RedisQueue is a Queue backed by a Redis list. RPUSH/LPOP keeps FIFO order;
// records survive process restarts and multiple application instances can
// feed the same queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// RedisOption configures the RedisQueue.
type RedisOption func(*RedisQueue)

// WithRedisKey overrides the list key, e.g. to separate environments sharing
// one Redis instance.
func WithRedisKey(key string) RedisOption {
	return func(q *RedisQueue) {
		if key != "" {
			q.key = key
		}
	}
}

// NewRedisQueue creates a Redis-backed reconcile queue. Panics if client is
// nil to fail fast during initialization.
func NewRedisQueue(client *redis.Client, opts ...RedisOption) *RedisQueue {
	if client == nil {
		panic("reconcile: redis client is required")
	}

	q := &RedisQueue{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) Enqueue(ctx context.Context, record lifecycle.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Join(ErrEncodeRecord, err)
	}

	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return errors.Join(ErrQueueNotReady, err)
	}
	return nil
}

// Requeue pushes a record back to the consuming end of the list, ahead of
// every waiting record.
func (q *RedisQueue) Requeue(ctx context.Context, record lifecycle.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Join(ErrEncodeRecord, err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return errors.Join(ErrQueueNotReady, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (lifecycle.Record, error) {
	payload, err := q.client.LPop(ctx, q.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return lifecycle.Record{}, ErrQueueEmpty
		}
		return lifecycle.Record{}, errors.Join(ErrQueueNotReady, err)
	}

	var record lifecycle.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return lifecycle.Record{}, errors.Join(ErrDecodeRecord, err)
	}
	return record, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, errors.Join(ErrQueueNotReady, err)
	}
	return n, nil
}
