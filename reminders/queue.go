package reminders

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisQueueKey = "reminders:deferred"

// RedisQueue keeps deferred reminders in a redis sorted set scored by the
// earliest allowed send time, so they survive restarts.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Defer(ctx context.Context, id uuid.UUID, sendAt time.Time) error {
	return q.client.ZAdd(ctx, redisQueueKey, redis.Z{
		Score:  float64(sendAt.Unix()),
		Member: id.String(),
	}).Err()
}

func (q *RedisQueue) Due(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	members, err := q.client.ZRangeByScore(ctx, redisQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// Junk member, drop it so it never blocks the queue.
			q.client.ZRem(ctx, redisQueueKey, m)
			continue
		}
		if err := q.client.ZRem(ctx, redisQueueKey, m).Err(); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MemoryQueue is the in-process fallback used when redis is unavailable and
// in tests. Deferred reminders do not survive a restart.
type MemoryQueue struct {
	mu      sync.Mutex
	entries []memoryEntry
}

type memoryEntry struct {
	id     uuid.UUID
	sendAt time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Defer(ctx context.Context, id uuid.UUID, sendAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].id == id {
			q.entries[i].sendAt = sendAt
			return nil
		}
	}
	q.entries = append(q.entries, memoryEntry{id: id, sendAt: sendAt})
	return nil
}

func (q *MemoryQueue) Due(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sort.Slice(q.entries, func(i, j int) bool {
		return q.entries[i].sendAt.Before(q.entries[j].sendAt)
	})

	var due []uuid.UUID
	remaining := q.entries[:0]
	for _, e := range q.entries {
		if !e.sendAt.After(now) {
			due = append(due, e.id)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.entries = remaining
	return due, nil
}
