package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlagStore claims the right to send the starting-soon alert for an
// appointment. Claim reports true exactly once per appointment id.
type FlagStore interface {
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
}

// MemoryFlags keeps claims in process memory. Claims are lost on restart, so
// a restarted worker may alert again.
type MemoryFlags struct {
	mu  sync.Mutex
	set *ReminderSet
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{set: NewReminderSet()}
}

func (m *MemoryFlags) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Add(id), nil
}

// RedisFlags persists claims in Redis with SETNX so they survive restarts and
// are shared between workers. Keys expire after ttl.
type RedisFlags struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisFlags(client *redis.Client, ttl time.Duration) *RedisFlags {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFlags{client: client, prefix: "vetclinic:reminder:", ttl: ttl}
}

func (r *RedisFlags) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+id.String(), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", id, err)
	}
	return ok, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
