package mint

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Counter hands out monotonically increasing numbers per namespace,
// starting at 1.
type Counter interface {
	Next(ctx context.Context, namespace string) (int, error)
}

// MemoryCounter is a Counter held in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int
}

// NewMemoryCounter creates a counter with every namespace at zero.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int)}
}

// Next implements Counter.
func (c *MemoryCounter) Next(_ context.Context, namespace string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[namespace]++
	return c.values[namespace], nil
}

const redisCounterPrefix = "journeyid:campaign-counter:"

// RedisCounter is a Counter shared between processes through Redis.
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter creates a counter using the given client.
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// Next implements Counter using INCR, which is atomic on the server.
func (c *RedisCounter) Next(ctx context.Context, namespace string) (int, error) {
	n, err := c.client.Incr(ctx, redisCounterPrefix+namespace).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing counter %s: %w", namespace, err)
	}
	return int(n), nil
}
