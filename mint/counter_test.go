package mint

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryCounter(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounter()

	for want := 1; want <= 3; want++ {
		n, err := c.Next(ctx, "EYLEA-2026")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := c.Next(ctx, "DUPIXENT-2026")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "namespaces are independent")
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounter()

	const workers = 50
	results := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Next(ctx, "NS")
			assert.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for n := range results {
		assert.False(t, seen[n], "duplicate value %d", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestRedisCounter(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)

	first := NewRedisCounter(client)
	second := NewRedisCounter(client)

	n, err := first.Next(ctx, "EYLEA-2026")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = second.Next(ctx, "EYLEA-2026")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "counters sharing a server share values")

	got, err := mr.Get("journeyid:campaign-counter:EYLEA-2026")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestRedisCounter_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisCounter(client).Next(context.Background(), "EYLEA-2026")
	assert.ErrorContains(t, err, "incrementing counter EYLEA-2026")
}
