package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, "test:", time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newMiniredisStore(t)

	_, err := store.Load(ctx, "c1")
	require.ErrorIs(t, err, ErrHistoryNotFound)

	h := NewHistory(3).Append(UserTurn("hi", time.Now()), AssistantTurn("hello", nil, nil, time.Now()))
	require.NoError(t, store.Save(ctx, "c1", h))
	assert.True(t, mr.Exists("test:c1"))
	assert.Equal(t, time.Hour, mr.TTL("test:c1"))

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "hello", got.Turns[1].Text)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Load(ctx, "c1")
	require.ErrorIs(t, err, ErrHistoryNotFound)
}

func TestRedisStoreRejectsEmptyConversation(t *testing.T) {
	t.Parallel()

	store, _ := newMiniredisStore(t)
	require.ErrorIs(t, store.Save(context.Background(), " ", NewHistory(1)), ErrInvalidConversation)
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	h := NewHistory(2).Append(UserTurn("a", time.Now()))
	require.NoError(t, store.Save(ctx, "c", h))

	h.Turns[0].Text = "mutated"
	got, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Turns[0].Text)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("conv")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, km.locks)
}
