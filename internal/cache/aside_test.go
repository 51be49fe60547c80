package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagFixture struct {
	ID   uint
	Name string
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestAside_CachesFetchedValue(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context) ([]tagFixture, error) {
		atomic.AddInt32(&calls, 1)
		return []tagFixture{{ID: 1, Name: "Breakfast"}}, nil
	}

	first, err := Aside(ctx, store, TagListKey, TagTTL, fetch)
	require.NoError(t, err)
	second, err := Aside(ctx, store, TagListKey, TagTTL, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists(TagListKey))
	assert.Equal(t, TagTTL, mr.TTL(TagListKey))
}

func TestAside_DoesNotCacheErrors(t *testing.T) {
	store, mr := newTestStore(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), store, TagKey(7), TagTTL, func(context.Context) (tagFixture, error) {
		return tagFixture{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(TagKey(7)))
}

func TestAside_NilStoreCallsFetch(t *testing.T) {
	var store *Store
	got, err := Aside(context.Background(), store, ShortCodeKey("abc"), ShortCodeTTL, func(context.Context) (uint, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(42), got)
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	got, err := Aside(context.Background(), store, IngredientKey(3), IngredientTTL, func(context.Context) (string, error) {
		return "flour", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "flour", got)
}

func TestAside_CoalescesConcurrentMisses(t *testing.T) {
	store, _ := newTestStore(t)
	release := make(chan struct{})
	var calls int32

	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 5, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Aside(context.Background(), store, "coalesce:key", time.Minute, fetch)
			assert.NoError(t, err)
			assert.Equal(t, 5, v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestInvalidate(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set(TagListKey, "[]"))
	store.Invalidate(context.Background(), TagListKey)
	assert.False(t, mr.Exists(TagListKey))
}

func TestOptions(t *testing.T) {
	opts, err := Options("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = Options("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
}
