package service

import (
	"context"
	"sync/atomic"
	"testing"

	"foodgram/internal/cache"
	"foodgram/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_CachesTags(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := cache.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var listCalls, getCalls int32
	repo := noopCatalogRepo()
	repo.listTagsFn = func(context.Context) ([]models.Tag, error) {
		atomic.AddInt32(&listCalls, 1)
		return []models.Tag{{ID: 1, Name: "Breakfast", Slug: "breakfast"}}, nil
	}
	repo.getTagFn = func(_ context.Context, id uint) (*models.Tag, error) {
		atomic.AddInt32(&getCalls, 1)
		return &models.Tag{ID: id, Name: "Lunch", Slug: "lunch"}, nil
	}
	svc := NewCatalogService(repo, cache.NewStore(rdb))
	ctx := context.Background()

	for range 2 {
		tags, err := svc.ListTags(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "breakfast", tags[0].Slug)

		tag, err := svc.GetTag(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "lunch", tag.Slug)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&getCalls))

	svc.InvalidateTags(ctx, 2)
	assert.False(t, mr.Exists(cache.TagListKey))
	assert.False(t, mr.Exists(cache.TagKey(2)))
}

func TestCatalogService_MissingIngredientNotCached(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := cache.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := noopCatalogRepo()
	repo.getIngredientFn = func(_ context.Context, id uint) (*models.Ingredient, error) {
		return nil, models.NewNotFoundError("Ingredient", id)
	}
	svc := NewCatalogService(repo, cache.NewStore(rdb))

	_, err := svc.GetIngredient(context.Background(), 5)
	assertCode(t, err, models.CodeNotFound)
	assert.False(t, mr.Exists(cache.IngredientKey(5)))
}

func TestCatalogService_WithoutRedis(t *testing.T) {
	t.Parallel()
	repo := noopCatalogRepo()
	repo.listIngredientsFn = func(_ context.Context, prefix string) ([]models.Ingredient, error) {
		return []models.Ingredient{{ID: 1, Name: prefix + "ur", MeasurementUnit: "g"}}, nil
	}
	svc := NewCatalogService(repo, nil)

	ings, err := svc.ListIngredients(context.Background(), "flo")
	require.NoError(t, err)
	assert.Equal(t, "flour", ings[0].Name)

	tag, err := svc.GetTag(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint(3), tag.ID)
}
