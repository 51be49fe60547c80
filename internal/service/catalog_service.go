package service

import (
	"context"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/repository"
)

// CatalogService serves the read-only tag and ingredient reference data.
// Tags and single ingredients are cached; prefix searches are not.
type CatalogService struct {
	catalog repository.CatalogRepository
	cache   *cache.Store
}

func NewCatalogService(catalog repository.CatalogRepository, store *cache.Store) *CatalogService {
	return &CatalogService{catalog: catalog, cache: store}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return cache.Aside(ctx, s.cache, cache.TagListKey, cache.TagTTL, s.catalog.ListTags)
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return cache.Aside(ctx, s.cache, cache.TagKey(id), cache.TagTTL, func(ctx context.Context) (*models.Tag, error) {
		return s.catalog.GetTag(ctx, id)
	})
}

func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	return s.catalog.ListIngredients(ctx, namePrefix)
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	return cache.Aside(ctx, s.cache, cache.IngredientKey(id), cache.IngredientTTL, func(ctx context.Context) (*models.Ingredient, error) {
		return s.catalog.GetIngredient(ctx, id)
	})
}

// InvalidateTags drops the cached tag list and the given single-tag entries.
// Reference data imports call it after upserting tags.
func (s *CatalogService) InvalidateTags(ctx context.Context, ids ...uint) {
	keys := []string{cache.TagListKey}
	for _, id := range ids {
		keys = append(keys, cache.TagKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
}
