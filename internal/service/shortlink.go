package service

import (
	"context"
	"errors"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
	"foodgram/internal/shortcode"
)

// ShortLinkPath is the public path prefix of short links.
const ShortLinkPath = "/s/"

// GetLink returns the absolute short link of a recipe, assigning a code to
// recipes created before codes existed.
func (s *RecipeService) GetLink(ctx context.Context, recipeID uint) (string, error) {
	recipe, err := s.recipes.GetMeta(ctx, recipeID)
	if err != nil {
		return "", err
	}
	if recipe.HasShortCode() {
		return s.linkFor(*recipe.ShortCode), nil
	}

	budget := s.codes.MaxAttempts
	if budget <= 0 {
		budget = shortcode.MaxAttempts
	}
	for attempt := 0; attempt < budget; attempt++ {
		candidate, err := s.codes.Assign(ctx, s.recipes.ShortCodeExists)
		if err != nil {
			return "", shortCodeError(err)
		}
		code, err := s.recipes.SetShortCode(ctx, recipeID, candidate)
		if errors.Is(err, repository.ErrShortCodeTaken) {
			observability.ShortCodeRetries.Inc()
			continue
		}
		if err != nil {
			return "", err
		}
		return s.linkFor(code), nil
	}
	return "", shortCodeError(shortcode.ErrExhausted)
}

func (s *RecipeService) linkFor(code string) string {
	return s.baseURL + ShortLinkPath + code
}

// Resolve maps a short code to its recipe id. Resolutions are cached since
// codes never change.
func (s *RecipeService) Resolve(ctx context.Context, code string) (uint, error) {
	if !shortcode.Valid(code) {
		observability.ShortLinkResolutions.WithLabelValues("invalid").Inc()
		return 0, &models.AppError{Code: models.CodeNotFound, Message: "short link not found"}
	}
	id, err := cache.Aside(ctx, s.cache, cache.ShortCodeKey(code), cache.ShortCodeTTL, func(ctx context.Context) (uint, error) {
		return s.recipes.IDByShortCode(ctx, code)
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			observability.ShortLinkResolutions.WithLabelValues("not_found").Inc()
		}
		return 0, err
	}
	observability.ShortLinkResolutions.WithLabelValues("found").Inc()
	return id, nil
}
