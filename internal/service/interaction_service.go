package service

import (
	"context"
	"errors"

	"foodgram/internal/models"
	"foodgram/internal/repository"
)

// InteractionService toggles favorites and shopping-cart membership.
type InteractionService struct {
	recipes      repository.RecipeRepository
	interactions repository.InteractionRepository
}

func NewInteractionService(recipes repository.RecipeRepository, interactions repository.InteractionRepository) *InteractionService {
	return &InteractionService{recipes: recipes, interactions: interactions}
}

func (s *InteractionService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, repository.Favorites, userID, recipeID)
}

func (s *InteractionService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, repository.Favorites, userID, recipeID)
}

func (s *InteractionService) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, repository.ShoppingCart, userID, recipeID)
}

func (s *InteractionService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, repository.ShoppingCart, userID, recipeID)
}

// add returns the recipe row so callers can render the short recipe shape.
func (s *InteractionService) add(ctx context.Context, kind repository.InteractionKind, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.recipes.GetMeta(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	exists, err := s.interactions.Exists(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError("recipe already in " + kind.String())
	}
	if err := s.interactions.Add(ctx, kind, userID, recipeID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError("recipe already in " + kind.String())
		}
		return nil, err
	}
	return recipe, nil
}

func (s *InteractionService) remove(ctx context.Context, kind repository.InteractionKind, userID, recipeID uint) error {
	if _, err := s.recipes.GetMeta(ctx, recipeID); err != nil {
		return err
	}
	removed, err := s.interactions.Remove(ctx, kind, userID, recipeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewValidationError("recipe not in " + kind.String())
	}
	return nil
}
