package repository

import (
	"context"
	"fmt"

	"foodgram/internal/models"

	"gorm.io/gorm"
)

// InteractionKind selects the favorites or the shopping-cart relation.
type InteractionKind int

const (
	Favorites InteractionKind = iota
	ShoppingCart
)

func (k InteractionKind) String() string {
	if k == ShoppingCart {
		return "shopping cart"
	}
	return "favorites"
}

func (k InteractionKind) model() any {
	if k == ShoppingCart {
		return &models.ShoppingCartEntry{}
	}
	return &models.Favorite{}
}

// InteractionRepository stores (user, recipe) membership pairs.
type InteractionRepository interface {
	// Add returns ErrDuplicate if the pair is already present.
	Add(ctx context.Context, kind InteractionKind, userID, recipeID uint) error
	// Remove reports whether a pair was deleted.
	Remove(ctx context.Context, kind InteractionKind, userID, recipeID uint) (bool, error)
	Exists(ctx context.Context, kind InteractionKind, userID, recipeID uint) (bool, error)
	// Marked returns which of recipeIDs userID has in kind.
	Marked(ctx context.Context, kind InteractionKind, userID uint, recipeIDs []uint) (map[uint]bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Add(ctx context.Context, kind InteractionKind, userID, recipeID uint) error {
	var row any
	switch kind {
	case Favorites:
		row = &models.Favorite{UserID: userID, RecipeID: recipeID}
	case ShoppingCart:
		row = &models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}
	default:
		return models.NewInternalError(fmt.Errorf("unknown interaction kind %d", kind))
	}

	if err := r.db.WithContext(ctx).Omit("User", "Recipe").Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *interactionRepository) Remove(ctx context.Context, kind InteractionKind, userID, recipeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.model())
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *interactionRepository) Exists(ctx context.Context, kind InteractionKind, userID, recipeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(kind.model()).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *interactionRepository) Marked(ctx context.Context, kind InteractionKind, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(kind.model()).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
