package repository

import (
	"context"

	"foodgram/internal/models"

	"gorm.io/gorm"
)

// ShoppingListRepository computes shopping lists from cart contents.
type ShoppingListRepository interface {
	Aggregate(ctx context.Context, userID uint) ([]models.ShoppingItem, error)
}

type shoppingListRepository struct {
	db *gorm.DB
}

func NewShoppingListRepository(db *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

// Aggregate sums ingredient amounts over every recipe in userID's cart,
// grouped by ingredient name and unit and ordered by name.
func (r *shoppingListRepository) Aggregate(ctx context.Context, userID uint) ([]models.ShoppingItem, error) {
	var items []models.ShoppingItem
	err := r.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS unit, SUM(ri.amount) AS total").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_cart_entries c ON c.recipe_id = ri.recipe_id").
		Where("c.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name ASC").Order("i.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}
