package repository

import (
	"context"
	"errors"

	"foodgram/internal/models"

	"gorm.io/gorm"
)

// ErrShortCodeTaken is returned when a write collides on recipes.short_code.
var ErrShortCodeTaken = errors.New("repository: short code already taken")

// RecipeFilter narrows List. Zero values mean "no filter".
type RecipeFilter struct {
	AuthorID uint
	TagSlugs []string
	// FavoritedBy and InCartOf restrict to recipes that user has marked.
	FavoritedBy uint
	InCartOf    uint
}

// RecipeRepository persists recipes together with their associations. Every
// write is a single transaction.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient, tagIDs []uint) error
	Update(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient, tagIDs []uint) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	// GetMeta loads the recipe row without associations.
	GetMeta(ctx context.Context, id uint) (*models.Recipe, error)
	List(ctx context.Context, filter RecipeFilter, page Page) ([]models.Recipe, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error)
	CountByAuthor(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	IDByShortCode(ctx context.Context, code string) (uint, error)
	// SetShortCode stores code only if the recipe has none yet and returns the
	// code the recipe ends up with.
	SetShortCode(ctx context.Context, id uint, code string) (string, error)
}

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient, tagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, ingredients, tagIDs)
	})
	return mapWriteError(err)
}

func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient, tagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).
			Where("id = ?", recipe.ID).
			Updates(map[string]any{
				"name":         recipe.Name,
				"text":         recipe.Text,
				"image":        recipe.Image,
				"cooking_time": recipe.CookingTime,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, ingredients, tagIDs)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("Recipe", recipe.ID)
	}
	return mapWriteError(err)
}

// replaceAssociations inserts the ingredient and tag rows of a recipe whose
// previous associations have already been cleared.
func replaceAssociations(tx *gorm.DB, recipeID uint, ingredients []models.RecipeIngredient, tagIDs []uint) error {
	if len(ingredients) > 0 {
		rows := make([]models.RecipeIngredient, len(ingredients))
		for i, ri := range ingredients {
			rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: ri.IngredientID, Amount: ri.Amount}
		}
		if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
			return err
		}
	}
	for _, tagID := range tagIDs {
		if err := tx.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipeID, tagID).Error; err != nil {
			return err
		}
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case violates(err, "short_code"):
		return ErrShortCodeTaken
	case isUniqueViolation(err):
		return models.NewValidationError("ingredients and tags must not repeat")
	case isCheckViolation(err):
		return models.NewValidationError("cooking time and amounts must be at least 1")
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}

// Delete removes the recipe and every row that references it.
func (r *recipeRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.Favorite{}, &models.ShoppingCartEntry{}, &models.RecipeIngredient{}} {
			if err := tx.Where("recipe_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Recipe", id)
	}
	return nil
}

func (r *recipeRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.withAssociations(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "Recipe", id)
	}
	return &recipe, nil
}

func (r *recipeRepository) GetMeta(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "Recipe", id)
	}
	return &recipe, nil
}

func (r *recipeRepository) filtered(ctx context.Context, f RecipeFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Recipe{})
	if f.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		q = q.Where("recipes.id IN (?)", r.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if f.FavoritedBy != 0 {
		q = q.Where("recipes.id IN (?)", r.db.Model(&models.Favorite{}).
			Select("recipe_id").Where("user_id = ?", f.FavoritedBy))
	}
	if f.InCartOf != 0 {
		q = q.Where("recipes.id IN (?)", r.db.Model(&models.ShoppingCartEntry{}).
			Select("recipe_id").Where("user_id = ?", f.InCartOf))
	}
	return q
}

// List returns one page of recipes matching f, newest first, with associations loaded.
func (r *recipeRepository) List(ctx context.Context, f RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var ids []uint
	q := r.filtered(ctx, f).Order("recipes.created_at DESC").Order("recipes.id DESC")
	if err := page.scope(q).Pluck("recipes.id", &ids).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return []models.Recipe{}, total, nil
	}

	var recipes []models.Recipe
	if err := r.withAssociations(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").Order("id DESC").
		Find(&recipes).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return recipes, total, nil
}

func (r *recipeRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	q := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

func (r *recipeRepository) CountByAuthor(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.AuthorID] = row.Total
	}
	return out, nil
}

func (r *recipeRepository) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("short_code = ?", code).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *recipeRepository) IDByShortCode(ctx context.Context, code string) (uint, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).Select("id").Where("short_code = ?", code).First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &models.AppError{Code: models.CodeNotFound, Message: "short link not found"}
		}
		return 0, models.NewInternalError(err)
	}
	return recipe.ID, nil
}

func (r *recipeRepository) SetShortCode(ctx context.Context, id uint, code string) (string, error) {
	res := r.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ? AND short_code IS NULL", id).
		Update("short_code", code)
	if res.Error != nil {
		if violates(res.Error, "short_code") {
			return "", ErrShortCodeTaken
		}
		return "", models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 1 {
		return code, nil
	}

	// Someone else assigned a code first, or the recipe is gone.
	recipe, err := r.GetMeta(ctx, id)
	if err != nil {
		return "", err
	}
	if !recipe.HasShortCode() {
		return "", models.NewInternalError(errors.New("short code was not persisted"))
	}
	return *recipe.ShortCode, nil
}
