package models

import "time"

const (
	MaxTagNameLength         = 32
	MaxTagSlugLength         = 32
	MaxIngredientNameLength  = 128
	MaxMeasurementUnitLength = 64
	MaxRecipeNameLength      = 256
	MinCookingTime           = 1
	MinIngredientAmount      = 1
	ShortCodeLength          = 8
)

// Tag labels recipes. Seeded reference data.
type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:32;uniqueIndex;not null"`
	Slug string `gorm:"size:32;uniqueIndex;not null"`
}

func (Tag) TableName() string {
	return "tags"
}

// Ingredient is unique on (name, measurement unit).
type Ingredient struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit;index:idx_ingredient_name"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

// Recipe is owned by its author and owns its RecipeIngredient rows.
type Recipe struct {
	ID          uint    `gorm:"primaryKey"`
	AuthorID    uint    `gorm:"not null;index"`
	Author      User    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name        string  `gorm:"size:256;not null;index"`
	Text        string  `gorm:"type:text;not null"`
	Image       string  `gorm:"size:255;not null"`
	CookingTime int     `gorm:"not null;check:chk_recipe_cooking_time,cooking_time >= 1"`
	ShortCode   *string `gorm:"size:10;uniqueIndex"`

	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Recipe) TableName() string {
	return "recipes"
}

// HasShortCode reports whether a short code was already assigned.
func (r *Recipe) HasShortCode() bool {
	return r.ShortCode != nil && *r.ShortCode != ""
}

// RecipeIngredient is the association row carrying the quantity used.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredient_amount,amount >= 1"`
}

func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// Favorite marks a recipe as favorited by a user.
type Favorite struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_favorite_pair;index"`
	CreatedAt time.Time

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCartEntry puts a recipe in a user's shopping cart.
type ShoppingCartEntry struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_pair"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_cart_pair;index"`
	CreatedAt time.Time

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (ShoppingCartEntry) TableName() string {
	return "shopping_cart_entries"
}

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name  string
	Unit  string
	Total int64
}
