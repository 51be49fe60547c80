// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"foodgram/internal/database"
	"foodgram/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// OpenSQLite returns an auto-migrated in-memory database with foreign keys
// enforced. It is closed when t finishes.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with unique username and email.
func CreateUser(t testing.TB, db *gorm.DB) *models.User {
	t.Helper()
	n := seq.Add(1)
	user := &models.User{
		Username:  fmt.Sprintf("cook%d", n),
		Email:     fmt.Sprintf("cook%d@example.com", n),
		FirstName: "Test",
		LastName:  "Cook",
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateTag(t testing.TB, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t testing.TB, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

// CreateRecipe inserts a recipe by author with the given ingredient amounts
// keyed by ingredient id, and links tags.
func CreateRecipe(t testing.TB, db *gorm.DB, author *models.User, amounts map[uint]int, tags ...*models.Tag) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        fmt.Sprintf("Recipe %d", seq.Add(1)),
		Text:        "Mix and bake.",
		Image:       "recipes/images/placeholder.png",
		CookingTime: 10,
	}
	require.NoError(t, db.Omit("Author", "Tags", "Ingredients").Create(recipe).Error)
	for ingID, amount := range amounts {
		row := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ingID, Amount: amount}
		require.NoError(t, db.Omit("Ingredient").Create(&row).Error)
	}
	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, tag.ID).Error)
	}
	return recipe
}
