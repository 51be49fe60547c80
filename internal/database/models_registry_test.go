package database

import (
	"testing"

	"foodgram/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_UsersBeforeDependents(t *testing.T) {
	all := PersistentModels()
	require.NotEmpty(t, all)
	_, ok := all[0].(*models.User)
	require.True(t, ok, "users must be migrated first")

	var sawRecipe bool
	for _, m := range all {
		switch m.(type) {
		case *models.Recipe:
			sawRecipe = true
		case *models.RecipeIngredient, *models.Favorite, *models.ShoppingCartEntry:
			require.True(t, sawRecipe, "recipe children must follow recipes")
		}
	}
}
