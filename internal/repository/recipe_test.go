package repository

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRecipeRepository_CreateLoadsAssociations(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	flour := testutil.CreateIngredient(t, db, "flour", "g")
	sugar := testutil.CreateIngredient(t, db, "sugar", "g")
	lunch := testutil.CreateTag(t, db, "Lunch", "lunch")
	breakfast := testutil.CreateTag(t, db, "Breakfast", "breakfast")

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        "Pancakes",
		Text:        "Whisk and fry.",
		Image:       "recipes/images/1/uploaded_image.png",
		CookingTime: 15,
		ShortCode:   strPtr("abcd1234"),
	}
	ingredients := []models.RecipeIngredient{
		{IngredientID: flour.ID, Amount: 200},
		{IngredientID: sugar.ID, Amount: 30},
	}
	require.NoError(t, repo.Create(ctx, recipe, ingredients, []uint{lunch.ID, breakfast.ID}))
	require.NotZero(t, recipe.ID)

	got, err := repo.GetByID(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, author.Username, got.Author.Username)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Breakfast", got.Tags[0].Name)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "flour", got.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 200, got.Ingredients[0].Amount)
	assert.Equal(t, "abcd1234", *got.ShortCode)
}

func TestRecipeRepository_CreateShortCodeCollision(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	salt := testutil.CreateIngredient(t, db, "salt", "g")
	first := &models.Recipe{AuthorID: author.ID, Name: "A", Text: "a", Image: "a.png", CookingTime: 1, ShortCode: strPtr("SAMECODE")}
	require.NoError(t, repo.Create(ctx, first, []models.RecipeIngredient{{IngredientID: salt.ID, Amount: 1}}, nil))

	second := &models.Recipe{AuthorID: author.ID, Name: "B", Text: "b", Image: "b.png", CookingTime: 1, ShortCode: strPtr("SAMECODE")}
	err := repo.Create(ctx, second, []models.RecipeIngredient{{IngredientID: salt.ID, Amount: 1}}, nil)
	assert.ErrorIs(t, err, ErrShortCodeTaken)

	var n int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&n).Error)
	assert.Equal(t, int64(1), n, "failed create must not leave a partial recipe")
}

func TestRecipeRepository_CreateRollsBackOnBadAmount(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)

	author := testutil.CreateUser(t, db)
	salt := testutil.CreateIngredient(t, db, "salt", "g")
	recipe := &models.Recipe{AuthorID: author.ID, Name: "A", Text: "a", Image: "a.png", CookingTime: 1}
	err := repo.Create(context.Background(), recipe, []models.RecipeIngredient{{IngredientID: salt.ID, Amount: 0}}, nil)
	assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)

	var n int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRecipeRepository_UpdateReplacesAssociations(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	flour := testutil.CreateIngredient(t, db, "flour", "g")
	milk := testutil.CreateIngredient(t, db, "milk", "ml")
	lunch := testutil.CreateTag(t, db, "Lunch", "lunch")
	dinner := testutil.CreateTag(t, db, "Dinner", "dinner")
	recipe := testutil.CreateRecipe(t, db, author, map[uint]int{flour.ID: 100}, lunch)

	recipe.Name = "Renamed"
	recipe.CookingTime = 40
	err := repo.Update(ctx, recipe, []models.RecipeIngredient{{IngredientID: milk.ID, Amount: 250}}, []uint{dinner.ID})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 40, got.CookingTime)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, milk.ID, got.Ingredients[0].IngredientID)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "dinner", got.Tags[0].Slug)
}

func TestRecipeRepository_UpdateMissing(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)

	err := repo.Update(context.Background(), &models.Recipe{ID: 404, Name: "x", Text: "x", Image: "x", CookingTime: 1}, nil, nil)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestRecipeRepository_DeleteRemovesDependents(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	interactions := NewInteractionRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	fan := testutil.CreateUser(t, db)
	flour := testutil.CreateIngredient(t, db, "flour", "g")
	tag := testutil.CreateTag(t, db, "Lunch", "lunch")
	recipe := testutil.CreateRecipe(t, db, author, map[uint]int{flour.ID: 100}, tag)
	require.NoError(t, interactions.Add(ctx, Favorites, fan.ID, recipe.ID))
	require.NoError(t, interactions.Add(ctx, ShoppingCart, fan.ID, recipe.ID))

	require.NoError(t, repo.Delete(ctx, recipe.ID))

	for _, table := range []string{"favorites", "shopping_cart_entries", "recipe_ingredients", "recipe_tags", "recipes"} {
		var n int64
		require.NoError(t, db.Table(table).Count(&n).Error)
		assert.Zero(t, n, table)
	}

	err := repo.Delete(ctx, recipe.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestRecipeRepository_ListFilters(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	interactions := NewInteractionRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db)
	bob := testutil.CreateUser(t, db)
	egg := testutil.CreateIngredient(t, db, "egg", "pcs")
	lunch := testutil.CreateTag(t, db, "Lunch", "lunch")
	dinner := testutil.CreateTag(t, db, "Dinner", "dinner")

	r1 := testutil.CreateRecipe(t, db, alice, map[uint]int{egg.ID: 1}, lunch)
	r2 := testutil.CreateRecipe(t, db, alice, map[uint]int{egg.ID: 2}, dinner)
	r3 := testutil.CreateRecipe(t, db, bob, map[uint]int{egg.ID: 3}, lunch, dinner)
	require.NoError(t, interactions.Add(ctx, Favorites, bob.ID, r1.ID))
	require.NoError(t, interactions.Add(ctx, ShoppingCart, bob.ID, r2.ID))

	ids := func(rs []models.Recipe) []uint {
		out := make([]uint, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter RecipeFilter
		want   []uint
	}{
		{"all newest first", RecipeFilter{}, []uint{r3.ID, r2.ID, r1.ID}},
		{"by author", RecipeFilter{AuthorID: alice.ID}, []uint{r2.ID, r1.ID}},
		{"any of tags", RecipeFilter{TagSlugs: []string{"lunch"}}, []uint{r3.ID, r1.ID}},
		{"tag union has no duplicates", RecipeFilter{TagSlugs: []string{"lunch", "dinner"}}, []uint{r3.ID, r2.ID, r1.ID}},
		{"favorited", RecipeFilter{FavoritedBy: bob.ID}, []uint{r1.ID}},
		{"in cart", RecipeFilter{InCartOf: bob.ID}, []uint{r2.ID}},
		{"combined", RecipeFilter{AuthorID: bob.ID, FavoritedBy: bob.ID}, []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.filter, Page{Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("paged", func(t *testing.T) {
		got, total, err := repo.List(ctx, RecipeFilter{}, Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []uint{r1.ID}, ids(got))
	})
}

func TestRecipeRepository_ShortCodes(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	recipe := testutil.CreateRecipe(t, db, author, nil)

	exists, err := repo.ShortCodeExists(ctx, "Zz123456")
	require.NoError(t, err)
	assert.False(t, exists)

	code, err := repo.SetShortCode(ctx, recipe.ID, "Zz123456")
	require.NoError(t, err)
	assert.Equal(t, "Zz123456", code)

	// A second assignment keeps the first code.
	code, err = repo.SetShortCode(ctx, recipe.ID, "Other999")
	require.NoError(t, err)
	assert.Equal(t, "Zz123456", code)

	id, err := repo.IDByShortCode(ctx, "Zz123456")
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, id)

	_, err = repo.IDByShortCode(ctx, "missing0")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	other := testutil.CreateRecipe(t, db, author, nil)
	_, err = repo.SetShortCode(ctx, other.ID, "Zz123456")
	assert.ErrorIs(t, err, ErrShortCodeTaken)
}

func TestRecipeRepository_CountByAuthor(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewRecipeRepository(db)

	alice := testutil.CreateUser(t, db)
	bob := testutil.CreateUser(t, db)
	testutil.CreateRecipe(t, db, alice, nil)
	testutil.CreateRecipe(t, db, alice, nil)

	counts, err := repo.CountByAuthor(context.Background(), []uint{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[alice.ID])
	assert.Zero(t, counts[bob.ID])

	recent, err := repo.ListByAuthor(context.Background(), alice.ID, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestShoppingListRepository_AggregateSumsAcrossCart(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewShoppingListRepository(db)
	interactions := NewInteractionRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db)
	shopper := testutil.CreateUser(t, db)
	flour := testutil.CreateIngredient(t, db, "flour", "g")
	sugar := testutil.CreateIngredient(t, db, "sugar", "g")
	sugarCups := testutil.CreateIngredient(t, db, "sugar", "cup")
	eggs := testutil.CreateIngredient(t, db, "eggs", "pcs")

	r1 := testutil.CreateRecipe(t, db, author, map[uint]int{flour.ID: 200, sugar.ID: 50})
	r2 := testutil.CreateRecipe(t, db, author, map[uint]int{flour.ID: 100, sugarCups.ID: 1})
	testutil.CreateRecipe(t, db, author, map[uint]int{eggs.ID: 6})
	require.NoError(t, interactions.Add(ctx, ShoppingCart, shopper.ID, r1.ID))
	require.NoError(t, interactions.Add(ctx, ShoppingCart, shopper.ID, r2.ID))

	items, err := repo.Aggregate(ctx, shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ShoppingItem{
		{Name: "flour", Unit: "g", Total: 300},
		{Name: "sugar", Unit: "cup", Total: 1},
		{Name: "sugar", Unit: "g", Total: 50},
	}, items)

	empty, err := repo.Aggregate(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
