// Package seed loads reference data and generates demo content for local
// development. Nothing here runs on the request path.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	"foodgram/internal/media"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is shared by every generated account.
const DemoPassword = "foodgram-demo"

const placeholderImage = "recipes/images/placeholder.png"

// Options configures a Seeder run.
type Options struct {
	NumUsers       int
	RecipesPerUser int
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed        int64
	ShouldClean bool
	// SkipFixtures disables the bundled hand-written recipes.
	SkipFixtures bool
}

// DefaultOptions is a small but fully connected demo dataset.
func DefaultOptions() Options {
	return Options{NumUsers: 8, RecipesPerUser: 3}
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Recipes       int
	Favorites     int
	CartEntries   int
	Subscriptions int
}

// Seeder populates the database with demo users, recipes and interactions.
type Seeder struct {
	db      *gorm.DB
	recipes repository.RecipeRepository
	images  *media.Store
	faker   *gofakeit.Faker
	opts    Options
}

// NewSeeder binds a seeder to db. images may be nil, in which case recipes
// point at a placeholder path instead of generated files.
func NewSeeder(db *gorm.DB, images *media.Store, opts Options) *Seeder {
	return &Seeder{
		db:      db,
		recipes: repository.NewRecipeRepository(db),
		images:  images,
		faker:   gofakeit.New(opts.Seed),
		opts:    opts,
	}
}

// Run seeds reference data, users, recipes and interactions in that order.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	if s.opts.ShouldClean {
		if err := Clean(ctx, s.db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	tagReport, ingReport, err := LoadReferenceData(ctx, s.db)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "reference data loaded",
		slog.String("tags", tagReport.String()),
		slog.String("ingredients", ingReport.String()),
	)

	summary := &Summary{}
	users, err := s.createUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	var tags []models.Tag
	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}

	var recipeIDs []uint
	if !s.opts.SkipFixtures {
		ids, err := s.createFixtureRecipes(ctx, users[0])
		if err != nil {
			return nil, fmt.Errorf("fixtures: %w", err)
		}
		recipeIDs = append(recipeIDs, ids...)
	}
	for _, user := range users {
		for range s.opts.RecipesPerUser {
			recipe, err := s.createRandomRecipe(ctx, user, tags, ingredients)
			if err != nil {
				return nil, fmt.Errorf("recipe for %s: %w", user.Username, err)
			}
			recipeIDs = append(recipeIDs, recipe.ID)
		}
	}
	summary.Recipes = len(recipeIDs)

	if err := s.createInteractions(ctx, users, recipeIDs, summary); err != nil {
		return nil, fmt.Errorf("interactions: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", summary.Users),
		slog.Int("recipes", summary.Recipes),
		slog.Int("favorites", summary.Favorites),
		slog.Int("cart_entries", summary.CartEntries),
		slog.Int("subscriptions", summary.Subscriptions),
	)
	return summary, nil
}

// Clean removes all user content. Reference tags and ingredients stay.
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM favorites",
			"DELETE FROM shopping_cart_entries",
			"DELETE FROM recipe_tags",
			"DELETE FROM recipe_ingredients",
			"DELETE FROM recipes",
			"DELETE FROM subscriptions",
			"DELETE FROM users",
		} {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Seeder) createUsers(ctx context.Context, n int) ([]*models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	// One hash for all accounts keeps large runs fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := range n {
		first, last := s.faker.FirstName(), s.faker.LastName()
		username := fmt.Sprintf("%s%s%d", strings.ToLower(first), strings.ToLower(last), i+1)
		user := &models.User{
			Username:  username,
			Email:     username + "@foodgram.local",
			FirstName: first,
			LastName:  last,
			Password:  string(hash),
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createFixtureRecipes(ctx context.Context, author *models.User) ([]uint, error) {
	fixtures, err := BundledFixtures()
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(fixtures))
	for _, f := range fixtures {
		tags, rows, err := f.resolve(ctx, s.db)
		if err != nil {
			return nil, err
		}
		recipe := &models.Recipe{
			AuthorID:    author.ID,
			Name:        f.Name,
			Text:        strings.TrimSpace(f.Text),
			CookingTime: f.CookingTime,
		}
		if err := s.save(ctx, recipe, rows, tagIDs(tags)); err != nil {
			return nil, err
		}
		ids = append(ids, recipe.ID)
	}
	return ids, nil
}

func (s *Seeder) createRandomRecipe(ctx context.Context, author *models.User, tags []models.Tag, ingredients []models.Ingredient) (*models.Recipe, error) {
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("no ingredients loaded")
	}

	var picked []uint
	for _, i := range s.pick(len(tags), s.faker.IntRange(1, 3)) {
		picked = append(picked, tags[i].ID)
	}
	var rows []models.RecipeIngredient
	for _, i := range s.pick(len(ingredients), s.faker.IntRange(2, 6)) {
		rows = append(rows, models.RecipeIngredient{
			IngredientID: ingredients[i].ID,
			Amount:       s.faker.IntRange(1, 50) * 10,
		})
	}

	name := strings.TrimSuffix(s.faker.Dessert(), ".")
	if s.faker.Bool() {
		name = s.faker.Dinner()
	}
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        truncate(name, models.MaxRecipeNameLength),
		Text:        s.faker.Paragraph(2, 3, 12, "\n"),
		CookingTime: s.faker.IntRange(5, 120),
	}
	return recipe, s.save(ctx, recipe, rows, picked)
}

// save stores a generated image for recipe and inserts it with its
// associations. Short codes stay unset until someone asks for a link.
func (s *Seeder) save(ctx context.Context, recipe *models.Recipe, rows []models.RecipeIngredient, tagIDs []uint) error {
	recipe.Image = placeholderImage
	if s.images != nil {
		img, err := s.swatch()
		if err != nil {
			return err
		}
		path, err := s.images.Save(ctx, media.RecipeImage, uuid.NewString(), img)
		if err != nil {
			return err
		}
		recipe.Image = path
	}
	return s.recipes.Create(ctx, recipe, rows, tagIDs)
}

// swatch renders a small solid-color PNG.
func (s *Seeder) swatch() (*media.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{R: s.faker.Uint8(), G: s.faker.Uint8(), B: s.faker.Uint8(), A: 255}
	for y := range 64 {
		for x := range 64 {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &media.Image{Ext: "png", Data: buf.Bytes(), Decoded: img}, nil
}

func (s *Seeder) createInteractions(ctx context.Context, users []*models.User, recipeIDs []uint, summary *Summary) error {
	if len(recipeIDs) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true})

	for _, user := range users {
		for _, i := range s.pick(len(recipeIDs), s.faker.IntRange(0, min(5, len(recipeIDs)))) {
			res := db.Create(&models.Favorite{UserID: user.ID, RecipeID: recipeIDs[i]})
			if res.Error != nil {
				return res.Error
			}
			summary.Favorites += int(res.RowsAffected)
		}
		for _, i := range s.pick(len(recipeIDs), s.faker.IntRange(0, min(3, len(recipeIDs)))) {
			res := db.Create(&models.ShoppingCartEntry{UserID: user.ID, RecipeID: recipeIDs[i]})
			if res.Error != nil {
				return res.Error
			}
			summary.CartEntries += int(res.RowsAffected)
		}
		for _, i := range s.pick(len(users), s.faker.IntRange(0, min(3, len(users)))) {
			author := users[i]
			if author.ID == user.ID {
				continue
			}
			res := db.Create(&models.Subscription{UserID: user.ID, AuthorID: author.ID})
			if res.Error != nil {
				return res.Error
			}
			summary.Subscriptions += int(res.RowsAffected)
		}
	}
	return nil
}

// pick returns k distinct indexes below n.
func (s *Seeder) pick(n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleInts(idx)
	return idx[:min(k, n)]
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
