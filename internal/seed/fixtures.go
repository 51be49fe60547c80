package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"foodgram/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written demo recipe. Tags are referenced by slug and
// ingredients by (name, unit), both of which must already exist.
type Fixture struct {
	Name        string              `yaml:"name"`
	Text        string              `yaml:"text"`
	CookingTime int                 `yaml:"cooking_time"`
	Tags        []string            `yaml:"tags"`
	Ingredients []FixtureIngredient `yaml:"ingredients"`
}

type FixtureIngredient struct {
	Name   string `yaml:"name"`
	Unit   string `yaml:"unit"`
	Amount int    `yaml:"amount"`
}

type fixtureFile struct {
	Recipes []Fixture `yaml:"recipes"`
}

// ParseFixtures decodes a recipes YAML document. Unknown keys are rejected.
func ParseFixtures(r io.Reader) ([]Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file fixtureFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, f := range file.Recipes {
		if strings.TrimSpace(f.Name) == "" || f.CookingTime < models.MinCookingTime || len(f.Ingredients) == 0 {
			return nil, fmt.Errorf("fixture %d (%q): name, cooking_time and ingredients are required", i, f.Name)
		}
	}
	return file.Recipes, nil
}

// BundledFixtures returns the recipes shipped with the binary.
func BundledFixtures() ([]Fixture, error) {
	f, err := dataFS.Open("data/recipes.yaml")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFixtures(f)
}

// resolve maps the fixture's references onto catalog rows.
func (f Fixture) resolve(ctx context.Context, db *gorm.DB) ([]models.Tag, []models.RecipeIngredient, error) {
	var tags []models.Tag
	if len(f.Tags) > 0 {
		if err := db.WithContext(ctx).Where("slug IN ?", f.Tags).Find(&tags).Error; err != nil {
			return nil, nil, err
		}
		if len(tags) != len(f.Tags) {
			return nil, nil, fmt.Errorf("recipe %q: unknown tag in %v", f.Name, f.Tags)
		}
	}

	rows := make([]models.RecipeIngredient, 0, len(f.Ingredients))
	for _, item := range f.Ingredients {
		var ing models.Ingredient
		err := db.WithContext(ctx).
			Where("name = ? AND measurement_unit = ?", item.Name, item.Unit).
			First(&ing).Error
		if err != nil {
			return nil, nil, fmt.Errorf("recipe %q: ingredient %s (%s): %w", f.Name, item.Name, item.Unit, err)
		}
		rows = append(rows, models.RecipeIngredient{IngredientID: ing.ID, Amount: max(item.Amount, models.MinIngredientAmount)})
	}
	return tags, rows, nil
}
