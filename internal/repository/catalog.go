package repository

import (
	"context"
	"strings"

	"foodgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository reads and upserts tags and ingredients.
type CatalogRepository interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	// MissingTagIDs returns the ids in ids that have no tag row.
	MissingTagIDs(ctx context.Context, ids []uint) ([]uint, error)
	// MissingIngredientIDs returns the ids in ids that have no ingredient row.
	MissingIngredientIDs(ctx context.Context, ids []uint) ([]uint, error)
	UpsertTag(ctx context.Context, tag *models.Tag) error
	UpsertIngredient(ctx context.Context, ing *models.Ingredient) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *catalogRepository) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "Tag", id)
	}
	return &tag, nil
}

// ListIngredients matches namePrefix case-insensitively against the start of
// the name.
func (r *catalogRepository) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	var out []models.Ingredient
	q := r.db.WithContext(ctx).Order("name ASC").Order("measurement_unit ASC")
	if p := strings.TrimSpace(namePrefix); p != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(p))+"%")
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *catalogRepository) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := r.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, notFoundOr(err, "Ingredient", id)
	}
	return &ing, nil
}

func (r *catalogRepository) MissingTagIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return missingIDs(ctx, r.db, &models.Tag{}, ids)
}

func (r *catalogRepository) MissingIngredientIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return missingIDs(ctx, r.db, &models.Ingredient{}, ids)
}

func missingIDs(ctx context.Context, db *gorm.DB, model any, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// UpsertTag inserts tag or updates the name of the tag with the same slug.
func (r *catalogRepository) UpsertTag(ctx context.Context, tag *models.Tag) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(tag).Error
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("tag name already used by another slug")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpsertIngredient inserts ing unless (name, unit) already exists.
func (r *catalogRepository) UpsertIngredient(ctx context.Context, ing *models.Ingredient) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "measurement_unit"}},
		DoNothing: true,
	}).Create(ing).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
