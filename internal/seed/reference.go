package seed

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed data/*
var dataFS embed.FS

// ImportReport counts the rows of one reference file.
type ImportReport struct {
	Imported int
	Skipped  int
}

func (r ImportReport) String() string {
	return fmt.Sprintf("imported=%d skipped=%d", r.Imported, r.Skipped)
}

// LoadIngredientsCSV upserts ingredients from a CSV with a
// "name,measurement_unit" header. Existing (name, unit) pairs are left as is.
func LoadIngredientsCSV(ctx context.Context, db *gorm.DB, r io.Reader) (ImportReport, error) {
	return importCSV(ctx, db, r, []string{"name", "measurement_unit"}, func(tx *gorm.DB, row []string) error {
		ing := models.Ingredient{Name: row[0], MeasurementUnit: row[1]}
		if tooLong(ing.Name, models.MaxIngredientNameLength) || tooLong(ing.MeasurementUnit, models.MaxMeasurementUnitLength) {
			return errSkipRow
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "measurement_unit"}},
			DoNothing: true,
		}).Create(&ing).Error
	})
}

// LoadTagsCSV upserts tags from a CSV with a "name,slug" header. A row whose
// slug exists renames that tag.
func LoadTagsCSV(ctx context.Context, db *gorm.DB, r io.Reader) (ImportReport, error) {
	return importCSV(ctx, db, r, []string{"name", "slug"}, func(tx *gorm.DB, row []string) error {
		tag := models.Tag{Name: row[0], Slug: strings.ToLower(row[1])}
		if tooLong(tag.Name, models.MaxTagNameLength) || tooLong(tag.Slug, models.MaxTagSlugLength) {
			return errSkipRow
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&tag).Error
	})
}

// LoadReferenceData imports the bundled tag and ingredient lists.
func LoadReferenceData(ctx context.Context, db *gorm.DB) (tags, ingredients ImportReport, err error) {
	f, err := dataFS.Open("data/tags.csv")
	if err != nil {
		return tags, ingredients, err
	}
	defer f.Close()
	if tags, err = LoadTagsCSV(ctx, db, f); err != nil {
		return tags, ingredients, fmt.Errorf("tags: %w", err)
	}

	g, err := dataFS.Open("data/ingredients.csv")
	if err != nil {
		return tags, ingredients, err
	}
	defer g.Close()
	if ingredients, err = LoadIngredientsCSV(ctx, db, g); err != nil {
		return tags, ingredients, fmt.Errorf("ingredients: %w", err)
	}
	return tags, ingredients, nil
}

var errSkipRow = errors.New("row skipped")

// importCSV checks the header, normalizes every field to NFC and hands each
// well-formed row to upsert inside one transaction. Malformed rows are logged
// and counted, never fatal.
func importCSV(ctx context.Context, db *gorm.DB, r io.Reader, header []string, upsert func(*gorm.DB, []string) error) (ImportReport, error) {
	var report ImportReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("read header: %w", err)
	}
	for i := range first {
		first[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(first[i], "\ufeff")))
	}
	if !slices.Equal(first, header) {
		return report, fmt.Errorf("unexpected header %q, want %q", strings.Join(first, ","), strings.Join(header, ","))
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			line, _ := reader.FieldPos(0)
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					middleware.Logger.WarnContext(ctx, "skipping malformed csv row", slog.Int("line", line), slog.Any("error", err))
					report.Skipped++
					continue
				}
				return err
			}
			if !normalizeRow(row, len(header)) {
				middleware.Logger.WarnContext(ctx, "skipping incomplete csv row", slog.Int("line", line), slog.Any("row", row))
				report.Skipped++
				continue
			}

			switch err := upsert(tx, row); {
			case errors.Is(err, errSkipRow):
				middleware.Logger.WarnContext(ctx, "skipping oversized csv row", slog.Int("line", line))
				report.Skipped++
			case err != nil:
				return fmt.Errorf("line %d: %w", line, err)
			default:
				report.Imported++
			}
		}
	})
	return report, err
}

// normalizeRow trims and NFC-normalizes row in place. It reports false when
// the column count is wrong or a field is empty.
func normalizeRow(row []string, want int) bool {
	if len(row) != want {
		return false
	}
	for i, field := range row {
		row[i] = norm.NFC.String(strings.TrimSpace(field))
		if row[i] == "" {
			return false
		}
	}
	return true
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}
