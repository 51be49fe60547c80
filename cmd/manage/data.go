package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"foodgram/internal/bootstrap"
	"foodgram/internal/media"
	"foodgram/internal/seed"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	ingredientsPath string
	tagsPath        string

	seedOpts = seed.DefaultOptions()

	loadDataCmd = &cobra.Command{
		Use:   "load-data",
		Short: "Import tags and ingredients from CSV files",
		Long: `Import reference data. Without flags the bundled lists are loaded.
Ingredient files need a "name,measurement_unit" header and tag files a
"name,slug" header. Malformed rows are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: runLoadData,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo users, recipes and interactions",
		Args:  cobra.NoArgs,
		RunE:  runSeed,
	}
)

func init() {
	loadDataCmd.Flags().StringVar(&ingredientsPath, "ingredients", "", "ingredients CSV file")
	loadDataCmd.Flags().StringVar(&tagsPath, "tags", "", "tags CSV file")

	seedCmd.Flags().IntVar(&seedOpts.NumUsers, "users", seedOpts.NumUsers, "number of users to create")
	seedCmd.Flags().IntVar(&seedOpts.RecipesPerUser, "recipes", seedOpts.RecipesPerUser, "recipes per user")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed, 0 for a random run")
	seedCmd.Flags().BoolVar(&seedOpts.ShouldClean, "clean", false, "delete existing users and recipes first")
	seedCmd.Flags().BoolVar(&seedOpts.SkipFixtures, "no-fixtures", false, "skip the bundled hand-written recipes")
}

func runLoadData(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if ingredientsPath == "" && tagsPath == "" {
		tags, ingredients, err := seed.LoadReferenceData(cmd.Context(), rt.DB)
		if err != nil {
			return err
		}
		cmd.Printf("tags: %s\ningredients: %s\n", tags, ingredients)
		return nil
	}

	if tagsPath != "" {
		report, err := importFile(cmd.Context(), rt.DB, tagsPath, seed.LoadTagsCSV)
		if err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		cmd.Printf("tags: %s\n", report)
	}
	if ingredientsPath != "" {
		report, err := importFile(cmd.Context(), rt.DB, ingredientsPath, seed.LoadIngredientsCSV)
		if err != nil {
			return fmt.Errorf("ingredients: %w", err)
		}
		cmd.Printf("ingredients: %s\n", report)
	}
	return nil
}

type csvLoader func(ctx context.Context, db *gorm.DB, r io.Reader) (seed.ImportReport, error)

func importFile(ctx context.Context, db *gorm.DB, path string, load csvLoader) (seed.ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return seed.ImportReport{}, err
	}
	defer f.Close()
	return load(ctx, db, f)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	summary, err := seed.NewSeeder(rt.DB, media.NewStore(cfg.MediaRoot, nil), seedOpts).Run(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("created %d users, %d recipes, %d favorites, %d cart entries, %d subscriptions\n",
		summary.Users, summary.Recipes, summary.Favorites, summary.CartEntries, summary.Subscriptions)
	cmd.Printf("every demo account uses the password %q\n", seed.DemoPassword)
	return nil
}
