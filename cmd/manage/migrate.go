package main

import (
	"fmt"
	"strconv"

	"foodgram/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending SQL migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "auto",
			Short: "Run GORM AutoMigrate regardless of SCHEMA_MODE",
			Args:  cobra.NoArgs,
			RunE:  runMigrateAuto,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema mode and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "down [version]",
			Short: "Roll back one migration, the latest when no version is given",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runMigrateDown,
		},
	)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := database.RunMigrations(cmd.Context(), rt.DB); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	cmd.Println("sql migrations applied")
	return nil
}

func runMigrateAuto(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := database.AutoMigrate(rt.DB.WithContext(cmd.Context())); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	cmd.Println("automigrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	status, err := database.GetSchemaStatus(cmd.Context(), rt.DB, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	cmd.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		cmd.Printf("pending: %s\n", m.String())
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(args) == 0 {
		m, err := database.RollbackLatest(cmd.Context(), rt.DB)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		cmd.Printf("rolled back %s\n", m.String())
		return nil
	}

	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(cmd.Context(), rt.DB, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	cmd.Printf("rolled back migration %d\n", version)
	return nil
}
