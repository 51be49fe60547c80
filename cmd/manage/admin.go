package main

import (
	"errors"
	"fmt"
	"strings"

	"foodgram/internal/database"
	"foodgram/internal/models"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	resetConfirmed bool

	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Grant, revoke and list admin rights",
	}

	resetDBCmd = &cobra.Command{
		Use:   "reset-db",
		Short: "DANGER: drop every table and recreate the schema",
		Args:  cobra.NoArgs,
		RunE:  runResetDB,
	}
)

func init() {
	adminCmd.AddCommand(
		&cobra.Command{
			Use:   "promote <email>",
			Short: "Make an account admin",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return setAdmin(cmd, args[0], true) },
		},
		&cobra.Command{
			Use:   "demote <email>",
			Short: "Revoke admin rights",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return setAdmin(cmd, args[0], false) },
		},
		&cobra.Command{
			Use:   "list",
			Short: "List admin accounts",
			Args:  cobra.NoArgs,
			RunE:  runListAdmins,
		},
	)
	resetDBCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm that all data will be lost")
	rootCmd.AddCommand(adminCmd, resetDBCmd)
}

func setAdmin(cmd *cobra.Command, email string, admin bool) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var user models.User
	err = rt.DB.WithContext(cmd.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no account with email %s", email)
	}
	if err != nil {
		return err
	}

	if user.IsAdmin == admin {
		cmd.Printf("%s is already in the requested state\n", user.Username)
		return nil
	}
	if err := rt.DB.WithContext(cmd.Context()).Model(&user).Update("is_admin", admin).Error; err != nil {
		return err
	}
	cmd.Printf("%s admin=%t\n", user.Username, admin)
	return nil
}

func runListAdmins(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var admins []models.User
	if err := rt.DB.WithContext(cmd.Context()).Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
		return err
	}
	if len(admins) == 0 {
		cmd.Println("no admin accounts")
		return nil
	}
	for _, a := range admins {
		cmd.Printf("%d\t%s\t%s\n", a.ID, a.Username, a.Email)
	}
	return nil
}

func runResetDB(cmd *cobra.Command, _ []string) error {
	if !resetConfirmed {
		return errors.New("refusing to drop data without --yes")
	}
	if cfg.IsProduction() {
		return errors.New("reset-db is disabled in production")
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	db := rt.DB.WithContext(cmd.Context())
	if db.Dialector.Name() == "postgres" {
		for _, stmt := range []string{
			"DROP SCHEMA public CASCADE",
			"CREATE SCHEMA public",
			"GRANT ALL ON SCHEMA public TO public",
		} {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
	} else {
		tables := append(database.PersistentModels(), &database.MigrationLog{}, "recipe_tags")
		if err := db.Migrator().DropTable(tables...); err != nil {
			return err
		}
	}

	if err := database.ApplySchema(cmd.Context(), rt.DB, cfg); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	cmd.Println("database reset")
	return nil
}
