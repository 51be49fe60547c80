// Command manage runs administrative tasks against the Foodgram database:
// schema migrations, reference data import and demo seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"foodgram/internal/bootstrap"
	"foodgram/internal/config"
	"foodgram/internal/middleware"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "manage",
		Short:         "Administrative commands for the Foodgram backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			middleware.InitLogger(loaded.Env, os.Getenv("LOG_LEVEL"))
			cfg = loaded
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd, loadDataCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		middleware.Logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openRuntime connects without touching the schema or Redis.
func openRuntime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	return bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{SkipSchema: true, SkipRedis: true})
}
