// Package bootstrap wires the database, schema and Redis that every command
// needs before doing real work.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched, for commands that manage it
	// themselves. The admin account is not ensured either.
	SkipSchema bool
	// SkipRedis never dials Redis.
	SkipRedis bool
	// LoadReferenceData imports the bundled tags and ingredients.
	LoadReferenceData bool
}

// Runtime is the set of shared connections a command works with.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Close releases both connections.
func (r *Runtime) Close() {
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if err := database.Close(r.DB); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}
}

// InitRuntime connects to the database, applies the schema, dials Redis and
// ensures the configured admin account. A missing Redis is not fatal.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			rt.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if opts.LoadReferenceData || (cfg.LoadReferenceData && !opts.SkipSchema) {
		tags, ingredients, err := seed.LoadReferenceData(ctx, db)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("load reference data: %w", err)
		}
		middleware.Logger.Info("reference data loaded",
			slog.String("tags", tags.String()),
			slog.String("ingredients", ingredients.String()))
	}

	if !opts.SkipSchema {
		if err := EnsureAdmin(ctx, db, cfg); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	if !opts.SkipRedis {
		rt.Redis = cache.Connect(ctx, cfg.RedisURL)
	}
	return rt, nil
}

// EnsureAdmin creates the account named by ADMIN_EMAIL or promotes it when it
// already exists. The password of an existing account is left alone.
func EnsureAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if cfg == nil || cfg.AdminEmail == "" {
		return nil
	}
	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		err := tx.Where("email = ?", cfg.AdminEmail).First(&admin).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin = models.User{
				Username:  username,
				Email:     cfg.AdminEmail,
				FirstName: "Foodgram",
				LastName:  "Admin",
				Password:  string(hash),
				IsAdmin:   true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
			middleware.Logger.Info("admin account created", slog.String("email", admin.Email))
		case err != nil:
			return err
		case !admin.IsAdmin:
			if err := tx.Model(&admin).Update("is_admin", true).Error; err != nil {
				return err
			}
			middleware.Logger.Info("existing account promoted to admin", slog.String("email", admin.Email))
		}
		return nil
	})
}
