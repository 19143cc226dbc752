// Package bootstrap wires the process-level dependencies shared by the cmd binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/database"
	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/redisclient"
	"github.com/quantu99/Test-Beincom-BE/internal/seed"
	"github.com/quantu99/Test-Beincom-BE/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFixtures loads the demo data set when the users table is empty.
	SeedFixtures bool
}

// Runtime holds the connections a server process needs.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Assets storage.AssetStore
}

// InitRuntime connects to the database, Redis and the asset store and
// optionally seeds demo content. Redis is optional: an unreachable server
// yields a nil client.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	assets, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("asset storage: %w", err)
	}

	rt := &Runtime{
		DB:     db,
		Redis:  redisclient.Connect(ctx, cfg.RedisURL),
		Assets: assets,
	}

	if opts.SeedFixtures {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
	}
	return rt, nil
}

// Close releases the Redis client and database pool.
func (rt *Runtime) Close() error {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	sqlDB, err := rt.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var users int64
	if err := db.WithContext(ctx).Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}
	res, err := seed.Seed(ctx, db, seed.Options{})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "seeded fixture data", "result", res.String())
	return nil
}
