package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Schema modes, selected with DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid" // versioned SQL, plus AutoMigrate outside production
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// uniqueIndex is an index the blog relies on for correctness rather than speed.
type uniqueIndex struct {
	model any
	name  string
	// guards names the behavior that breaks without the index.
	guards string
}

// requiredIndexes back the duplicate-free like rows (ON CONFLICT DO NOTHING
// needs the unique target) and the one-account-per-email rule.
var requiredIndexes = []uniqueIndex{
	{model: &models.PostLike{}, name: "idx_post_likes_user_post", guards: "one like per user and post"},
	{model: &models.User{}, name: "idx_users_email", guards: "unique account email"},
}

// SchemaStatus is what `migrate status` prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingIndexes     []string
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which of the two schema paths run. AutoMigrate never
// runs against a production-like database unless explicitly allowed.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the users, posts, comments and post_likes tables up to
// date and then checks that the unique indexes the like and signup paths
// depend on exist.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	mode := normalizedSchemaMode(cfg)
	span, ctx := observability.NewSpan(ctx, "schema.apply",
		attribute.String("schema.mode", mode),
		attribute.Bool("schema.run_sql", runSQL),
		attribute.Bool("schema.run_auto", runAuto),
	)
	defer span.End()

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			span.SetError(err)
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("auto-migrating blog models",
			slog.String("mode", mode),
			slog.String("env", cfg.Env),
			slog.Int("models", len(PersistentModels())),
		)
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			span.SetError(err)
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := missingIndexes(db.WithContext(ctx)); len(missing) > 0 {
		err := fmt.Errorf("schema is missing required indexes: %s", strings.Join(missing, "; "))
		span.SetError(err)
		return err
	}
	return nil
}

// missingIndexes lists required indexes that are absent, with what each guards.
func missingIndexes(db *gorm.DB) []string {
	var missing []string
	for _, idx := range requiredIndexes {
		if !db.Migrator().HasIndex(idx.model, idx.name) {
			missing = append(missing, fmt.Sprintf("%s (%s)", idx.name, idx.guards))
		}
	}
	return missing
}

// GetSchemaStatus reports the schema policy, the applied and pending SQL
// migrations and any missing required index.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		MissingIndexes:     missingIndexes(db.WithContext(ctx)),
	}
	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
