package database

import (
	"context"
	"testing"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: NewGormLogger(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN_DefaultsSSLMode(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "blog"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=blog sslmode=disable", dsn)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestApplySchema_AutoModeCreatesTables(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.Empty(t, missingIndexes(db))
}

func TestSchemaStatus_ReportsMissingLikeIndex(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	require.NoError(t, db.Migrator().DropIndex(&models.PostLike{}, "idx_post_likes_user_post"))

	missing := missingIndexes(db)
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0], "idx_post_likes_user_post")

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto})
	require.NoError(t, err)
	assert.Equal(t, missing, status.MissingIndexes)
	assert.False(t, status.WillRunSQL)
}

func TestRegisterMetrics_DoesNotBreakQueries(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RegisterMetrics(db))
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	u := &models.User{Name: "Ann", Email: "ann@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", u.ID).Error)
	assert.Equal(t, "Ann", got.Name)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	require.GreaterOrEqual(t, len(all), 2)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init_blog", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS post_likes")
	assert.NotEmpty(t, all[0].DownScript)

	m := GetMigrationByVersion(2)
	require.NotNil(t, m)
	assert.Equal(t, "000002_search_indexes", m.String())

	m = GetMigrationByVersion(3)
	require.NotNil(t, m)
	assert.Contains(t, m.UpScript, "idx_posts_image")
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}
