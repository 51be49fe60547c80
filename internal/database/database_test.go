package database

import (
	"context"
	"testing"
	"testing/fstest"

	"foodgram/internal/config"
	"foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestLoadMigrations_OrdersAndPairsScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("CREATE TABLE b (id int);")},
		"m/000002_second.down.sql": {Data: []byte("DROP TABLE b;")},
		"m/000001_first.up.sql":    {Data: []byte("CREATE TABLE a (id int);")},
		"m/000001_first.down.sql":  {Data: []byte("DROP TABLE a;")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	got, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "DROP TABLE a;", got[0].DownScript)
	assert.Equal(t, "000002_second", got[1].String())
}

func TestLoadMigrations_MissingDownScript(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000001_first.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreRegistered(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS recipes")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid in development", config.Config{Env: "development", DBDriver: "postgres", SchemaMode: "hybrid"}, true, true, false},
		{"hybrid in production", config.Config{Env: "production", DBDriver: "postgres", SchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBDriver: "postgres", SchemaMode: "sql"}, true, false, false},
		{"auto refused in production", config.Config{Env: "production", DBDriver: "postgres", SchemaMode: "auto"}, false, false, true},
		{"sqlite always auto", config.Config{Env: "production", DBDriver: "sqlite", SchemaMode: "sql"}, false, true, false},
		{"unknown mode", config.Config{Env: "development", DBDriver: "postgres", SchemaMode: "magic"}, false, false, true},
	}

	for _, tt := range tests {
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

func TestApplySchema_SQLiteAutoMigrates(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{Env: "test", DBDriver: "sqlite"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasTable("recipe_tags"))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.Equal(t, SchemaModeAuto, status.Mode)
	assert.False(t, status.WillRunSQL)
}

func TestAutoMigrate_EnforcesSubscriptionConstraints(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	a := models.User{Username: "a", Email: "a@example.com", FirstName: "A", LastName: "A", Password: "x"}
	b := models.User{Username: "b", Email: "b@example.com", FirstName: "B", LastName: "B", Password: "x"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	assert.Error(t, db.Create(&models.Subscription{UserID: a.ID, AuthorID: a.ID}).Error, "self subscription must violate check")
	require.NoError(t, db.Create(&models.Subscription{UserID: a.ID, AuthorID: b.ID}).Error)
	assert.Error(t, db.Create(&models.Subscription{UserID: a.ID, AuthorID: b.ID}).Error, "duplicate pair must violate unique index")
}

func TestMigrationStore_AppliedVersionsOnEmptyDatabase(t *testing.T) {
	db := openSQLite(t)
	versions, err := NewMigrationStore(db).AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 7}, registered), "000007")
}
