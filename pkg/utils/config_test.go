package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/database"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "animehub.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeTOML(t, `
[database]
path = "/tmp/animehub-test.db"

[visits]
timezone = "Asia/Ho_Chi_Minh"

[reconcile]
schedule = "@every 30m"
zero_target_ongoing = true
`)
	t.Setenv("ANIMEHUB_HTTP_ADDR", ":18080")
	t.Setenv("ANIMEHUB_JWT_TTL_HOURS", "6")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/animehub-test.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/animehub-test.db.reconcile.lock", cfg.Reconcile.LockPath)
	assert.Equal(t, ":18080", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, 6*time.Hour, cfg.Auth.JWTDuration())
	assert.True(t, cfg.Reconcile.ZeroTargetOngoing)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Location().String())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	prod := Default()
	prod.Env = EnvProduction
	assert.Error(t, prod.Validate())
	prod.Auth.JWTSecret = "s3cret"
	assert.NoError(t, prod.Validate())

	badTZ := Default()
	badTZ.Visits.Timezone = "Mars/Olympus"
	assert.Error(t, badTZ.Validate())

	badCron := Default()
	badCron.Reconcile.Schedule = "every hour please"
	assert.Error(t, badCron.Validate())

	badFormat := Default()
	badFormat.Log.Format = "xml"
	assert.Error(t, badFormat.Validate())
}

func TestJWTDurationDefault(t *testing.T) {
	assert.Equal(t, 24*time.Hour, AuthConfig{}.JWTDuration())
}

func TestDatabaseSectionOpens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "animehub.db")
	path := writeTOML(t, "[database]\npath = \""+filepath.ToSlash(dbPath)+"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NoError(t, database.EnsureDataDir(cfg.Database))
	db, err := database.OpenAndMigrate(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
