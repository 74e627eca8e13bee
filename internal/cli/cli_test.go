package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/testutil"
	"animehub/internal/visits"
	"animehub/pkg/database"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tempDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("ANIMEHUB_DB_PATH", path)
	_, err := run(t, "migrate")
	require.NoError(t, err)

	db, err := database.Open(database.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return path, db
}

func TestMigrateCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cli.db")
	t.Setenv("ANIMEHUB_DB_PATH", path)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)
}

func TestImportThenReconcile(t *testing.T) {
	_, db := tempDB(t)

	file := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`animes:
  - title: Dennou Coil
    total_episode: 1
    episodes:
      - number: 1
        title: Megane
`), 0o644))

	out, err := run(t, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 animes, 1 episodes")

	var id, status string
	require.NoError(t, db.QueryRow(`SELECT id, status FROM animes WHERE slug = 'dennou-coil'`).Scan(&id, &status))
	assert.Equal(t, "COMPLETED", status)

	_, err = db.Exec(`UPDATE animes SET status = 'ONGOING', views = 42 WHERE id = ?`, id)
	require.NoError(t, err)

	out, err = run(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "reconciled 1 animes, 0 failed")
	st, views := testutil.AnimeState(t, db, id)
	assert.Equal(t, "COMPLETED", st)
	assert.Zero(t, views)

	_, err = run(t, "reconcile", "--anime", "missing")
	assert.Error(t, err)
}

func TestImportNeedsSource(t *testing.T) {
	tempDB(t)
	_, err := run(t, "import")
	assert.ErrorContains(t, err, "nothing to import")
}

func TestVisits(t *testing.T) {
	_, db := tempDB(t)
	repo := visits.NewRepo(db, time.UTC)
	day := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		_, err := repo.Increment(context.Background(), day)
		require.NoError(t, err)
	}
	_, err := repo.Increment(context.Background(), day.AddDate(0, 0, 1))
	require.NoError(t, err)

	out, err := run(t, "visits", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "date,count\n2024-01-01,2\n2024-01-02,1\n", out)

	out, err = run(t, "visits", "--from", "2024-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-02")
	assert.NotContains(t, out, "2024-01-01")
	assert.Contains(t, strings.ToLower(out), "total")
}

func TestPromote(t *testing.T) {
	_, db := tempDB(t)
	testutil.CreateUser(t, db, "mika", auth.RoleUser)

	out, err := run(t, "promote", "Mika@Example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "is now admin")

	var role string
	var version int
	require.NoError(t, db.QueryRow(`SELECT role, token_version FROM users WHERE username = 'mika'`).Scan(&role, &version))
	assert.Equal(t, auth.RoleAdmin, role)
	assert.Equal(t, 1, version)

	_, err = run(t, "promote", "nobody@example.com")
	assert.ErrorContains(t, err, "no user")
}
