// Package testutil opens throwaway SQLite databases and seeds rows for tests.
// It only speaks SQL so feature packages can use it without import cycles.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"animehub/pkg/database"
	"animehub/pkg/utils"
)

// NewDB returns a migrated database under t.TempDir(), closed on cleanup.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "animehub.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts a user with the given role and returns its id.
func CreateUser(t *testing.T, db *sql.DB, username, role string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, ?, ?, 'x', ?)
	`, id, username, username+"@example.com", role)
	require.NoError(t, err)
	return id
}

// CreateAnime inserts an anime with a slug derived from title and returns its id.
func CreateAnime(t *testing.T, db *sql.DB, title string, totalEpisode int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO animes (id, title, slug, total_episode)
		VALUES (?, ?, ?, ?)
	`, id, title, utils.Slugify(title), totalEpisode)
	require.NoError(t, err)
	return id
}

// CreateEpisodes inserts episodes 1..n of season 1 directly, without
// reconciling the parent.
func CreateEpisodes(t *testing.T, db *sql.DB, animeID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, CreateEpisode(t, db, animeID, 1, i))
	}
	return ids
}

func CreateEpisode(t *testing.T, db *sql.DB, animeID string, season, number int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO episodes (id, anime_id, title, slug, season, number)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, animeID, "Episode", animeID+"-"+uuid.NewString()[:8], season, number)
	require.NoError(t, err)
	return id
}

// AnimeState reads back the derived columns of an anime.
func AnimeState(t *testing.T, db *sql.DB, animeID string) (status string, views int64) {
	t.Helper()
	err := db.QueryRowContext(context.Background(),
		`SELECT status, views FROM animes WHERE id = ?`, animeID).Scan(&status, &views)
	require.NoError(t, err)
	return status, views
}
