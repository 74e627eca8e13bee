package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")

	db, err := OpenAndMigrate(Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'daily_visits'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := DSN("/tmp/x.db")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_journal_mode=WAL")
}

func TestMigrateAddsColumnsToOlderTables(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "old.db")})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		token_version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	ok, err := hasColumn(db, "users", "image_url")
	require.NoError(t, err)
	assert.True(t, ok)
}
