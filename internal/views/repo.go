package views

import (
	"context"
	"database/sql"
	"fmt"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) AnimeExists(ctx context.Context, animeID string) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM animes WHERE id = ?`, animeID).Scan(&n); err != nil {
		return false, fmt.Errorf("anime exists: %w", err)
	}
	return n > 0, nil
}

// Record stores that userID viewed animeID. Repeat views are ignored and
// reported as inserted=false.
func (r *Repo) Record(ctx context.Context, animeID, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO anime_views (anime_id, user_id)
		VALUES (?, ?)
		ON CONFLICT(anime_id, user_id) DO NOTHING
	`, animeID, userID)
	if err != nil {
		return false, fmt.Errorf("record view: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record view rows: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns the views of userID, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.AnimeView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT anime_id, user_id, created_at
		FROM anime_views
		WHERE user_id = ?
		ORDER BY created_at DESC, anime_id
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	out := make([]models.AnimeView, 0)
	for rows.Next() {
		var v models.AnimeView
		if err := rows.Scan(&v.AnimeID, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan view row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
