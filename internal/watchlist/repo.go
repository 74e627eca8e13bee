package watchlist

import (
	"context"
	"database/sql"
	"fmt"

	"animehub/pkg/database"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// AddFavorite is idempotent; a missing anime is reported as not found.
func (r *Repo) AddFavorite(ctx context.Context, userID, animeID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, anime_id) VALUES (?, ?)
		ON CONFLICT(user_id, anime_id) DO NOTHING
	`, userID, animeID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrorTypeNotFound, "anime not found", err)
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, animeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND anime_id = ?
	`, userID, animeID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Favorites(ctx context.Context, userID string, limit, offset int) ([]models.Favorite, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM favorites WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT f.user_id, f.anime_id, a.title, a.slug, a.image_url, f.created_at
		FROM favorites f
		JOIN animes a ON a.id = f.anime_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, a.title
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]models.Favorite, 0)
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.UserID, &f.AnimeID, &f.Title, &f.Slug, &f.ImageURL, &f.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// AddWatchLater is idempotent; a missing episode is reported as not found.
func (r *Repo) AddWatchLater(ctx context.Context, userID, episodeID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watch_later (user_id, episode_id) VALUES (?, ?)
		ON CONFLICT(user_id, episode_id) DO NOTHING
	`, userID, episodeID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrorTypeNotFound, "episode not found", err)
		}
		return fmt.Errorf("add watch later: %w", err)
	}
	return nil
}

func (r *Repo) RemoveWatchLater(ctx context.Context, userID, episodeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM watch_later WHERE user_id = ? AND episode_id = ?
	`, userID, episodeID)
	if err != nil {
		return false, fmt.Errorf("remove watch later: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) WatchLater(ctx context.Context, userID string) ([]models.WatchLaterItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT w.user_id, e.id, e.title, e.number, e.season, e.slug,
		       a.id, a.title, a.slug, w.created_at
		FROM watch_later w
		JOIN episodes e ON e.id = w.episode_id
		JOIN animes a ON a.id = e.anime_id
		WHERE w.user_id = ?
		ORDER BY w.created_at DESC, a.title, e.season, e.number
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch later: %w", err)
	}
	defer rows.Close()

	out := make([]models.WatchLaterItem, 0)
	for rows.Next() {
		var it models.WatchLaterItem
		if err := rows.Scan(
			&it.UserID, &it.EpisodeID, &it.EpisodeTitle, &it.EpisodeNumber, &it.EpisodeSeason, &it.EpisodeSlug,
			&it.AnimeID, &it.AnimeTitle, &it.AnimeSlug, &it.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan watch later: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
