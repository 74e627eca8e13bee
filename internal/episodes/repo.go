package episodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

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

// Input is the writable part of an episode.
type Input struct {
	AnimeID  string
	Title    string
	Slug     string
	Season   int
	Number   int
	VideoURL string
	Duration int
}

const episodeColumns = `id, anime_id, title, slug, season, number, video_url, duration, created_at, updated_at`

func scanEpisode(row interface{ Scan(...any) error }) (*models.Episode, error) {
	var e models.Episode
	if err := row.Scan(&e.ID, &e.AnimeID, &e.Title, &e.Slug, &e.Season, &e.Number,
		&e.VideoURL, &e.Duration, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*models.Episode, error) {
	e, err := scanEpisode(r.DB.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return e, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Episode, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Episode, error) {
	return r.getOne(ctx, `slug = ?`, slug)
}

// AnimeSlug returns "" when the anime does not exist.
func (r *Repo) AnimeSlug(ctx context.Context, animeID string) (string, error) {
	var slug string
	err := r.DB.QueryRowContext(ctx, `SELECT slug FROM animes WHERE id = ?`, animeID).Scan(&slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("anime slug: %w", err)
	}
	return slug, nil
}

// List returns episodes in anime, season, number order, optionally for one anime.
func (r *Repo) List(ctx context.Context, animeID string, limit, offset int) ([]models.Episode, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + episodeColumns + ` FROM episodes`
	var args []any
	if animeID != "" {
		query += ` WHERE anime_id = ?`
		args = append(args, animeID)
	}
	query += ` ORDER BY anime_id, season, number LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Episode, 0)
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func mapWriteErr(what string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return apperrors.Wrap(apperrors.ErrorTypeConflict, "episode number or slug already in use", err)
	case database.IsForeignKeyViolation(err):
		return apperrors.Wrap(apperrors.ErrorTypeNotFound, "anime not found", err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (r *Repo) Create(ctx context.Context, in Input) (*models.Episode, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO episodes (id, anime_id, title, slug, season, number, video_url, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.AnimeID, in.Title, in.Slug, in.Season, in.Number, in.VideoURL, in.Duration)
	if err != nil {
		return nil, mapWriteErr("insert episode", err)
	}
	return r.GetByID(ctx, id)
}

// Update rewrites every writable column of id, including its parent anime.
func (r *Repo) Update(ctx context.Context, id string, in Input) (*models.Episode, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE episodes
		SET anime_id = ?, title = ?, slug = ?, season = ?, number = ?,
		    video_url = ?, duration = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, in.AnimeID, in.Title, in.Slug, in.Season, in.Number, in.VideoURL, in.Duration, id)
	if err != nil {
		return nil, mapWriteErr("update episode", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Delete removes id and returns the anime it belonged to, or "" when there
// was no such episode.
func (r *Repo) Delete(ctx context.Context, id string) (string, error) {
	var animeID string
	err := r.DB.QueryRowContext(ctx, `DELETE FROM episodes WHERE id = ? RETURNING anime_id`, id).Scan(&animeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("delete episode: %w", err)
	}
	return animeID, nil
}
