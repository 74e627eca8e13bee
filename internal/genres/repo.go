package genres

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

func (r *Repo) List(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, slug, created_at FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	out := make([]models.Genre, 0)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var g models.Genre
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, slug, created_at FROM genres WHERE slug = ?
	`, slug).Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get genre: %w", err)
	}
	return &g, nil
}

func (r *Repo) Create(ctx context.Context, name, slug string) (*models.Genre, error) {
	id := uuid.NewString()
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO genres (id, name, slug) VALUES (?, ?, ?)
	`, id, name, slug); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeConflict, "genre already exists", err)
		}
		return nil, fmt.Errorf("insert genre: %w", err)
	}
	return r.GetBySlug(ctx, slug)
}

func (r *Repo) Delete(ctx context.Context, slug string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM genres WHERE slug = ?`, slug)
	if err != nil {
		return false, fmt.Errorf("delete genre: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Link attaches genreID to animeID. Linking twice is a no-op.
func (r *Repo) Link(ctx context.Context, animeID, genreID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO anime_genres (anime_id, genre_id) VALUES (?, ?)
		ON CONFLICT(anime_id, genre_id) DO NOTHING
	`, animeID, genreID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrorTypeNotFound, "anime not found", err)
		}
		return fmt.Errorf("link genre: %w", err)
	}
	return nil
}

func (r *Repo) Unlink(ctx context.Context, animeID, genreID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM anime_genres WHERE anime_id = ? AND genre_id = ?
	`, animeID, genreID)
	if err != nil {
		return false, fmt.Errorf("unlink genre: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AnimeSummary is the short form of an anime listed under a genre.
type AnimeSummary struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Slug     string             `json:"slug"`
	ImageURL string             `json:"imageUrl,omitempty"`
	Status   models.AnimeStatus `json:"status"`
	Views    int64              `json:"views"`
}

func (r *Repo) Animes(ctx context.Context, genreID string) ([]AnimeSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.title, a.slug, a.image_url, a.status, a.views
		FROM anime_genres ag
		JOIN animes a ON a.id = ag.anime_id
		WHERE ag.genre_id = ?
		ORDER BY a.views DESC, a.title
	`, genreID)
	if err != nil {
		return nil, fmt.Errorf("animes by genre: %w", err)
	}
	defer rows.Close()

	out := make([]AnimeSummary, 0)
	for rows.Next() {
		var a AnimeSummary
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.ImageURL, &a.Status, &a.Views); err != nil {
			return nil, fmt.Errorf("scan anime: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
