package ratings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const ratingColumns = `id, user_id, anime_id, score, review, created_at, updated_at`

func scanRating(row interface{ Scan(...any) error }) (*models.Rating, error) {
	var r models.Rating
	if err := row.Scan(&r.ID, &r.UserID, &r.AnimeID, &r.Score, &r.Review, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// AnimeIDBySlug returns "" when no anime has slug.
func (r *Repo) AnimeIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM animes WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("anime by slug: %w", err)
	}
	return id, nil
}

// Upsert creates the caller's rating for the anime or overwrites its score
// and review. A user never has more than one rating per anime.
func (r *Repo) Upsert(ctx context.Context, userID, animeID string, score float64, review string) (*models.Rating, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO ratings (id, user_id, anime_id, score, review)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, anime_id) DO UPDATE SET
			score = excluded.score,
			review = excluded.review,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), userID, animeID, score, review)
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}
	return r.GetByUserAnime(ctx, userID, animeID)
}

func (r *Repo) GetByUserAnime(ctx context.Context, userID, animeID string) (*models.Rating, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+ratingColumns+`
		FROM ratings
		WHERE user_id = ? AND anime_id = ?
	`, userID, animeID)
	rating, err := scanRating(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return rating, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Rating, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = ?`, id)
	rating, err := scanRating(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return rating, nil
}

// Summary aggregates every rating of the anime. It is always computed from
// the full table so it cannot drift.
func (r *Repo) Summary(ctx context.Context, animeID string) (models.RatingSummary, error) {
	var (
		count int
		sum   float64
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(score), 0)
		FROM ratings
		WHERE anime_id = ?
	`, animeID).Scan(&count, &sum)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	if count == 0 {
		return models.RatingSummary{}, nil
	}
	return models.RatingSummary{
		AverageScore: RoundScore(sum / float64(count)),
		TotalRatings: count,
	}, nil
}

// RoundScore rounds to one decimal, halves away from zero.
func RoundScore(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// DeleteOwn removes the caller's rating of the anime.
func (r *Repo) DeleteOwn(ctx context.Context, userID, animeID string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM ratings WHERE user_id = ? AND anime_id = ?
	`, userID, animeID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rating rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("rating not found")
	}
	return nil
}

// DeleteByID removes rating id if userID owns it and returns the anime it
// belonged to.
func (r *Repo) DeleteByID(ctx context.Context, id, userID string) (string, error) {
	rating, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rating == nil {
		return "", apperrors.NotFound("rating not found")
	}
	if rating.UserID != userID {
		return "", apperrors.Forbidden("not your rating")
	}

	if _, err := r.DB.ExecContext(ctx, `
		DELETE FROM ratings WHERE id = ? AND user_id = ?
	`, id, userID); err != nil {
		return "", fmt.Errorf("delete rating: %w", err)
	}
	return rating.AnimeID, nil
}

func (r *Repo) ListByAnime(ctx context.Context, animeID string, limit, offset int) ([]models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+ratingColumns+`
		FROM ratings
		WHERE anime_id = ?
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, animeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Rating, 0, limit)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		out = append(out, *rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
