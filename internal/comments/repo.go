package comments

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

const commentSelect = `
	SELECT c.id, c.episode_id, c.user_id, u.username, u.image_url, c.content, c.created_at, c.updated_at
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var cm models.Comment
	if err := row.Scan(&cm.ID, &cm.EpisodeID, &cm.UserID, &cm.Username, &cm.ImageURL, &cm.Content, &cm.CreatedAt, &cm.UpdatedAt); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (r *Repo) Create(ctx context.Context, userID, episodeID, content string) (*models.Comment, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO comments (id, user_id, episode_id, content)
		VALUES (?, ?, ?, ?)
	`, id, userID, episodeID, content)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeNotFound, "episode not found", err)
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	cm, err := scanComment(r.DB.QueryRowContext(ctx, commentSelect+`WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("comment not found")
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return cm, nil
}

// ListByEpisode returns the episode's comments, newest first.
func (r *Repo) ListByEpisode(ctx context.Context, episodeID string, limit, offset int) ([]models.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, commentSelect+`
		WHERE c.episode_id = ?
		ORDER BY c.created_at DESC, c.rowid DESC
		LIMIT ? OFFSET ?
	`, episodeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// checkOwner reports a missing comment before a foreign one.
func (r *Repo) checkOwner(ctx context.Context, id, userID string) error {
	var owner string
	err := r.DB.QueryRowContext(ctx, `SELECT user_id FROM comments WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("comment not found")
		}
		return fmt.Errorf("load comment owner: %w", err)
	}
	if owner != userID {
		return apperrors.Forbidden("not your comment")
	}
	return nil
}

// Update rewrites the content of a comment owned by userID.
func (r *Repo) Update(ctx context.Context, id, userID, content string) (*models.Comment, error) {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return nil, err
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE comments
		SET content = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, content, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id, userID string) error {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM comments
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("comment not found")
	}
	return nil
}
