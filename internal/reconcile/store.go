package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"animehub/pkg/models"
)

// Store is the only code that writes animes.status and animes.views.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Snapshot is what the status rule needs to know about one anime.
type Snapshot struct {
	TotalEpisode int
	EpisodeCount int
	Status       models.AnimeStatus
}

// Snapshot returns nil, nil when the anime does not exist.
func (s *Store) Snapshot(ctx context.Context, animeID string) (*Snapshot, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT a.total_episode,
		       (SELECT COUNT(*) FROM episodes e WHERE e.anime_id = a.id),
		       a.status
		FROM animes a
		WHERE a.id = ?
	`, animeID)

	var snap Snapshot
	if err := row.Scan(&snap.TotalEpisode, &snap.EpisodeCount, &snap.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load anime snapshot: %w", err)
	}
	return &snap, nil
}

// SetStatus writes status only when it differs from the stored one and
// reports whether a row changed.
func (s *Store) SetStatus(ctx context.Context, animeID string, status models.AnimeStatus) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE animes SET status = ? WHERE id = ? AND status <> ?
	`, status, animeID, status)
	if err != nil {
		return false, fmt.Errorf("set anime status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set anime status rows: %w", err)
	}
	return n > 0, nil
}

// RecountViews sets views to the number of view rows and returns it. changed
// is false when the stored value was already right, found is false when the
// anime does not exist.
func (s *Store) RecountViews(ctx context.Context, animeID string) (views int64, changed, found bool, err error) {
	err = s.DB.QueryRowContext(ctx, `
		UPDATE animes
		SET views = (SELECT COUNT(*) FROM anime_views v WHERE v.anime_id = animes.id)
		WHERE id = ?
		  AND views <> (SELECT COUNT(*) FROM anime_views v WHERE v.anime_id = animes.id)
		RETURNING views
	`, animeID).Scan(&views)
	if err == nil {
		return views, true, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, false, fmt.Errorf("recount views: %w", err)
	}

	err = s.DB.QueryRowContext(ctx, `SELECT views FROM animes WHERE id = ?`, animeID).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, false, nil
		}
		return 0, false, false, fmt.Errorf("read views: %w", err)
	}
	return views, false, true, nil
}

func (s *Store) AnimeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM animes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list anime ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan anime id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
