package views

import (
	"context"

	"animehub/internal/reconcile"
	apperrors "animehub/pkg/errors"
)

// Service records unique viewers and keeps animes.views equal to their count.
type Service struct {
	Repo       *Repo
	Reconciler *reconcile.Reconciler
}

func NewService(repo *Repo, rec *reconcile.Reconciler) *Service {
	return &Service{Repo: repo, Reconciler: rec}
}

// Register records the view and returns the recounted total. Calling it
// twice for the same user leaves the total unchanged.
func (s *Service) Register(ctx context.Context, animeID, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.Unauthorized("login required")
	}
	ok, err := s.Repo.AnimeExists(ctx, animeID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperrors.NotFound("anime not found")
	}

	if _, err := s.Repo.Record(ctx, animeID, userID); err != nil {
		return 0, err
	}

	total, found, err := s.Reconciler.AnimeViews(ctx, animeID)
	if err != nil {
		return 0, err
	}
	if !found {
		// deleted between the insert and the recount
		return 0, apperrors.NotFound("anime not found")
	}
	return total, nil
}
