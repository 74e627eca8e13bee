// Package reconcile keeps the derived columns of an anime in line with the
// rows they are computed from.
package reconcile

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"animehub/internal/sync"
	"animehub/pkg/models"
)

type Reconciler struct {
	Store *Store
	// ZeroTargetOngoing keeps an anime with totalEpisode 0 ONGOING even when
	// it has no episodes.
	ZeroTargetOngoing bool
	Events            sync.Publisher
	Log               *zap.Logger
}

func New(db *sql.DB, events sync.Publisher, log *zap.Logger) *Reconciler {
	if events == nil {
		events = sync.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{Store: NewStore(db), Events: events, Log: log}
}

// DesiredStatus is COMPLETED exactly when count matches the declared total.
func DesiredStatus(count, total int, zeroTargetOngoing bool) models.AnimeStatus {
	if total == 0 && zeroTargetOngoing {
		return models.StatusOngoing
	}
	if count == total {
		return models.StatusCompleted
	}
	return models.StatusOngoing
}

// AnimeStatus recomputes the status of animeID from its episode count. A
// missing anime is not an error.
func (r *Reconciler) AnimeStatus(ctx context.Context, animeID string) error {
	snap, err := r.Store.Snapshot(ctx, animeID)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	desired := DesiredStatus(snap.EpisodeCount, snap.TotalEpisode, r.ZeroTargetOngoing)
	if desired == snap.Status {
		return nil
	}

	changed, err := r.Store.SetStatus(ctx, animeID, desired)
	if err != nil {
		return err
	}
	if changed {
		r.Log.Info("anime status changed",
			zap.String("anime_id", animeID),
			zap.String("from", string(snap.Status)),
			zap.String("to", string(desired)),
			zap.Int("episodes", snap.EpisodeCount),
			zap.Int("total_episode", snap.TotalEpisode),
		)
		r.publish(sync.Event{Type: sync.EventAnimeStatus, AnimeID: animeID, Status: desired})
	}
	return nil
}

// AnimeStatuses reconciles each id in order and stops at the first store
// error. Empty ids are skipped so callers can pass an unchanged parent as "".
func (r *Reconciler) AnimeStatuses(ctx context.Context, animeIDs ...string) error {
	seen := make(map[string]bool, len(animeIDs))
	for _, id := range animeIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if err := r.AnimeStatus(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AnimeViews recounts the unique viewers of animeID and stores the total.
// anime.views goes out only when the stored total moved.
func (r *Reconciler) AnimeViews(ctx context.Context, animeID string) (int64, bool, error) {
	views, changed, found, err := r.Store.RecountViews(ctx, animeID)
	if err != nil || !found {
		return views, found, err
	}
	if changed {
		r.publish(sync.Event{Type: sync.EventAnimeViews, AnimeID: animeID, Views: views})
	}
	return views, true, nil
}

func (r *Reconciler) publish(ev sync.Event) {
	if r.Events != nil {
		r.Events.Publish(ev)
	}
}
