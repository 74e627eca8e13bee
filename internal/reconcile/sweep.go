package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrSweepLocked is returned when another process holds the sweep lock.
var ErrSweepLocked = errors.New("reconcile sweep already running")

// SweepResult summarises one pass over every anime.
type SweepResult struct {
	Animes   int           `json:"animes"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Sweeper repairs status and view drift left behind by concurrent requests.
// The file lock keeps the CLI and the API server from sweeping together.
type Sweeper struct {
	Reconciler *Reconciler
	LockPath   string
	Schedule   string
	Log        *zap.Logger

	cron  *cron.Cron
	first sync.WaitGroup
}

func NewSweeper(r *Reconciler, lockPath, schedule string, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{Reconciler: r, LockPath: lockPath, Schedule: schedule, Log: log}
}

// RunOnce reconciles every anime. A failing anime is logged and counted and
// does not stop the pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()

	if s.LockPath != "" {
		lock := flock.New(s.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return SweepResult{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			return SweepResult{}, ErrSweepLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.Log.Warn("release sweep lock", zap.Error(err))
			}
		}()
	}

	ids, err := s.Reconciler.Store.AnimeIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Animes: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.Reconciler.AnimeStatus(ctx, id); err != nil {
			res.Failed++
			s.Log.Warn("sweep status", zap.String("anime_id", id), zap.Error(err))
			continue
		}
		if _, _, err := s.Reconciler.AnimeViews(ctx, id); err != nil {
			res.Failed++
			s.Log.Warn("sweep views", zap.String("anime_id", id), zap.Error(err))
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Start runs one sweep in the background right away and then on the
// schedule. Stop must be called on shutdown.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.Schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.Schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.Schedule, err)
	}
	s.cron = c

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.run(ctx)
	}()
	c.Start()
	s.Log.Info("reconcile sweep scheduled", zap.String("schedule", s.Schedule))
	return nil
}

// Stop waits for the startup sweep and any scheduled one to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.first.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepLocked):
		s.Log.Info("reconcile sweep skipped, lock held elsewhere")
	case err != nil:
		s.Log.Error("reconcile sweep", zap.Error(err))
	default:
		s.Log.Info("reconcile sweep done",
			zap.Int("animes", res.Animes),
			zap.Int("failed", res.Failed),
			zap.Duration("duration", res.Duration),
		)
	}
}
