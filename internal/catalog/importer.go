package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"animehub/internal/reconcile"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// Result counts what one import wrote.
type Result struct {
	Animes   int      `json:"animes"`
	Episodes int      `json:"episodes"`
	Genres   int      `json:"genres"`
	Skipped  int      `json:"skipped"`
	AnimeIDs []string `json:"animeIds"`
}

// Importer upserts merged entries. It never touches status or views; every
// imported anime is handed to the reconciler once the rows are committed.
type Importer struct {
	DB         *sql.DB
	Reconciler *reconcile.Reconciler
	Log        *zap.Logger
}

func NewImporter(db *sql.DB, rec *reconcile.Reconciler, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{DB: db, Reconciler: rec, Log: log}
}

// Run fetches from every source, merges and imports.
func (im *Importer) Run(ctx context.Context, sources ...Source) (Result, error) {
	entries, err := NewAggregator(im.Log, sources...).FetchAndMerge(ctx)
	if err != nil {
		return Result{}, err
	}
	return im.Import(ctx, entries)
}

func (im *Importer) Import(ctx context.Context, entries []models.CatalogEntry) (Result, error) {
	var res Result

	tx, err := im.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		slug := Key(e)
		if e.Title == "" || slug == "" || e.TotalEpisode < 0 {
			im.Log.Warn("skipping catalog entry", zap.String("title", e.Title), zap.String("slug", e.Slug))
			res.Skipped++
			continue
		}

		animeID, err := upsertAnime(ctx, tx, slug, e)
		if err != nil {
			return Result{}, err
		}
		res.Animes++
		res.AnimeIDs = append(res.AnimeIDs, animeID)

		for _, ep := range e.Episodes {
			if ep.Number < 1 {
				res.Skipped++
				continue
			}
			if err := upsertEpisode(ctx, tx, animeID, slug, ep); err != nil {
				return Result{}, err
			}
			res.Episodes++
		}

		for _, g := range e.Genres {
			linked, err := linkGenre(ctx, tx, animeID, g)
			if err != nil {
				return Result{}, err
			}
			if linked {
				res.Genres++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit import: %w", err)
	}

	if im.Reconciler != nil {
		if err := im.Reconciler.AnimeStatuses(ctx, res.AnimeIDs...); err != nil {
			return res, fmt.Errorf("reconcile imported: %w", err)
		}
	}

	im.Log.Info("catalog imported",
		zap.Int("animes", res.Animes),
		zap.Int("episodes", res.Episodes),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func upsertAnime(ctx context.Context, tx *sql.Tx, slug string, e models.CatalogEntry) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO animes (id, title, ex_title, slug, description, image_url, release_year, total_episode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
		  title = excluded.title,
		  ex_title = excluded.ex_title,
		  description = excluded.description,
		  image_url = excluded.image_url,
		  release_year = excluded.release_year,
		  total_episode = excluded.total_episode,
		  updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, uuid.NewString(), e.Title, e.ExTitle, slug, e.Description, e.ImageURL, e.ReleaseYear, e.TotalEpisode).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert anime %s: %w", slug, err)
	}
	return id, nil
}

func upsertEpisode(ctx context.Context, tx *sql.Tx, animeID, animeSlug string, ep models.CatalogEpisodeEntry) error {
	season := seasonOf(ep)
	title := ep.Title
	if title == "" {
		title = fmt.Sprintf("Episode %d", ep.Number)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO episodes (id, anime_id, title, slug, season, number, video_url, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(anime_id, season, number) DO UPDATE SET
		  title = excluded.title,
		  video_url = excluded.video_url,
		  duration = excluded.duration,
		  updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), animeID, title, utils.EpisodeSlug(animeSlug, season, ep.Number),
		season, ep.Number, ep.VideoURL, ep.Duration)
	if err != nil {
		return fmt.Errorf("upsert episode %s s%d e%d: %w", animeSlug, season, ep.Number, err)
	}
	return nil
}

// linkGenre creates the genre when missing and attaches it. It reports
// whether a new link was made.
func linkGenre(ctx context.Context, tx *sql.Tx, animeID, name string) (bool, error) {
	name = utils.TitleCase(name)
	slug := utils.Slugify(name)
	if slug == "" {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO genres (id, name, slug) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, uuid.NewString(), name, slug); err != nil {
		return false, fmt.Errorf("insert genre %s: %w", slug, err)
	}

	var genreID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM genres WHERE slug = ?`, slug).Scan(&genreID); err != nil {
		return false, fmt.Errorf("lookup genre %s: %w", slug, err)
	}

	r, err := tx.ExecContext(ctx, `
		INSERT INTO anime_genres (anime_id, genre_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, animeID, genreID)
	if err != nil {
		return false, fmt.Errorf("link genre %s: %w", slug, err)
	}
	n, _ := r.RowsAffected()
	return n > 0, nil
}
