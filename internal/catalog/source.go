// Package catalog pulls anime listings from external sources, merges them and
// writes them into the database.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// Source fetches entries in its own format and maps them to CatalogEntry.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.CatalogEntry, error)
}

// Aggregator merges the output of several sources into one entry per slug.
type Aggregator struct {
	Sources []Source
	Log     *zap.Logger
}

func NewAggregator(log *zap.Logger, sources ...Source) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{Sources: sources, Log: log}
}

// FetchAndMerge keeps going when a source fails and only errors when every
// source did. Entries come back in first-seen order.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]models.CatalogEntry, error) {
	byKey := make(map[string]int)
	var out []models.CatalogEntry
	var errs []error

	for _, src := range a.Sources {
		entries, err := src.Fetch(ctx)
		if err != nil {
			a.Log.Warn("catalog source failed", zap.String("source", src.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		a.Log.Info("catalog source fetched", zap.String("source", src.Name()), zap.Int("entries", len(entries)))

		for _, e := range entries {
			key := Key(e)
			if key == "" {
				continue
			}
			e.Slug = key
			e.Sources = appendIfMissing(e.Sources, src.Name())
			if i, ok := byKey[key]; ok {
				out[i] = Merge(out[i], e)
				continue
			}
			byKey[key] = len(out)
			out = append(out, e)
		}
	}

	if len(a.Sources) > 0 && len(errs) == len(a.Sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Key is the normalized slug two entries must share to describe the same anime.
func Key(e models.CatalogEntry) string {
	if e.Slug != "" {
		return utils.Slugify(e.Slug)
	}
	return utils.Slugify(e.Title)
}

// Merge folds incoming into base. Base wins on scalar fields it already has;
// the longer description and the larger episode target win; genres and
// episodes are unioned.
func Merge(base, incoming models.CatalogEntry) models.CatalogEntry {
	if base.Title == "" {
		base.Title = incoming.Title
	}
	if base.ExTitle == "" {
		base.ExTitle = incoming.ExTitle
	}
	if len(incoming.Description) > len(base.Description) {
		base.Description = incoming.Description
	}
	if base.ImageURL == "" {
		base.ImageURL = incoming.ImageURL
	}
	if base.ReleaseYear == 0 {
		base.ReleaseYear = incoming.ReleaseYear
	}
	if incoming.TotalEpisode > base.TotalEpisode {
		base.TotalEpisode = incoming.TotalEpisode
	}

	seen := make(map[string]bool, len(base.Genres))
	for _, g := range base.Genres {
		seen[utils.Slugify(g)] = true
	}
	for _, g := range incoming.Genres {
		if s := utils.Slugify(g); s != "" && !seen[s] {
			seen[s] = true
			base.Genres = append(base.Genres, g)
		}
	}

	type epKey struct{ season, number int }
	have := make(map[epKey]bool, len(base.Episodes))
	for _, ep := range base.Episodes {
		have[epKey{seasonOf(ep), ep.Number}] = true
	}
	for _, ep := range incoming.Episodes {
		k := epKey{seasonOf(ep), ep.Number}
		if !have[k] {
			have[k] = true
			base.Episodes = append(base.Episodes, ep)
		}
	}

	for _, s := range incoming.Sources {
		base.Sources = appendIfMissing(base.Sources, s)
	}
	return base
}

func seasonOf(ep models.CatalogEpisodeEntry) int {
	if ep.Season <= 0 {
		return models.DefaultSeason
	}
	return ep.Season
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}
