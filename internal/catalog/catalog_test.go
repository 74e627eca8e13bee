package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/reconcile"
	"animehub/internal/testutil"
	"animehub/pkg/models"
)

type staticSource struct {
	name    string
	entries []models.CatalogEntry
	err     error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Fetch(context.Context) ([]models.CatalogEntry, error) {
	return s.entries, s.err
}

func TestFileSourceRejectsUnknownKeys(t *testing.T) {
	_, err := NewFileSource(filepath.Join("testdata", "typo.yaml")).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_episodes")
}

func TestFileSource(t *testing.T) {
	entries, err := NewFileSource(filepath.Join("testdata", "catalog.yaml")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Cowboy Bebop", entries[0].Title)
	assert.Equal(t, 1998, entries[0].ReleaseYear)
	assert.Len(t, entries[0].Episodes, 2)
	assert.Equal(t, 1440, entries[0].Episodes[0].Duration)
}

func TestMirrorSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/animes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"Cowboy Bebop","totalEpisode":26,"description":"Bounty hunters in space."}]`))
	}))
	defer srv.Close()

	entries, err := NewMirrorSource(srv.URL+"/", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 26, entries[0].TotalEpisode)

	_, err = NewMirrorSource(srv.URL+"/missing", time.Second).Fetch(context.Background())
	assert.ErrorContains(t, err, "status 404")
}

func TestAggregatorMergesBySlug(t *testing.T) {
	a := staticSource{name: "a", entries: []models.CatalogEntry{{
		Title:        "Cowboy Bebop",
		TotalEpisode: 24,
		Description:  "short",
		Genres:       []string{"Sci-Fi"},
		Episodes:     []models.CatalogEpisodeEntry{{Number: 1, Title: "Asteroid Blues"}},
	}}}
	b := staticSource{name: "b", entries: []models.CatalogEntry{{
		Title:        "Cowboy Bébop",
		ImageURL:     "https://img.example/bebop.jpg",
		TotalEpisode: 26,
		Description:  "a much longer description",
		Genres:       []string{"sci fi", "Noir"},
		Episodes: []models.CatalogEpisodeEntry{
			{Number: 1, Season: 1, Title: "duplicate"},
			{Number: 2, Title: "Stray Dog Strut"},
		},
	}}}
	broken := staticSource{name: "broken", err: errors.New("boom")}

	out, err := NewAggregator(nil, a, broken, b).FetchAndMerge(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, "cowboy-bebop", m.Slug)
	assert.Equal(t, "Cowboy Bebop", m.Title)
	assert.Equal(t, 26, m.TotalEpisode)
	assert.Equal(t, "a much longer description", m.Description)
	assert.Equal(t, "https://img.example/bebop.jpg", m.ImageURL)
	assert.Equal(t, []string{"Sci-Fi", "Noir"}, m.Genres)
	require.Len(t, m.Episodes, 2)
	assert.Equal(t, "Asteroid Blues", m.Episodes[0].Title)
	assert.Equal(t, []string{"a", "b"}, m.Sources)
}

func TestAggregatorFailsWhenEverySourceFails(t *testing.T) {
	_, err := NewAggregator(nil, staticSource{name: "x", err: errors.New("down")}).FetchAndMerge(context.Background())
	assert.ErrorContains(t, err, "down")
}

func TestImportReconcilesAndIsRepeatable(t *testing.T) {
	db := testutil.NewDB(t)
	im := NewImporter(db, reconcile.New(db, nil, nil), nil)
	ctx := context.Background()
	src := NewFileSource(filepath.Join("testdata", "catalog.yaml"))

	res, err := im.Run(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Animes)
	assert.Equal(t, 3, res.Episodes)
	assert.Equal(t, 2, res.Genres)
	require.Len(t, res.AnimeIDs, 2)

	status, views := testutil.AnimeState(t, db, res.AnimeIDs[0])
	assert.Equal(t, string(models.StatusCompleted), status)
	assert.Zero(t, views)
	status, _ = testutil.AnimeState(t, db, res.AnimeIDs[1])
	assert.Equal(t, string(models.StatusOngoing), status)

	var slug string
	require.NoError(t, db.QueryRow(`SELECT slug FROM episodes WHERE anime_id = ? AND number = 2`, res.AnimeIDs[0]).Scan(&slug))
	assert.Equal(t, "cowboy-bebop-season-1-episode-2", slug)

	again, err := im.Run(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, res.AnimeIDs, again.AnimeIDs)
	assert.Zero(t, again.Genres)

	var episodes, genres int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM episodes`).Scan(&episodes))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM genres`).Scan(&genres))
	assert.Equal(t, 3, episodes)
	assert.Equal(t, 2, genres)
}

func TestImportRaisingTargetReopensAnime(t *testing.T) {
	db := testutil.NewDB(t)
	im := NewImporter(db, reconcile.New(db, nil, nil), nil)
	ctx := context.Background()

	entry := models.CatalogEntry{
		Title:        "Haibane Renmei",
		TotalEpisode: 1,
		Episodes:     []models.CatalogEpisodeEntry{{Number: 1}},
	}
	res, err := im.Import(ctx, []models.CatalogEntry{entry, {Title: ""}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	status, _ := testutil.AnimeState(t, db, res.AnimeIDs[0])
	assert.Equal(t, string(models.StatusCompleted), status)

	entry.TotalEpisode = 13
	res, err = im.Import(ctx, []models.CatalogEntry{entry})
	require.NoError(t, err)
	status, _ = testutil.AnimeState(t, db, res.AnimeIDs[0])
	assert.Equal(t, string(models.StatusOngoing), status)
}
