package episodes

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth/authtest"
	"animehub/internal/notify"
	"animehub/internal/reconcile"
	"animehub/internal/sync"
	"animehub/internal/testutil"
)

type recorder struct{ events []sync.Event }

func (r *recorder) Publish(ev sync.Event) { r.events = append(r.events, ev) }

type announcer struct{ msgs []notify.NewEpisodeMessage }

func (a *announcer) NewEpisode(m notify.NewEpisodeMessage) { a.msgs = append(a.msgs, m) }

type fixture struct {
	*authtest.Env
	admin  string
	events *recorder
	ann    *announcer
}

func newFixture(t *testing.T) *fixture {
	env := authtest.New(t, testutil.NewDB(t))
	f := &fixture{Env: env, events: &recorder{}, ann: &announcer{}}
	h := NewHandler(NewRepo(env.DB), reconcile.New(env.DB, nil, nil), f.events, f.ann)
	h.RegisterPublicRoutes(env.Public)
	h.RegisterAdminRoutes(env.Admin)
	_, f.admin = env.AdminUser(t)
	return f
}

func (f *fixture) status(t *testing.T, id string) string {
	s, _ := testutil.AnimeState(t, f.DB, id)
	return s
}

func TestEpisodeLifecycleDrivesStatus(t *testing.T) {
	f := newFixture(t)
	anime := testutil.CreateAnime(t, f.DB, "Vinland Saga", 12)
	testutil.CreateEpisodes(t, f.DB, anime, 11)

	w := f.Do(t, http.MethodPost, "/episodes", map[string]any{
		"animeId": anime, "title": "End of the Prologue", "number": 12,
	}, f.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := authtest.Decode(t, w)
	assert.Equal(t, 1.0, created["season"])
	assert.Equal(t, "vinland-saga-season-1-episode-12", created["slug"])
	assert.Equal(t, "COMPLETED", f.status(t, anime))

	w = f.Do(t, http.MethodDelete, "/episodes/"+created["id"].(string), nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ONGOING", f.status(t, anime))

	require.Len(t, f.ann.msgs, 1)
	assert.Equal(t, 12, f.ann.msgs[0].Number)
	require.Len(t, f.events.events, 2)
	assert.Equal(t, sync.EventEpisodeCreated, f.events.events[0].Type)
	assert.Equal(t, sync.EventEpisodeDeleted, f.events.events[1].Type)
}

func TestMovingEpisodeReconcilesBothParents(t *testing.T) {
	f := newFixture(t)
	from := testutil.CreateAnime(t, f.DB, "From", 2)
	to := testutil.CreateAnime(t, f.DB, "To", 1)
	eps := testutil.CreateEpisodes(t, f.DB, from, 2)
	_, err := f.DB.Exec(`UPDATE animes SET status = 'COMPLETED' WHERE id = ?`, from)
	require.NoError(t, err)

	w := f.Do(t, http.MethodPut, "/episodes/"+eps[1], map[string]any{"animeId": to, "number": 1}, f.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := authtest.Decode(t, w)
	assert.Equal(t, to, body["animeId"])
	assert.Equal(t, "to-season-1-episode-1", body["slug"])

	assert.Equal(t, "ONGOING", f.status(t, from))
	assert.Equal(t, "COMPLETED", f.status(t, to))
}

func TestCreateRejections(t *testing.T) {
	f := newFixture(t)
	anime := testutil.CreateAnime(t, f.DB, "Trigun", 26)
	testutil.CreateEpisode(t, f.DB, anime, 1, 1)
	_, user := f.User(t, "viewer", "user")

	cases := []struct {
		name   string
		body   map[string]any
		bearer string
		want   int
	}{
		{"not admin", map[string]any{"animeId": anime, "title": "x", "number": 2}, user, http.StatusForbidden},
		{"no token", map[string]any{"animeId": anime, "title": "x", "number": 2}, "", http.StatusUnauthorized},
		{"missing anime", map[string]any{"animeId": "nope", "title": "x", "number": 2}, f.admin, http.StatusNotFound},
		{"missing title", map[string]any{"animeId": anime, "number": 2}, f.admin, http.StatusBadRequest},
		{"bad number", map[string]any{"animeId": anime, "title": "x", "number": 0}, f.admin, http.StatusBadRequest},
		{"duplicate number", map[string]any{"animeId": anime, "title": "x", "number": 1}, f.admin, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.Do(t, http.MethodPost, "/episodes", tc.body, tc.bearer)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, f.ann.msgs)
}

func TestReadRoutes(t *testing.T) {
	f := newFixture(t)
	anime := testutil.CreateAnime(t, f.DB, "Serial Experiments Lain", 13)
	other := testutil.CreateAnime(t, f.DB, "Other", 1)
	testutil.CreateEpisodes(t, f.DB, anime, 3)
	testutil.CreateEpisodes(t, f.DB, other, 1)

	w := f.Do(t, http.MethodGet, "/episodes?animeId="+anime, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, authtest.Decode(t, w)["items"], 3)

	w = f.Do(t, http.MethodPost, "/episodes", map[string]any{
		"animeId": anime, "title": "Layer 04", "number": 4, "slug": "Layer 04 Religion",
	}, f.admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.Do(t, http.MethodGet, "/episodes/slug/layer-04-religion", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, authtest.Decode(t, w)["number"])

	w = f.Do(t, http.MethodGet, "/episodes/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.Do(t, http.MethodDelete, "/episodes/missing", nil, f.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
