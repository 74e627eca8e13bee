package views

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth/authtest"
	"animehub/internal/reconcile"
	"animehub/internal/testutil"
	apperrors "animehub/pkg/errors"
)

func newService(t *testing.T) (*Service, *authtest.Env) {
	env := authtest.New(t, testutil.NewDB(t))
	svc := NewService(NewRepo(env.DB), reconcile.New(env.DB, nil, nil))
	NewHandler(svc).RegisterProtectedRoutes(env.Protected)
	return svc, env
}

func TestRegisterCountsUniqueViewers(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()
	anime := testutil.CreateAnime(t, env.DB, "Akira", 1)
	u1 := testutil.CreateUser(t, env.DB, "u1", "user")
	u2 := testutil.CreateUser(t, env.DB, "u2", "user")

	total, err := svc.Register(ctx, anime, u1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	total, err = svc.Register(ctx, anime, u1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "same user twice")

	total, err = svc.Register(ctx, anime, u2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, views := testutil.AnimeState(t, env.DB, anime)
	assert.Equal(t, int64(2), views)
}

func TestRegisterRejections(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()
	anime := testutil.CreateAnime(t, env.DB, "Paprika", 1)
	u := testutil.CreateUser(t, env.DB, "u", "user")

	_, err := svc.Register(ctx, anime, "")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = svc.Register(ctx, "missing", u)
	assert.True(t, apperrors.IsNotFound(err))

	_, views := testutil.AnimeState(t, env.DB, anime)
	assert.Zero(t, views)
}

func TestViewHandler(t *testing.T) {
	_, env := newService(t)
	anime := testutil.CreateAnime(t, env.DB, "Perfect Blue", 1)
	_, bearer := env.User(t, "viewer", "user")

	w := env.Do(t, http.MethodPost, "/animes/"+anime+"/view", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, views := testutil.AnimeState(t, env.DB, anime)
	assert.Zero(t, views)

	for i := 0; i < 2; i++ {
		w = env.Do(t, http.MethodPost, "/animes/"+anime+"/view", nil, bearer)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := authtest.Decode(t, w)
		assert.Equal(t, 1.0, body["totalViews"])
		assert.Equal(t, "view recorded", body["message"])
	}

	w = env.Do(t, http.MethodPost, "/animes/missing/view", nil, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.Do(t, http.MethodGet, "/users/me/views", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, authtest.Decode(t, w)["items"], 1)
}
