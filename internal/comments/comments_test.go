package comments

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/auth/authtest"
	"animehub/internal/testutil"
)

func setup(t *testing.T) (*authtest.Env, string) {
	t.Helper()
	env := authtest.New(t, testutil.NewDB(t))
	h := NewHandler(NewRepo(env.DB))
	h.RegisterPublicRoutes(env.Public)
	h.RegisterProtectedRoutes(env.Protected)

	anime := testutil.CreateAnime(t, env.DB, "Haibane Renmei", 13)
	return env, testutil.CreateEpisode(t, env.DB, anime, 1, 1)
}

func post(t *testing.T, env *authtest.Env, episodeID, content, bearer string) string {
	t.Helper()
	w := env.Do(t, http.MethodPost, "/comments", map[string]any{"episodeId": episodeID, "content": content}, bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return authtest.Decode(t, w)["id"].(string)
}

func TestCommentsListNewestFirst(t *testing.T) {
	env, ep := setup(t)
	_, bearer := env.User(t, "rakka", auth.RoleUser)

	post(t, env, ep, "first", bearer)
	post(t, env, ep, "second", bearer)

	w := env.Do(t, http.MethodGet, "/comments?episodeId="+ep, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := authtest.Decode(t, w)["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].(map[string]any)["content"])
	assert.Equal(t, "rakka", items[0].(map[string]any)["username"])

	w = env.Do(t, http.MethodGet, "/comments", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentCreateRejections(t *testing.T) {
	env, ep := setup(t)
	_, bearer := env.User(t, "reki", auth.RoleUser)

	w := env.Do(t, http.MethodPost, "/comments", map[string]any{"episodeId": ep, "content": "hi"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Do(t, http.MethodPost, "/comments", map[string]any{"episodeId": ep, "content": "   "}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Do(t, http.MethodPost, "/comments", map[string]any{"episodeId": "missing", "content": "hi"}, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnlyOwnerCanEditOrDelete(t *testing.T) {
	env, ep := setup(t)
	_, owner := env.User(t, "hikari", auth.RoleUser)
	_, other := env.User(t, "kana", auth.RoleUser)
	id := post(t, env, ep, "original", owner)

	w := env.Do(t, http.MethodPatch, "/comments/"+id, map[string]any{"content": "hijacked"}, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.Do(t, http.MethodDelete, "/comments/"+id, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.Do(t, http.MethodPatch, "/comments/"+id, map[string]any{"content": ""}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Do(t, http.MethodPatch, "/comments/"+id, map[string]any{"content": "edited"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "edited", authtest.Decode(t, w)["content"])

	w = env.Do(t, http.MethodDelete, "/comments/"+id, nil, owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Do(t, http.MethodDelete, "/comments/"+id, nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.Do(t, http.MethodPatch, "/comments/"+id, map[string]any{"content": "again"}, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
