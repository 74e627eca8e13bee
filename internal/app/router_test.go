package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/testutil"
	"animehub/pkg/utils"
)

type client struct {
	t *testing.T
	r *gin.Engine
}

func (c client) do(method, path string, body any, bearer string) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestRouterEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := utils.Default()
	c := client{t: t, r: NewRouter(Deps{Config: cfg, DB: db})}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTDuration())
	sign := func(username, role string) string {
		id := testutil.CreateUser(t, db, username, role)
		tok, _, err := tokens.Sign(&auth.User{ID: id, Username: username, Role: role})
		require.NoError(t, err)
		return tok
	}
	admin := sign("admin", auth.RoleAdmin)
	user := sign("viewer", auth.RoleUser)

	code, _ := c.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodPost, "/animes", map[string]any{"title": "FLCL", "totalEpisode": 2}, user)
	require.Equal(t, http.StatusForbidden, code, body)

	code, body = c.do(http.MethodPost, "/animes", map[string]any{"title": "FLCL", "totalEpisode": 2}, admin)
	require.Equal(t, http.StatusCreated, code, body)
	animeID := body["id"].(string)
	assert.Equal(t, "ONGOING", body["status"])

	var episodeID string
	for n := 1; n <= 2; n++ {
		code, body = c.do(http.MethodPost, "/episodes", map[string]any{
			"animeId": animeID, "title": "Episode", "number": n,
		}, admin)
		require.Equal(t, http.StatusCreated, code, body)
		episodeID = body["id"].(string)
	}
	code, body = c.do(http.MethodGet, "/animes/"+animeID, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "COMPLETED", body["status"])

	code, _ = c.do(http.MethodPost, "/animes/"+animeID+"/view", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	for i := 0; i < 2; i++ {
		code, body = c.do(http.MethodPost, "/animes/"+animeID+"/view", nil, user)
		require.Equal(t, http.StatusOK, code, body)
		assert.EqualValues(t, 1, body["totalViews"])
	}

	code, body = c.do(http.MethodPost, "/animes/anime/flcl/rating", map[string]any{"score": 9}, user)
	require.Equal(t, http.StatusOK, code, body)
	code, body = c.do(http.MethodGet, "/animes/anime/flcl/rating", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 9, body["averageScore"])
	assert.EqualValues(t, 1, body["totalRatings"])

	code, body = c.do(http.MethodPost, "/daily-visit/increment", nil, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["visit"].(map[string]any)["count"])

	code, body = c.do(http.MethodPost, "/users/me/favorites", map[string]any{"animeId": animeID}, user)
	require.Equal(t, http.StatusOK, code, body)

	code, body = c.do(http.MethodPost, "/comments", map[string]any{"episodeId": episodeID, "content": "Fooly cooly"}, user)
	require.Equal(t, http.StatusCreated, code, body)
	code, body = c.do(http.MethodGet, "/comments?episodeId="+episodeID, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = c.do(http.MethodGet, "/users", nil, user)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = c.do(http.MethodGet, "/users", nil, admin)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])

	var viewerID string
	for _, it := range body["items"].([]any) {
		if u := it.(map[string]any); u["username"] == "viewer" {
			viewerID = u["id"].(string)
		}
	}
	require.NotEmpty(t, viewerID)
	code, body = c.do(http.MethodDelete, "/users/"+viewerID, nil, admin)
	require.Equal(t, http.StatusOK, code, body)

	_, views := testutil.AnimeState(t, db, animeID)
	assert.Zero(t, views)
}
