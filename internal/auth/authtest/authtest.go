// Package authtest wires a gin engine with the same public, protected and
// admin groups as the API server, for handler tests.
package authtest

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/testutil"
)

type Env struct {
	DB        *sql.DB
	Repo      *auth.Repo
	Tokens    auth.TokenService
	Engine    *gin.Engine
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
}

func New(t *testing.T, db *sql.DB) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := auth.NewRepo(db)
	tokens := auth.NewTokenService("test-secret", "animehub-test", time.Hour)
	mw := auth.AuthMiddleware(tokens, repo)

	r := gin.New()
	return &Env{
		DB:        db,
		Repo:      repo,
		Tokens:    tokens,
		Engine:    r,
		Public:    r.Group("/"),
		Protected: r.Group("/", mw),
		Admin:     r.Group("/", mw, auth.RequireRole(auth.RoleAdmin)),
	}
}

// User creates a user with role and returns its id and a bearer header value.
func (e *Env) User(t *testing.T, username, role string) (string, string) {
	t.Helper()
	id := testutil.CreateUser(t, e.DB, username, role)
	tok, _, err := e.Tokens.Sign(&auth.User{ID: id, Username: username, Role: role})
	require.NoError(t, err)
	return id, "Bearer " + tok
}

// Do sends body as JSON (when non-nil) and returns the recorded response.
func (e *Env) Do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the response body into a map.
func Decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// AdminUser creates an admin user.
func (e *Env) AdminUser(t *testing.T) (string, string) {
	t.Helper()
	return e.User(t, "admin", auth.RoleAdmin)
}
