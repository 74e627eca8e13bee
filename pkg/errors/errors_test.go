package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("anime not found"), http.StatusNotFound},
		{BadRequest("score must be 1-10"), http.StatusBadRequest},
		{Conflict("slug taken"), http.StatusConflict},
		{Unauthorized("login required"), http.StatusUnauthorized},
		{Forbidden("not owner"), http.StatusForbidden},
		{Internal("boom"), http.StatusInternalServerError},
		{sql.ErrConnDone, http.StatusInternalServerError},
		{fmt.Errorf("delete rating: %w", Forbidden("not owner")), http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(sql.ErrConnDone))
	assert.Equal(t, "internal error", PublicMessage(Wrap(ErrorTypeInternal, "db", sql.ErrConnDone)))
	assert.Equal(t, "anime not found", PublicMessage(fmt.Errorf("x: %w", NotFound("anime not found"))))
}

func TestPredicatesFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(ErrorTypeConflict, "dup", sql.ErrNoRows))
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, fmt.Errorf("load: %w", sql.ErrConnDone))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Len(t, c.Errors, 1)
	assert.True(t, c.IsAborted())
}
