package visits

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/testutil"
	"animehub/pkg/models"
)

func TestIncrementScenario(t *testing.T) {
	repo := NewRepo(testutil.NewDB(t), nil)
	ctx := context.Background()
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	var last models.DailyVisit
	for i := 0; i < 3; i++ {
		v, err := repo.Increment(ctx, day.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		last = v
	}
	assert.Equal(t, models.DailyVisit{Date: "2024-03-10", Count: 3}, last)

	next, err := repo.Increment(ctx, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.DailyVisit{Date: "2024-03-11", Count: 1}, next)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyVisit{
		{Date: "2024-03-10", Count: 3},
		{Date: "2024-03-11", Count: 1},
	}, all)
}

func TestIncrementUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	repo := NewRepo(testutil.NewDB(t), loc)

	// 16:00 UTC is already the next day in Tokyo
	v, err := repo.Increment(context.Background(), time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", v.Date)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	repo := NewRepo(testutil.NewDB(t), nil)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := repo.Increment(context.Background(), now)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(n), all[0].Count)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	visits := []models.DailyVisit{
		{Date: "2024-03-09", Count: 12},
		{Date: "2024-03-10", Count: 3},
		{Date: "2024-03-11", Count: 1},
	}
	require.NoError(t, WriteCSV(&buf, visits))
	assert.Equal(t, int64(16), Total(visits))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "daily_visits_csv", buf.Bytes())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := NewRepo(testutil.NewDB(t), nil)
	h := NewHandler(repo)
	h.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/"))

	for i := 1; i <= 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/daily-visit/increment", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Message string            `json:"message"`
			Visit   models.DailyVisit `json:"visit"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(i), body.Visit.Count)
		assert.Equal(t, "2024-05-01", body.Visit.Date)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/daily-visit", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"date":"2024-05-01","count":2}]`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/daily-visit?from=2024-06-01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/daily-visit?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
