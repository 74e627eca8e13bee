package visits

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "animehub/pkg/errors"
)

type Handler struct {
	Repo *Repo
	// Now is swapped in tests.
	Now func() time.Time
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo, Now: time.Now}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/daily-visit/increment", h.increment)
	rg.GET("/daily-visit", h.list)
}

func (h *Handler) increment(c *gin.Context) {
	v, err := h.Repo.Increment(c.Request.Context(), h.Now())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "visit recorded",
		"visit":   v,
	})
}

// list accepts optional from/to (YYYY-MM-DD) to narrow the range.
func (h *Handler) list(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		items, err := h.Repo.List(c.Request.Context())
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse(dateLayout, d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}
	items, err := h.Repo.Range(c.Request.Context(), from, to)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
