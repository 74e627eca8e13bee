package ratings

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"animehub/internal/auth"
	"animehub/internal/sync"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Events sync.Publisher
}

func NewHandler(repo *Repo, events sync.Publisher) *Handler {
	if events == nil {
		events = sync.Nop{}
	}
	return &Handler{Repo: repo, Events: events}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/animes/anime/:slug/rating", h.summary)
	rg.GET("/animes/anime/:slug/ratings", h.list)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/animes/anime/:slug/rating", h.upsert)
	rg.DELETE("/animes/anime/:slug/rating", h.deleteOwn)
	rg.DELETE("/ratings/:id", h.deleteByID)
}

type upsertReq struct {
	Score  *float64 `json:"score"`
	Review string   `json:"review"`
}

func (h *Handler) animeID(c *gin.Context) (string, bool) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		apperrors.Respond(c, apperrors.BadRequest("slug required"))
		return "", false
	}
	id, err := h.Repo.AnimeIDBySlug(c.Request.Context(), slug)
	if err != nil {
		apperrors.Respond(c, err)
		return "", false
	}
	if id == "" {
		apperrors.Respond(c, apperrors.NotFound("anime not found"))
		return "", false
	}
	return id, true
}

func (h *Handler) summary(c *gin.Context) {
	animeID, ok := h.animeID(c)
	if !ok {
		return
	}
	sum, err := h.Repo.Summary(c.Request.Context(), animeID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) list(c *gin.Context) {
	animeID, ok := h.animeID(c)
	if !ok {
		return
	}
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListByAnime(c.Request.Context(), animeID, limit, offset)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) upsert(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Score == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score required"})
		return
	}
	if *req.Score < models.MinScore || *req.Score > models.MaxScore {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 1 and 10"})
		return
	}

	animeID, ok := h.animeID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rating, err := h.Repo.Upsert(ctx, claims.UserID, animeID, *req.Score, strings.TrimSpace(req.Review))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	sum, err := h.Repo.Summary(ctx, animeID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	h.publish(animeID, claims.UserID, sum)

	c.JSON(http.StatusOK, gin.H{
		"rating":       rating,
		"averageScore": sum.AverageScore,
		"totalRatings": sum.TotalRatings,
	})
}

func (h *Handler) deleteOwn(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	animeID, ok := h.animeID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.Repo.DeleteOwn(ctx, claims.UserID, animeID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	sum, err := h.Repo.Summary(ctx, animeID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	h.publish(animeID, claims.UserID, sum)

	c.JSON(http.StatusOK, gin.H{
		"message":      "rating deleted",
		"averageScore": sum.AverageScore,
		"totalRatings": sum.TotalRatings,
	})
}

func (h *Handler) deleteByID(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	ctx := c.Request.Context()
	animeID, err := h.Repo.DeleteByID(ctx, id, claims.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	sum, err := h.Repo.Summary(ctx, animeID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	h.publish(animeID, claims.UserID, sum)

	c.JSON(http.StatusOK, gin.H{
		"message":      "rating deleted",
		"averageScore": sum.AverageScore,
		"totalRatings": sum.TotalRatings,
	})
}

func (h *Handler) publish(animeID, userID string, sum models.RatingSummary) {
	h.Events.Publish(sync.Event{
		Type:         sync.EventAnimeRating,
		AnimeID:      animeID,
		UserID:       userID,
		AverageScore: sum.AverageScore,
		TotalRatings: sum.TotalRatings,
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
