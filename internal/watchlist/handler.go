package watchlist

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"animehub/internal/auth"
	apperrors "animehub/pkg/errors"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me/favorites", h.listFavorites)
	rg.POST("/users/me/favorites", h.addFavorite)
	rg.DELETE("/users/me/favorites/:animeId", h.removeFavorite)

	rg.GET("/users/me/watch-later", h.listWatchLater)
	rg.POST("/users/me/watch-later", h.addWatchLater)
	rg.DELETE("/users/me/watch-later/:episodeId", h.removeWatchLater)
}

type favoriteReq struct {
	AnimeID string `json:"animeId"`
}

type watchLaterReq struct {
	EpisodeID string `json:"episodeId"`
}

func (h *Handler) addFavorite(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req favoriteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	animeID := strings.TrimSpace(req.AnimeID)
	if animeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "animeId required"})
		return
	}

	if err := h.Repo.AddFavorite(c.Request.Context(), claims.UserID, animeID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "added to favorites", "animeId": animeID})
}

func (h *Handler) removeFavorite(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ok, err := h.Repo.RemoveFavorite(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Param("animeId")))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed from favorites"})
}

func (h *Handler) listFavorites(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.Favorites(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) addWatchLater(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req watchLaterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	episodeID := strings.TrimSpace(req.EpisodeID)
	if episodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episodeId required"})
		return
	}

	if err := h.Repo.AddWatchLater(c.Request.Context(), claims.UserID, episodeID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "added to watch later", "episodeId": episodeID})
}

func (h *Handler) removeWatchLater(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ok, err := h.Repo.RemoveWatchLater(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Param("episodeId")))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed from watch later"})
}

func (h *Handler) listWatchLater(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.Repo.WatchLater(c.Request.Context(), claims.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
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
