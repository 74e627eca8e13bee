package comments

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"animehub/internal/auth"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/comments", h.list)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/comments", h.create)
	rg.PATCH("/comments/:id", h.update)
	rg.DELETE("/comments/:id", h.delete)
}

type createReq struct {
	EpisodeID string `json:"episodeId"`
	Content   string `json:"content"`
}

type updateReq struct {
	Content string `json:"content"`
}

func validContent(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "content required"
	}
	if utf8.RuneCountInString(s) > models.MaxCommentLength {
		return "", "content too long"
	}
	return s, ""
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	episodeID := strings.TrimSpace(req.EpisodeID)
	if episodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episodeId required"})
		return
	}
	content, msg := validContent(req.Content)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	cm, err := h.Repo.Create(c.Request.Context(), claims.UserID, episodeID, content)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) list(c *gin.Context) {
	episodeID := strings.TrimSpace(c.Query("episodeId"))
	if episodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episodeId required"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListByEpisode(c.Request.Context(), episodeID, limit, offset)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	content, msg := validContent(req.Content)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	cm, err := h.Repo.Update(c.Request.Context(), c.Param("id"), claims.UserID, content)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
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
