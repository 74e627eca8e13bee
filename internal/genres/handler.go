package genres

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/genres", h.list)
	rg.GET("/genres/:slug/animes", h.animes)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/genres", h.create)
	rg.DELETE("/genres/:slug", h.delete)
	rg.POST("/genres/:slug/animes/:animeId", h.link)
	rg.DELETE("/genres/:slug/animes/:animeId", h.unlink)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) genre(c *gin.Context) (*models.Genre, bool) {
	g, err := h.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperrors.Respond(c, err)
		return nil, false
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "genre not found"})
		return nil, false
	}
	return g, true
}

func (h *Handler) animes(c *gin.Context) {
	g, ok := h.genre(c)
	if !ok {
		return
	}
	items, err := h.Repo.Animes(c.Request.Context(), g.ID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genre": g, "items": items})
}

type createReq struct {
	Name string `json:"name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := utils.TitleCase(req.Name)
	slug := utils.Slugify(name)
	if slug == "" || len(name) > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-50 chars with letters or digits"})
		return
	}

	g, err := h.Repo.Create(c.Request.Context(), name, slug)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) delete(c *gin.Context) {
	ok, err := h.Repo.Delete(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "genre not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "genre deleted"})
}

func (h *Handler) link(c *gin.Context) {
	g, ok := h.genre(c)
	if !ok {
		return
	}
	if err := h.Repo.Link(c.Request.Context(), strings.TrimSpace(c.Param("animeId")), g.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "genre linked"})
}

func (h *Handler) unlink(c *gin.Context) {
	g, ok := h.genre(c)
	if !ok {
		return
	}
	removed, err := h.Repo.Unlink(c.Request.Context(), strings.TrimSpace(c.Param("animeId")), g.ID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "genre unlinked"})
}
