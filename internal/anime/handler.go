package anime

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/reconcile"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// listSize is the length of the mostViewed and topRated lists.
const listSize = 5

type Handler struct {
	Repo       *Repo
	Reconciler *reconcile.Reconciler
}

func NewHandler(repo *Repo, rec *reconcile.Reconciler) *Handler {
	return &Handler{Repo: repo, Reconciler: rec}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/animes", h.list)
	rg.GET("/animes/paginated", h.paginated)
	rg.GET("/animes/search", h.search)
	rg.GET("/animes/lists", h.lists)
	rg.GET("/animes/total-views", h.totalViews)
	rg.GET("/animes/:id", h.getByID)
	rg.GET("/animes/anime/:slug", h.getBySlug)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/animes", h.create)
	rg.PUT("/animes/:id", h.update)
	rg.DELETE("/animes/:id", h.delete)
}

func listQuery(c *gin.Context) ListQuery {
	q := ListQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	// genre=action,drama or genre=action&genre=drama
	genres := c.QueryArray("genre")
	if len(genres) == 1 && strings.Contains(genres[0], ",") {
		genres = strings.Split(genres[0], ",")
	}
	q.Genres = genres
	return q
}

func (h *Handler) list(c *gin.Context) {
	q := listQuery(c)
	if q.Status != "" && !validStatus(q.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be ONGOING or COMPLETED"})
		return
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) paginated(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := parseInt(c.Query("limit"), 12)
	if limit < 1 || limit > 100 {
		limit = 12
	}
	q := ListQuery{Limit: limit, Offset: (page - 1) * limit}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": (total + limit - 1) / limit,
	})
}

func (h *Handler) search(c *gin.Context) {
	kw := strings.TrimSpace(c.Query("q"))
	if kw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	items, err := h.Repo.List(c.Request.Context(), ListQuery{Q: kw, Limit: parseInt(c.Query("limit"), 20)})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) lists(c *gin.Context) {
	ctx := c.Request.Context()
	mostViewed, err := h.Repo.MostViewed(ctx, listSize)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	topRated, err := h.Repo.TopRated(ctx, listSize)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mostViewed": mostViewed,
		"topRated":   topRated,
	})
}

func (h *Handler) totalViews(c *gin.Context) {
	total, err := h.Repo.TotalViews(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalViews": total})
}

func (h *Handler) getByID(c *gin.Context) {
	a, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) getBySlug(c *gin.Context) {
	d, err := h.Repo.Detail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// animeReq mirrors models.AnimeInput with optional fields for partial
// updates. Status and Views are only declared so they can be refused.
type animeReq struct {
	Title        *string `json:"title"`
	ExTitle      *string `json:"exTitle"`
	Slug         *string `json:"slug"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"imageUrl"`
	ReleaseYear  *int    `json:"releaseYear"`
	TotalEpisode *int    `json:"totalEpisode"`
	Status       *string `json:"status"`
	Views        *int64  `json:"views"`
}

func (r animeReq) applyTo(in models.AnimeInput) models.AnimeInput {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&in.Title, r.Title)
	set(&in.ExTitle, r.ExTitle)
	set(&in.Slug, r.Slug)
	set(&in.Description, r.Description)
	set(&in.ImageURL, r.ImageURL)
	if r.ReleaseYear != nil {
		in.ReleaseYear = *r.ReleaseYear
	}
	if r.TotalEpisode != nil {
		in.TotalEpisode = *r.TotalEpisode
	}
	return in
}

// normalizeInput fills the slug from the title and validates the result.
func normalizeInput(in models.AnimeInput) (models.AnimeInput, error) {
	if in.Title == "" {
		return in, apperrors.BadRequest("title required")
	}
	if in.Slug == "" {
		in.Slug = in.Title
	}
	in.Slug = utils.Slugify(in.Slug)
	if in.Slug == "" {
		return in, apperrors.BadRequest("title must contain letters or digits")
	}
	if in.TotalEpisode < 0 {
		return in, apperrors.BadRequest("totalEpisode must be >= 0")
	}
	if in.ReleaseYear != 0 && (in.ReleaseYear < 1900 || in.ReleaseYear > time.Now().Year()+5) {
		return in, apperrors.BadRequest("releaseYear out of range")
	}
	return in, nil
}

func bindAnime(c *gin.Context) (animeReq, bool) {
	var req animeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return req, false
	}
	if req.Status != nil || req.Views != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status and views are derived and cannot be set"})
		return req, false
	}
	return req, true
}

func (h *Handler) create(c *gin.Context) {
	req, ok := bindAnime(c)
	if !ok {
		return
	}
	in, err := normalizeInput(req.applyTo(models.AnimeInput{}))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ctx := c.Request.Context()
	a, err := h.Repo.Create(ctx, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := h.Reconciler.AnimeStatus(ctx, a.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	if a, err = h.Repo.GetByID(ctx, a.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) update(c *gin.Context) {
	req, ok := bindAnime(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	before, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if before == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	in, err := normalizeInput(req.applyTo(models.AnimeInput{
		Title:        before.Title,
		ExTitle:      before.ExTitle,
		Slug:         before.Slug,
		Description:  before.Description,
		ImageURL:     before.ImageURL,
		ReleaseYear:  before.ReleaseYear,
		TotalEpisode: before.TotalEpisode,
	}))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	a, err := h.Repo.Update(ctx, id, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	if a.TotalEpisode != before.TotalEpisode {
		if err := h.Reconciler.AnimeStatus(ctx, id); err != nil {
			apperrors.Respond(c, err)
			return
		}
		if a, err = h.Repo.GetByID(ctx, id); err != nil {
			apperrors.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) delete(c *gin.Context) {
	ok, err := h.Repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "anime deleted"})
}

func validStatus(s string) bool {
	switch models.AnimeStatus(strings.ToUpper(s)) {
	case models.StatusOngoing, models.StatusCompleted:
		return true
	}
	return false
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
