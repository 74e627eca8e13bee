package episodes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"animehub/internal/notify"
	"animehub/internal/reconcile"
	"animehub/internal/sync"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// Announcer is told about newly created episodes.
type Announcer interface {
	NewEpisode(msg notify.NewEpisodeMessage)
}

type Handler struct {
	Repo       *Repo
	Reconciler *reconcile.Reconciler
	Events     sync.Publisher
	Announcer  Announcer
}

func NewHandler(repo *Repo, rec *reconcile.Reconciler, events sync.Publisher, ann Announcer) *Handler {
	if events == nil {
		events = sync.Nop{}
	}
	return &Handler{Repo: repo, Reconciler: rec, Events: events, Announcer: ann}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/episodes", h.list)
	rg.GET("/episodes/:id", h.getByID)
	rg.GET("/episodes/slug/:slug", h.getBySlug)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/episodes", h.create)
	rg.PUT("/episodes/:id", h.update)
	rg.DELETE("/episodes/:id", h.delete)
}

type episodeReq struct {
	AnimeID  *string `json:"animeId"`
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Season   *int    `json:"season"`
	Number   *int    `json:"number"`
	VideoURL *string `json:"videoUrl"`
	Duration *int    `json:"duration"`
}

func (r episodeReq) applyTo(in Input) Input {
	str := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	num := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	str(&in.AnimeID, r.AnimeID)
	str(&in.Title, r.Title)
	str(&in.Slug, r.Slug)
	str(&in.VideoURL, r.VideoURL)
	num(&in.Season, r.Season)
	num(&in.Number, r.Number)
	num(&in.Duration, r.Duration)
	return in
}

// prepare validates in and derives its slug from the parent anime when the
// caller did not give one or moved the episode.
func (h *Handler) prepare(ctx context.Context, in Input, deriveSlug bool) (Input, error) {
	if in.AnimeID == "" {
		return in, apperrors.BadRequest("animeId required")
	}
	if in.Title == "" {
		return in, apperrors.BadRequest("title required")
	}
	if in.Season == 0 {
		in.Season = models.DefaultSeason
	}
	if in.Season < 0 {
		return in, apperrors.BadRequest("season must be >= 1")
	}
	if in.Number < 1 {
		return in, apperrors.BadRequest("number must be >= 1")
	}
	if in.Duration < 0 {
		return in, apperrors.BadRequest("duration must be >= 0")
	}

	animeSlug, err := h.Repo.AnimeSlug(ctx, in.AnimeID)
	if err != nil {
		return in, err
	}
	if animeSlug == "" {
		return in, apperrors.NotFound("anime not found")
	}

	if deriveSlug || in.Slug == "" {
		in.Slug = utils.EpisodeSlug(animeSlug, in.Season, in.Number)
	} else {
		in.Slug = utils.Slugify(in.Slug)
	}
	return in, nil
}

func bind(c *gin.Context) (episodeReq, bool) {
	var req episodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return req, false
	}
	return req, true
}

func (h *Handler) create(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	in, err := h.prepare(ctx, req.applyTo(Input{}), false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ep, err := h.Repo.Create(ctx, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := h.Reconciler.AnimeStatus(ctx, ep.AnimeID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	h.Events.Publish(sync.Event{Type: sync.EventEpisodeCreated, AnimeID: ep.AnimeID, EpisodeID: ep.ID})
	if h.Announcer != nil {
		h.Announcer.NewEpisode(notify.NewEpisodeMessage{
			AnimeID:   ep.AnimeID,
			EpisodeID: ep.ID,
			Slug:      ep.Slug,
			Season:    ep.Season,
			Number:    ep.Number,
			Title:     ep.Title,
		})
	}
	c.JSON(http.StatusCreated, ep)
}

func (h *Handler) update(c *gin.Context) {
	req, ok := bind(c)
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
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}

	merged := req.applyTo(Input{
		AnimeID:  before.AnimeID,
		Title:    before.Title,
		Slug:     before.Slug,
		Season:   before.Season,
		Number:   before.Number,
		VideoURL: before.VideoURL,
		Duration: before.Duration,
	})
	// a moved or renumbered episode gets a fresh slug unless one was given
	rekeyed := merged.AnimeID != before.AnimeID || merged.Season != before.Season || merged.Number != before.Number
	in, err := h.prepare(ctx, merged, rekeyed && req.Slug == nil)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ep, err := h.Repo.Update(ctx, id, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}
	if err := h.Reconciler.AnimeStatuses(ctx, before.AnimeID, ep.AnimeID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	h.Events.Publish(sync.Event{Type: sync.EventEpisodeUpdated, AnimeID: ep.AnimeID, EpisodeID: ep.ID})
	c.JSON(http.StatusOK, ep)
}

func (h *Handler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	animeID, err := h.Repo.Delete(ctx, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if animeID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}
	if err := h.Reconciler.AnimeStatus(ctx, animeID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	h.Events.Publish(sync.Event{Type: sync.EventEpisodeDeleted, AnimeID: animeID, EpisodeID: id})
	c.JSON(http.StatusOK, gin.H{"message": "episode deleted"})
}

func (h *Handler) list(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)
	items, err := h.Repo.List(c.Request.Context(), strings.TrimSpace(c.Query("animeId")), limit, offset)
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

func (h *Handler) getByID(c *gin.Context) {
	ep, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	h.respondOne(c, ep, err)
}

func (h *Handler) getBySlug(c *gin.Context) {
	ep, err := h.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	h.respondOne(c, ep, err)
}

func (h *Handler) respondOne(c *gin.Context, ep *models.Episode, err error) {
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}
	c.JSON(http.StatusOK, ep)
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
