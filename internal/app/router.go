// Package app assembles the HTTP surface of the API server.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/comments"
	"animehub/internal/episodes"
	"animehub/internal/genres"
	"animehub/internal/logger"
	"animehub/internal/notify"
	"animehub/internal/ratings"
	"animehub/internal/reconcile"
	"animehub/internal/sync"
	"animehub/internal/views"
	"animehub/internal/visits"
	"animehub/internal/watchlist"
	"animehub/pkg/utils"
)

// Deps are the long-lived pieces the router hands to feature handlers.
// Hub and Notify may be nil.
type Deps struct {
	Config     utils.Config
	DB         *sql.DB
	Log        *zap.Logger
	Hub        *sync.Hub
	Events     sync.Publisher
	Reconciler *reconcile.Reconciler
	Notify     *notify.Server
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = sync.Nop{}
	}
	if d.Reconciler == nil {
		d.Reconciler = reconcile.New(d.DB, d.Events, d.Log)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(d.Log))
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	tokens := auth.NewTokenService(d.Config.Auth.JWTSecret, d.Config.Auth.JWTIssuer, d.Config.Auth.JWTDuration())
	authRepo := auth.NewRepo(d.DB)
	authHandler := auth.NewHandler(authRepo, tokens)
	authHandler.Views = d.Reconciler
	authMW := authHandler.Middleware()

	public := r.Group("/")
	protected := r.Group("/", authMW)
	admin := r.Group("/", authMW, auth.RequireRole(auth.RoleAdmin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		body := gin.H{}
		if d.Hub != nil {
			stats := d.Hub.Stats()
			body["tcpClients"] = stats.TCPClients
			body["wsClients"] = stats.WSClients
		}
		if err := d.DB.PingContext(ctx); err != nil {
			body["status"] = "not_ready"
			body["dbError"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})
	if d.Hub != nil {
		r.GET("/ws", sync.WSHandler(d.Hub))
	}

	authHandler.RegisterRoutes(r.Group("/auth"))
	authHandler.RegisterProtectedRoutes(protected)
	authHandler.RegisterAdminRoutes(admin)

	animeHandler := anime.NewHandler(anime.NewRepo(d.DB), d.Reconciler)
	animeHandler.RegisterPublicRoutes(public)
	animeHandler.RegisterAdminRoutes(admin)

	var ann episodes.Announcer
	if d.Notify != nil {
		ann = d.Notify
	}
	episodeHandler := episodes.NewHandler(episodes.NewRepo(d.DB), d.Reconciler, d.Events, ann)
	episodeHandler.RegisterPublicRoutes(public)
	episodeHandler.RegisterAdminRoutes(admin)

	genreHandler := genres.NewHandler(genres.NewRepo(d.DB))
	genreHandler.RegisterPublicRoutes(public)
	genreHandler.RegisterAdminRoutes(admin)

	ratingHandler := ratings.NewHandler(ratings.NewRepo(d.DB), d.Events)
	ratingHandler.RegisterPublicRoutes(public)
	ratingHandler.RegisterProtectedRoutes(protected)

	views.NewHandler(views.NewService(views.NewRepo(d.DB), d.Reconciler)).RegisterProtectedRoutes(protected)
	visits.NewHandler(visits.NewRepo(d.DB, d.Config.Location())).RegisterPublicRoutes(public)
	watchlist.NewHandler(watchlist.NewRepo(d.DB)).RegisterProtectedRoutes(protected)

	commentHandler := comments.NewHandler(comments.NewRepo(d.DB))
	commentHandler.RegisterPublicRoutes(public)
	commentHandler.RegisterProtectedRoutes(protected)

	return r
}
