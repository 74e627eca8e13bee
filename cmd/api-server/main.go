package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/app"
	"animehub/internal/logger"
	"animehub/internal/notify"
	"animehub/internal/reconcile"
	synchub "animehub/internal/sync"
	"animehub/pkg/database"
	"animehub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	log := logger.Must("api-server", cfg.Env, cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if cfg.Env == utils.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.EnsureDataDir(cfg.Database); err != nil {
		log.Fatal("create data dir", zap.Error(err))
	}
	db, err := database.OpenAndMigrate(cfg.Database)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	hub := synchub.NewHub(log)
	defer hub.Close()
	events := synchub.Multi{hub}
	if cfg.NATS.URL != "" {
		natsPub, err := synchub.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			log.Fatal("nats", zap.Error(err))
		}
		defer natsPub.Close()
		events = append(events, natsPub)
	}

	rec := reconcile.New(db, events, log)
	rec.ZeroTargetOngoing = cfg.Reconcile.ZeroTargetOngoing

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := reconcile.NewSweeper(rec, cfg.Reconcile.LockPath, cfg.Reconcile.Schedule, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("start reconcile sweep", zap.Error(err))
	}
	defer sweeper.Stop()

	notifySrv := notify.NewServer(cfg.Server.NotifyAddr, notify.NewRegistry(), log)
	if err := notifySrv.Listen(); err != nil {
		log.Fatal("udp notify listen", zap.Error(err))
	}

	tcpSrv := synchub.NewServer(cfg.Server.SyncAddr, hub, log)
	if err := tcpSrv.Listen(); err != nil {
		log.Fatal("tcp sync listen", zap.Error(err))
	}

	router := app.NewRouter(app.Deps{
		Config:     cfg,
		DB:         db,
		Log:        log,
		Hub:        hub,
		Events:     events,
		Reconciler: rec,
		Notify:     notifySrv,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Serve(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http api listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	wg.Wait()
	log.Info("servers stopped")
}
