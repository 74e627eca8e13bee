package main

import (
	"context"
	"flag"
	"net"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"animehub/internal/anime"
	"animehub/internal/grpcserver"
	"animehub/internal/logger"
	"animehub/internal/ratings"
	"animehub/internal/visits"
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
	log := logger.Must("grpc-server", cfg.Env, cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if err := database.EnsureDataDir(cfg.Database); err != nil {
		log.Fatal("create data dir", zap.Error(err))
	}
	db, err := database.OpenAndMigrate(cfg.Database)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen", zap.Error(err))
	}

	svc := grpcserver.NewServer(
		anime.NewRepo(db),
		ratings.NewRepo(db),
		visits.NewRepo(db, cfg.Location()),
		log,
	)
	gs := grpcserver.NewGRPCServer(svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down grpc server")
		gs.GracefulStop()
	}()

	log.Info("grpc server listening", zap.String("addr", listener.Addr().String()))
	if err := gs.Serve(listener); err != nil {
		log.Error("grpc server stopped", zap.Error(err))
	}
}
