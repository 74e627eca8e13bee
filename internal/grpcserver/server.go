package grpcserver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"animehub/internal/anime"
	"animehub/internal/logger"
	"animehub/internal/ratings"
	"animehub/internal/visits"
	"animehub/pkg/models"
)

type Server struct {
	AnimeRepo  *anime.Repo
	RatingRepo *ratings.Repo
	VisitRepo  *visits.Repo
	Log        *zap.Logger
}

func NewServer(animeRepo *anime.Repo, ratingRepo *ratings.Repo, visitRepo *visits.Repo, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{AnimeRepo: animeRepo, RatingRepo: ratingRepo, VisitRepo: visitRepo, Log: log}
}

// NewGRPCServer builds a grpc.Server with logging, the stats service and
// the standard health service.
func NewGRPCServer(srv *Server) *grpc.Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logger.UnaryServerInterceptor(srv.Log)))
	RegisterStatsServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(StatsServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

func (s *Server) GetRatingSummary(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	slug := strings.TrimSpace(req.GetValue())
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug required")
	}

	animeID, err := s.RatingRepo.AnimeIDBySlug(ctx, slug)
	if err != nil {
		s.Log.Error("rating summary lookup", zap.Error(err))
		return nil, status.Error(codes.Internal, "lookup failed")
	}
	if animeID == "" {
		return nil, status.Error(codes.NotFound, "anime not found")
	}

	sum, err := s.RatingRepo.Summary(ctx, animeID)
	if err != nil {
		s.Log.Error("rating summary", zap.Error(err))
		return nil, status.Error(codes.Internal, "summary failed")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"averageScore": structpb.NewNumberValue(sum.AverageScore),
		"totalRatings": structpb.NewNumberValue(float64(sum.TotalRatings)),
	}}, nil
}

func (s *Server) GetAnimeViews(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	a, err := s.AnimeRepo.GetByID(ctx, id)
	if err != nil {
		s.Log.Error("anime views", zap.Error(err))
		return nil, status.Error(codes.Internal, "get failed")
	}
	if a == nil {
		return nil, status.Error(codes.NotFound, "anime not found")
	}
	return wrapperspb.Int64(a.Views), nil
}

func (s *Server) ListDailyVisits(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	from := strings.TrimSpace(req.GetFields()["from"].GetStringValue())
	to := strings.TrimSpace(req.GetFields()["to"].GetStringValue())

	var (
		items []models.DailyVisit
		err   error
	)
	if from == "" && to == "" {
		items, err = s.VisitRepo.List(ctx)
	} else {
		if from == "" {
			from = "0000-01-01"
		}
		if to == "" {
			to = "9999-12-31"
		}
		for _, d := range []string{from, to} {
			if _, perr := time.Parse("2006-01-02", d); perr != nil {
				return nil, status.Errorf(codes.InvalidArgument, "invalid date %q", d)
			}
		}
		items, err = s.VisitRepo.Range(ctx, from, to)
	}
	if err != nil {
		s.Log.Error("list daily visits", zap.Error(err))
		return nil, status.Error(codes.Internal, "list failed")
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(items))}
	for _, v := range items {
		out.Values = append(out.Values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"date":  structpb.NewStringValue(v.Date),
			"count": structpb.NewNumberValue(float64(v.Count)),
		}}))
	}
	return out, nil
}
