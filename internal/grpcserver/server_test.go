package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/ratings"
	"animehub/internal/testutil"
	"animehub/internal/visits"
)

type fixture struct {
	client  *StatsClient
	conn    *grpc.ClientConn
	ratings *ratings.Repo
	visits  *visits.Repo
	animeID string
	userID  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		ratings: ratings.NewRepo(db),
		visits:  visits.NewRepo(db, time.UTC),
		animeID: testutil.CreateAnime(t, db, "Serial Experiments Lain", 13),
		userID:  testutil.CreateUser(t, db, "lain", auth.RoleUser),
	}

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(NewServer(anime.NewRepo(db), f.ratings, f.visits, nil))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	f.conn = conn
	f.client = NewStatsClient(conn)
	return f
}

func TestRatingSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sum, err := f.client.GetRatingSummary(ctx, "serial-experiments-lain")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.Fields["averageScore"].GetNumberValue())
	assert.Equal(t, 0.0, sum.Fields["totalRatings"].GetNumberValue())

	_, err = f.ratings.Upsert(ctx, f.userID, f.animeID, 8, "")
	require.NoError(t, err)

	sum, err = f.client.GetRatingSummary(ctx, "serial-experiments-lain")
	require.NoError(t, err)
	assert.Equal(t, 8.0, sum.Fields["averageScore"].GetNumberValue())
	assert.Equal(t, 1.0, sum.Fields["totalRatings"].GetNumberValue())

	_, err = f.client.GetRatingSummary(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = f.client.GetRatingSummary(ctx, " ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAnimeViews(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	views, err := f.client.GetAnimeViews(ctx, f.animeID)
	require.NoError(t, err)
	assert.Zero(t, views)

	_, err = f.client.GetAnimeViews(ctx, "nope")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListDailyVisits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := f.visits.Increment(ctx, day.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	all, err := f.client.ListDailyVisits(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all.Values, 3)
	first := all.Values[0].GetStructValue().Fields
	assert.Equal(t, "2024-05-01", first["date"].GetStringValue())
	assert.Equal(t, 1.0, first["count"].GetNumberValue())

	some, err := f.client.ListDailyVisits(ctx, "2024-05-02", "")
	require.NoError(t, err)
	assert.Len(t, some.Values, 2)

	_, err = f.client.ListDailyVisits(ctx, "May 2", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	f := setup(t)
	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: StatsServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
