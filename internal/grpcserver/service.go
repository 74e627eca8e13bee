package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// StatsService exposes the derived anime numbers to internal consumers.
// Messages are protobuf well-known types so no generated code is needed.
const StatsServiceName = "animehub.v1.StatsService"

const (
	methodGetRatingSummary = "/" + StatsServiceName + "/GetRatingSummary"
	methodGetAnimeViews    = "/" + StatsServiceName + "/GetAnimeViews"
	methodListDailyVisits  = "/" + StatsServiceName + "/ListDailyVisits"
)

type StatsServer interface {
	// GetRatingSummary takes an anime slug and returns
	// {averageScore, totalRatings}.
	GetRatingSummary(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// GetAnimeViews takes an anime id.
	GetAnimeViews(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	// ListDailyVisits accepts optional "from" and "to" dates (YYYY-MM-DD)
	// and returns [{date, count}] ascending.
	ListDailyVisits(context.Context, *structpb.Struct) (*structpb.ListValue, error)
}

var StatsServiceDesc = grpc.ServiceDesc{
	ServiceName: StatsServiceName,
	HandlerType: (*StatsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRatingSummary", Handler: getRatingSummaryHandler},
		{MethodName: "GetAnimeViews", Handler: getAnimeViewsHandler},
		{MethodName: "ListDailyVisits", Handler: listDailyVisitsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "animehub/v1/stats.proto",
}

func RegisterStatsServer(s grpc.ServiceRegistrar, srv StatsServer) {
	s.RegisterService(&StatsServiceDesc, srv)
}

func getRatingSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatsServer).GetRatingSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRatingSummary}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StatsServer).GetRatingSummary(ctx, req.(*wrapperspb.StringValue))
	})
}

func getAnimeViewsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatsServer).GetAnimeViews(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetAnimeViews}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StatsServer).GetAnimeViews(ctx, req.(*wrapperspb.StringValue))
	})
}

func listDailyVisitsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatsServer).ListDailyVisits(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListDailyVisits}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StatsServer).ListDailyVisits(ctx, req.(*structpb.Struct))
	})
}

// StatsClient calls StatsService over cc.
type StatsClient struct {
	cc grpc.ClientConnInterface
}

func NewStatsClient(cc grpc.ClientConnInterface) *StatsClient {
	return &StatsClient{cc: cc}
}

func (c *StatsClient) GetRatingSummary(ctx context.Context, slug string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRatingSummary, wrapperspb.String(slug), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StatsClient) GetAnimeViews(ctx context.Context, animeID string, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, methodGetAnimeViews, wrapperspb.String(animeID), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *StatsClient) ListDailyVisits(ctx context.Context, from, to string, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if from != "" {
		in.Fields["from"] = structpb.NewStringValue(from)
	}
	if to != "" {
		in.Fields["to"] = structpb.NewStringValue(to)
	}
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListDailyVisits, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
