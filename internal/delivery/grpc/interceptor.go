package grpc

import (
	"context"
	"strings"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	resp "github.com/vogiaan1904/ticketbottle-reservation/pkg/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

// AuthInterceptor verifies the bearer token in the authorization metadata
// for ReservationService calls. Other services pass through.
func AuthInterceptor(v auth.Verifier, l logger.Logger) grpc.UnaryServerInterceptor {
	prefix := "/" + ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				header = vals[0]
			}
		}

		holderID, err := v.Verify(auth.BearerToken(header))
		if err != nil {
			l.Warnf(ctx, "delivery.grpc.AuthInterceptor: %s: %v", info.FullMethod, err)
			return nil, resp.ParseGRPCError(mapGRPCError(err))
		}

		ctx = auth.WithHolder(ctx, holderID)
		ctx = l.With(ctx, "holder_id", holderID)
		return handler(ctx, req)
	}
}

// NewServer builds a gRPC server with ReservationService and the standard
// health service registered.
func NewServer(svc ReservationServer, v auth.Verifier, l logger.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(AuthInterceptor(v, l)))
	srv := grpc.NewServer(opts...)

	RegisterReservationServer(srv, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}
