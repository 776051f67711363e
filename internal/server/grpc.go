package server

import (
	"context"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the name reported by the health service.
const ServiceName = "marketplace"

// GRPCServer exposes the standard health service and reflection.
type GRPCServer struct {
	Server *grpc.Server
	health *grpchealth.Server
}

func NewGRPCServer(log logger.ZapLogger) *GRPCServer {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &GRPCServer{Server: s, health: hs}
}

// Shutdown reports NOT_SERVING and then stops gracefully.
func (g *GRPCServer) Shutdown() {
	g.health.Shutdown()
	g.Server.GracefulStop()
}

func loggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
