// Package health publishes scanner liveness over the standard gRPC health protocol
package health

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/scanner"
	"github.com/GriffinCanCode/league-vision/internal/trace"
)

// ScannerService is the health service name tracking the scan loop.
const ScannerService = "leaguevision.Scanner"

// Server serves grpc.health.v1. The empty service reports process liveness and
// ScannerService follows the scanner state.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates a health server with the scanner reported not serving.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_NOT_SERVING)

	g := grpc.NewServer(
		grpc.UnaryInterceptor(trace.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(trace.StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(g, h)

	return &Server{grpc: g, health: h, logger: logger}
}

// StatusFor maps a scanner state onto a serving status. Only a running
// scanner is serving.
func StatusFor(s scanner.State) healthpb.HealthCheckResponse_ServingStatus {
	if s == scanner.Running {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Track is a scanner state hook.
func (s *Server) Track(state scanner.State) {
	st := StatusFor(state)
	s.health.SetServingStatus(ScannerService, st)
	s.logger.Debug("Health status updated", "service", ScannerService, "status", st.String())
}

// Check answers a health query in-process.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve listens on addr until ctx ends or the listener fails.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "listen for health checks").WithMetadata("addr", addr)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	s.logger.Info("Health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "serve health checks")
	}
	return nil
}

// Shutdown marks every service not serving and stops the server.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
