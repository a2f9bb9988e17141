package health

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/resilience"
)

// Probe defaults.
const (
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second
	CheckTimeout            = 2 * time.Second
)

// Probe queries a running engine's health endpoint.
type Probe struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
	retry  resilience.RetryConfig
}

// Dial creates a probe for addr. The connection is established lazily.
func Dial(addr string) (*Probe, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "dial health endpoint").WithMetadata("addr", addr)
	}
	return newProbe(conn), nil
}

func newProbe(conn *grpc.ClientConn) *Probe {
	return &Probe{
		conn:   conn,
		client: healthpb.NewHealthClient(conn),
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Close releases the connection.
func (p *Probe) Close() error { return p.conn.Close() }

// Check returns the serving status of service, retrying transient failures.
func (p *Probe) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	var status healthpb.HealthCheckResponse_ServingStatus
	err := resilience.Retry(ctx, p.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		defer cancel()
		resp, err := p.client.Check(callCtx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return apperrors.FromGRPCError(err)
		}
		status = resp.GetStatus()
		return nil
	})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return status, nil
}
