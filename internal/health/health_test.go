package health

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/GriffinCanCode/league-vision/internal/scanner"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		state scanner.State
		want  healthpb.HealthCheckResponse_ServingStatus
	}{
		{scanner.Stopped, healthpb.HealthCheckResponse_NOT_SERVING},
		{scanner.Running, healthpb.HealthCheckResponse_SERVING},
		{scanner.Paused, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.state); got != tt.want {
			t.Errorf("StatusFor(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestTrackFollowsScanner(t *testing.T) {
	s := NewServer(quietLogger())
	ctx := context.Background()

	if st, _ := s.Check(ctx, ScannerService); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial scanner status = %v", st)
	}
	if st, _ := s.Check(ctx, ""); st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("process status = %v", st)
	}

	s.Track(scanner.Running)
	if st, _ := s.Check(ctx, ScannerService); st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("running status = %v", st)
	}
	s.Track(scanner.Stopped)
	if st, _ := s.Check(ctx, ScannerService); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("stopped status = %v", st)
	}

	if _, err := s.Check(ctx, "unknown.Service"); err == nil {
		t.Error("Check(unknown) should fail")
	}
}

func TestProbeOverConnection(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	s := NewServer(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- s.ServeListener(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	p := newProbe(conn)
	defer p.Close()

	s.Track(scanner.Running)
	st, err := p.Check(ctx, ScannerService)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("probe status = %v", st)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("ServeListener() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
