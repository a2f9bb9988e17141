package main

import (
	"fmt"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/league-vision/internal/config"
	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/health"
)

func newHealthCmd() *cobra.Command {
	var (
		addr    string
		service string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running engine's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = config.Load().GRPCAddr
				if addr != "" && addr[0] == ':' {
					addr = "localhost" + addr
				}
			}
			p, err := health.Dial(addr)
			if err != nil {
				return err
			}
			defer p.Close()

			st, err := p.Check(cmd.Context(), service)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", service, st)
			if st != healthpb.HealthCheckResponse_SERVING {
				return apperrors.Newf(apperrors.CodeUnavailable, "%s is %s", service, st)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "health endpoint (default from GRPC_ADDR)")
	cmd.Flags().StringVar(&service, "service", health.ScannerService, "service name to check")
	return cmd
}
