package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/league-vision/internal/audio"
	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/health"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
	"github.com/GriffinCanCode/league-vision/internal/recognition/preprocess"
	"github.com/GriffinCanCode/league-vision/internal/recognition/tesseract"
	"github.com/GriffinCanCode/league-vision/internal/resilience"
	"github.com/GriffinCanCode/league-vision/internal/scanner"
	"github.com/GriffinCanCode/league-vision/internal/screen"
	"github.com/GriffinCanCode/league-vision/internal/server"
	"github.com/GriffinCanCode/league-vision/internal/zone"
)

const (
	feedHistory     = 200
	feedEventBuffer = 64
	shutdownTimeout = 5 * time.Second
)

func newRunCmd() *cobra.Command {
	var paused bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scan loop with the HTTP and health servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), paused)
		},
	}
	cmd.Flags().BoolVar(&paused, "paused", false, "start with the scanner paused")
	return cmd
}

func run(parent context.Context, paused bool) error {
	cfg := config.Load()
	logger := setupLogger(cfg)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	store := loadStore(cfg.VisionConfig, logger)
	go store.Watch(ctx, cfg.ConfigPoll)

	// Recognition
	prefix := cfg.TessdataPrefix
	if v := store.Snapshot().Vision; v.TessdataPrefix != "" {
		prefix = v.TessdataPrefix
	}
	var engine recognition.Engine
	tess, err := tesseract.New(tesseract.Config{TessdataPrefix: prefix, Logger: logger})
	if err != nil {
		// Without an engine every cycle recognizes nothing.
		logger.Error("Recognition engine unavailable", "error", err)
	} else {
		engine = tess
		defer func() { _ = tess.Close() }()
	}
	breaker := resilience.New(resilience.RecognitionConfig()).WithLogger(logger)
	pipeline := recognition.NewPipeline(engine,
		recognition.WithLogger(logger),
		recognition.WithBreaker(breaker),
		recognition.WithCache(recognition.NewFrameCache(recognition.DefaultMaxHashDistance, recognition.DefaultMaxAge)),
	)

	// Capture
	capturer := screen.New(cfg.CaptureTimeout)
	defer capturer.Close()
	desktop := screen.NewDesktop(func() config.Resolution { return store.Snapshot().Vision.Resolution })

	// Sinks
	feed := scanner.NewFeed(feedHistory, feedEventBuffer)
	sinks := scanner.Sinks{feed}
	var chime *audio.Chime
	if cfg.AlertSound {
		if dev, err := audio.OpenDevice(audio.DefaultSampleRate); err != nil {
			logger.Warn("Alert sound disabled", "error", err)
		} else {
			chime = audio.NewChime(dev, audio.DefaultSampleRate, audio.DefaultCooldown, logger)
			go chime.Run(ctx)
			sinks = append(sinks, chime)
		}
	}

	hs := health.NewServer(logger)

	sc, err := scanner.New(scanner.Deps{
		Config:     store,
		Capturer:   capturer,
		Recognizer: pipeline,
		Strategies: preprocess.Sets{},
		Window:     desktop,
		Sink:       sinks,
	}, scanner.WithLogger(logger), scanner.WithStateHook(hs.Track))
	if err != nil {
		return err
	}

	// Zone feed
	if cfg.ClientLogPath != "" {
		mon := zone.NewMonitor(cfg.ClientLogPath, func(z string) {
			logger.Info("Zone changed", "zone", z, "hideout", zone.IsHideout(z))
			sc.SetZone(z)
		}, logger)
		go func() {
			if err := mon.Run(ctx); err != nil {
				logger.Warn("Zone monitor stopped", "error", err)
			}
		}()
	} else {
		logger.Info("CLIENT_LOG_PATH not set, zone tracking disabled")
	}

	// Servers
	srv := server.New(ctx, sc, store, feed, logger)
	if chime != nil {
		srv.WithAlerts(chime)
	}
	go srv.Broadcast(ctx)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		if err := hs.Serve(ctx, cfg.GRPCAddr); err != nil {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := sc.Start(ctx); err != nil {
		return err
	}
	if paused {
		sc.Pause()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down...", "signal", sig.String())
	case <-ctx.Done():
	}

	sc.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	waitDone(shutdownCtx, sc.Done(), logger)

	logger.Info("shutdown complete")
	return nil
}

// waitDone waits for the scan worker to finish its last cycle.
func waitDone(ctx context.Context, done <-chan struct{}, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("scanner did not stop before shutdown timeout")
	}
}
