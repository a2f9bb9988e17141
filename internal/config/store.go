package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/league-vision/internal/syncx"
)

// Snapshot is one published configuration. Version increases on every change.
type Snapshot struct {
	Version  uint64
	Vision   Vision
	LoadedAt time.Time
}

// Store publishes Vision snapshots and reloads them from disk.
// A failed reload keeps the previous snapshot.
type Store struct {
	path   string
	logger *slog.Logger

	current *syncx.Value[Snapshot]
	reload  singleflight.Group // joins concurrent Reload calls

	mu      sync.Mutex
	modTime time.Time
}

// NewStore starts with the defaults at version 1. path may be empty.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		path:    path,
		logger:  logger,
		current: syncx.NewValue(Snapshot{Version: 1, Vision: DefaultVision(), LoadedAt: time.Now()}),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Snapshot returns the current configuration.
func (s *Store) Snapshot() Snapshot { return s.current.Get() }

// Set publishes v as a new version.
func (s *Store) Set(v Vision) Snapshot {
	return s.current.Update(func(old Snapshot) Snapshot {
		return Snapshot{Version: old.Version + 1, Vision: v, LoadedAt: time.Now()}
	})
}

// Reload re-reads the file and publishes it when valid. Callers that arrive
// while a reload is in flight share its result.
func (s *Store) Reload() (Snapshot, error) {
	v, err, _ := s.reload.Do("reload", func() (interface{}, error) {
		return s.load()
	})
	return v.(Snapshot), err
}

func (s *Store) load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return s.Snapshot(), nil
	}

	if info, statErr := os.Stat(s.path); statErr == nil {
		s.modTime = info.ModTime()
	}
	v, err := LoadVision(s.path)
	if err != nil {
		s.logger.Warn("Vision config rejected, keeping previous", "path", s.path, "error", err)
		return s.Snapshot(), err
	}

	snap := s.Set(v)
	s.logger.Info("Vision config loaded", "path", s.path, "version", snap.Version)
	return snap, nil
}

// Watch polls the file modification time and reloads on change until ctx ends.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if s.path == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.changed() {
				_, _ = s.Reload()
			}
		}
	}
}

func (s *Store) changed() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !info.ModTime().Equal(s.modTime)
}
