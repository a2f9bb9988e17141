// Package zone follows the game client log and reports zone changes.
package zone

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/resilience"
)

const (
	// Unknown is the zone before any log line has been seen.
	Unknown = "Unknown"

	DefaultPollInterval = 100 * time.Millisecond

	enteredMarker = ": You have entered "
)

var towns = []string{
	"Lioneye's Watch", "The Forest Encampment", "The Sarn Encampment",
	"Highgate", "Overseer's Tower", "The Bridge Encampment",
	"Oriath", "Karui Shores",
}

// ParseLine extracts the zone name from a log line, if it records a zone entry.
func ParseLine(line string) (string, bool) {
	_, after, ok := strings.Cut(line, enteredMarker)
	if !ok {
		return "", false
	}
	zone := strings.TrimRight(strings.TrimSpace(after), ".")
	if zone == "" {
		return "", false
	}
	return zone, true
}

// IsHideout reports whether zone is a player hideout.
func IsHideout(zone string) bool {
	return strings.Contains(zone, "Hideout")
}

// IsMap reports whether zone is a known, non-town, non-hideout area.
func IsMap(zone string) bool {
	if zone == "" || zone == Unknown || IsHideout(zone) {
		return false
	}
	for _, t := range towns {
		if strings.Contains(zone, t) {
			return false
		}
	}
	return true
}

// Monitor tails the client log from its current end.
type Monitor struct {
	path     string
	interval time.Duration
	onChange func(string)
	logger   *slog.Logger
	retry    resilience.RetryConfig

	mu      sync.RWMutex
	current string
}

// NewMonitor creates a monitor. onChange runs on the monitor goroutine for
// every zone that differs from the previous one.
func NewMonitor(path string, onChange func(string), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	retry := resilience.LogOpenRetryConfig()
	retry.Logger = logger
	return &Monitor{
		path:     path,
		interval: DefaultPollInterval,
		onChange: onChange,
		logger:   logger,
		retry:    retry,
		current:  Unknown,
	}
}

// Current returns the last zone seen.
func (m *Monitor) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Run tails the log until ctx is done. It returns CONFIG_MISSING when the
// log never appears.
func (m *Monitor) Run(ctx context.Context) error {
	if m.path == "" {
		return apperrors.New(apperrors.CodeConfigMissing, "client log path not set")
	}

	var f *os.File
	err := resilience.Retry(ctx, m.retry, func() error {
		var openErr error
		f, openErr = os.Open(m.path)
		return openErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return apperrors.Wrap(err, apperrors.CodeConfigMissing, "open client log").
			WithMetadata("path", m.path)
	}
	defer f.Close()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "seek client log")
	}
	m.logger.Info("Zone monitor started", "path", m.path)
	return m.tail(ctx, f, offset)
}

func (m *Monitor) tail(ctx context.Context, f *os.File, offset int64) error {
	reader := bufio.NewReader(f)
	var partial strings.Builder

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		line, err := reader.ReadString('\n')
		offset += int64(len(line))
		partial.WriteString(line)

		if err == nil {
			m.handle(partial.String())
			partial.Reset()
			continue
		}
		if !errors.Is(err, io.EOF) {
			return apperrors.Wrap(err, apperrors.CodeInternal, "read client log")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// The client truncates the log on some restarts; start over from the top.
		if info, statErr := f.Stat(); statErr == nil && info.Size() < offset {
			m.logger.Info("Client log truncated, rewinding", "path", m.path)
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "rewind client log")
			}
			offset = 0
			partial.Reset()
			reader.Reset(f)
		}
	}
}

func (m *Monitor) handle(line string) {
	zone, ok := ParseLine(line)
	if !ok {
		return
	}

	m.mu.Lock()
	changed := zone != m.current
	m.current = zone
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Debug("Zone changed", "zone", zone, "hideout", IsHideout(zone))
	if m.onChange != nil {
		m.onChange(zone)
	}
}
