// Package scanner runs the capture, recognition and decision loop on one worker goroutine.
package scanner

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/detect"
	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
	"github.com/GriffinCanCode/league-vision/internal/region"
	"github.com/GriffinCanCode/league-vision/internal/syncx"
	"github.com/GriffinCanCode/league-vision/internal/syndicate"
	"github.com/GriffinCanCode/league-vision/internal/vision"
	"github.com/GriffinCanCode/league-vision/internal/vocab"
	"github.com/GriffinCanCode/league-vision/internal/zone"
)

// State is the scheduler lifecycle state.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	default:
		*s = Stopped
	}
	return nil
}

// WindowService answers platform window queries. Implementations that cannot
// answer a query should report focused, a fixed cursor, or an empty rect.
type WindowService interface {
	ForegroundTitleContains(substr string) bool
	CursorPosition() (vision.Point, bool)
	WindowRect(title string) (vision.Rect, bool)
	ScreenBounds() vision.Rect
}

// Capturer grabs the pixels of a screen region.
type Capturer interface {
	Capture(ctx context.Context, region vision.Rect) (image.Image, error)
}

// Recognizer runs a strategy set over a frame.
type Recognizer interface {
	Run(ctx context.Context, img image.Image, region vision.Rect, set recognition.StrategySet, hint recognition.LayoutHint) recognition.Result
}

// Strategies supplies the recognition strategy sets.
type Strategies interface {
	Primary(threshold int) recognition.StrategySet
	Context() recognition.StrategySet
}

// ConfigSource publishes configuration snapshots.
type ConfigSource interface {
	Snapshot() config.Snapshot
}

// Deps are the collaborators a Scanner needs.
type Deps struct {
	Config     ConfigSource
	Capturer   Capturer
	Recognizer Recognizer
	Strategies Strategies
	// Window may be nil; the scanner then assumes focus and uses the screen.
	Window WindowService
	Sink   Sink
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. Without it the scanner logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Scanner) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStateHook is called after every lifecycle transition.
func WithStateHook(fn func(State)) Option {
	return func(s *Scanner) { s.stateHook = fn }
}

// Status is a point-in-time view of the scanner for external readers.
type Status struct {
	State State           `json:"state"`
	Mode  vision.ScanMode `json:"mode"`
	// Effective is the mode the last cycle actually scanned with.
	Effective     vision.ScanMode  `json:"effective_mode"`
	Override      *vision.ScanMode `json:"override,omitempty"`
	Zone          string           `json:"zone"`
	Anchor        string           `json:"anchor"`
	Region        vision.Rect      `json:"region"`
	ConfigVersion uint64           `json:"config_version"`
	Cycles        uint64           `json:"cycles"`
	Detectors     []string         `json:"detectors"`
	StashTab      string           `json:"stash_tab,omitempty"`
	LastDecision  *vision.Decision `json:"last_decision,omitempty"`
}

// cycleInfo is what the worker publishes after each cycle.
type cycleInfo struct {
	mode      vision.ScanMode
	anchor    region.Anchor
	region    vision.Rect
	version   uint64
	cycles    uint64
	detectors []string
	stashTab  string
	last      *vision.Decision
}

// Scanner is the scan scheduler. Controls are safe from any goroutine.
type Scanner struct {
	deps      Deps
	logger    *slog.Logger
	clock     Clock
	stateHook func(State)

	startMu  sync.Mutex
	mu       sync.Mutex
	state    State
	override *vision.ScanMode
	zone     string
	cancel   context.CancelFunc
	done     chan struct{}

	published *syncx.Value[cycleInfo]

	// Worker-owned; touched only by the loop goroutine.
	w worker
}

// worker holds the state carried between cycles.
type worker struct {
	version      uint64
	vision       config.Vision
	detectors    *detect.Set
	resolver     *syndicate.Resolver
	trigger      detect.Trigger
	geometry     region.Geometry
	hint         recognition.LayoutHint
	tracker      *vocab.Tracker
	anchor       region.Anchor
	lastExpanded time.Time
	lastMode     vision.ScanMode
	effective    vision.ScanMode
	modeSent     bool
	unfocused    bool
	captureFail  syncx.Flag
	cycles       uint64
	last         *vision.Decision
}

// New creates a stopped scanner.
func New(deps Deps, opts ...Option) (*Scanner, error) {
	switch {
	case deps.Config == nil:
		return nil, apperrors.New(apperrors.CodeConfigMissing, "scanner requires a config source")
	case deps.Capturer == nil:
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "scanner requires a capturer")
	case deps.Recognizer == nil || deps.Strategies == nil:
		return nil, apperrors.New(apperrors.CodeOCRInitFailed, "scanner requires a recognizer and strategies")
	}
	if deps.Window == nil {
		deps.Window = headless{}
	}
	if deps.Sink == nil {
		deps.Sink = Sinks(nil)
	}

	s := &Scanner{
		deps:      deps,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:     realClock{},
		zone:      zone.Unknown,
		published: syncx.NewValue(cycleInfo{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.w.resolver = syndicate.New(deps.Config.Snapshot().Vision.Syndicate, s.logger)
	s.w.tracker = vocab.NewTracker(nil)
	s.refresh()
	return s, nil
}

// Start launches the worker. It waits for a previous worker to finish its
// final cycle, and fails if the scanner is already running or paused.
func (s *Scanner) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return apperrors.New(apperrors.CodeInvalidArgument, "scanner already started")
	}
	prev := s.done
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.state = Running
	s.mu.Unlock()

	s.logger.Info("Scanner started")
	s.transitioned(Running)
	go s.run(runCtx, done)
	return nil
}

// Stop ends the loop after the current cycle. Safe to call repeatedly.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Info("Scanner stopped")
	s.transitioned(Stopped)
}

// Done is closed when the current worker exits. It is nil before the first Start.
func (s *Scanner) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Pause suspends scanning without ending the worker.
func (s *Scanner) Pause() bool { return s.swapState(Running, Paused) }

// Resume continues a paused scanner.
func (s *Scanner) Resume() bool { return s.swapState(Paused, Running) }

func (s *Scanner) swapState(from, to State) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Info("Scanner state changed", "from", from.String(), "to", to.String())
	s.transitioned(to)
	return true
}

func (s *Scanner) transitioned(to State) {
	s.deps.Sink.OnStatus(to.String())
	if s.stateHook != nil {
		s.stateHook(to)
	}
}

// State returns the lifecycle state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetModeOverride forces a mode; nil returns to automatic selection.
func (s *Scanner) SetModeOverride(mode *vision.ScanMode) {
	s.mu.Lock()
	if mode == nil {
		s.override = nil
	} else {
		m := *mode
		s.override = &m
	}
	s.mu.Unlock()
}

// SetZone records the zone reported by the game log.
func (s *Scanner) SetZone(z string) {
	s.mu.Lock()
	s.zone = z
	s.mu.Unlock()
}

// ToggleMode flips between cursor and center scanning as an override. The
// worker announces the new mode on its next cycle.
func (s *Scanner) ToggleMode() vision.ScanMode {
	v := s.deps.Config.Snapshot().Vision

	s.mu.Lock()
	next := vision.FollowCursor
	if s.activeModeLocked(v) == vision.FollowCursor {
		next = vision.CenterScreen
	}
	s.override = &next
	s.mu.Unlock()
	return next
}

// ActiveMode returns the base mode the next cycle will use.
func (s *Scanner) ActiveMode() vision.ScanMode {
	v := s.deps.Config.Snapshot().Vision
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModeLocked(v)
}

// activeModeLocked resolves override, then configured mode, then the zone default.
func (s *Scanner) activeModeLocked(v config.Vision) vision.ScanMode {
	if s.override != nil {
		return *s.override
	}
	if m, ok := v.Mode(); ok {
		return m
	}
	if zone.IsHideout(s.zone) {
		return vision.FollowCursor
	}
	return vision.CenterScreen
}

// Status returns a snapshot for status reporting.
func (s *Scanner) Status() Status {
	info := s.published.Get()
	v := s.deps.Config.Snapshot().Vision

	s.mu.Lock()
	st := Status{
		State:         s.state,
		Zone:          s.zone,
		Mode:          s.activeModeLocked(v),
		Effective:     info.mode,
		Anchor:        info.anchor.String(),
		Region:        info.region,
		ConfigVersion: info.version,
		Cycles:        info.cycles,
		Detectors:     info.detectors,
		StashTab:      info.stashTab,
		LastDecision:  info.last,
	}
	if s.override != nil {
		m := *s.override
		st.Override = &m
	}
	s.mu.Unlock()
	return st
}

// headless is the WindowService used when no platform service is available.
type headless struct{}

func (headless) ForegroundTitleContains(string) bool { return true }
func (headless) CursorPosition() (vision.Point, bool) { return vision.Point{}, false }
func (headless) WindowRect(string) (vision.Rect, bool) { return vision.Rect{}, false }
func (headless) ScreenBounds() vision.Rect { return defaultScreen }

var defaultScreen = vision.Rect{Width: 1920, Height: 1080}
