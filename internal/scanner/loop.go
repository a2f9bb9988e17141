package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/detect"
	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/recognition"
	"github.com/GriffinCanCode/league-vision/internal/region"
	"github.com/GriffinCanCode/league-vision/internal/trace"
	"github.com/GriffinCanCode/league-vision/internal/vision"
	"github.com/GriffinCanCode/league-vision/internal/zone"
)

// run is the worker loop. It checks the state at the top of every cycle and
// exits on Stop or when ctx ends; a cycle in progress always completes.
func (s *Scanner) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.exited()

	work := context.WithoutCancel(ctx)
	s.w.modeSent = false

	for ctx.Err() == nil {
		state := s.State()
		if state == Stopped {
			return
		}
		v := s.refresh()

		if state == Paused {
			s.clock.Sleep(ctx, v.FocusBackoffDuration())
			continue
		}
		if !s.focused(v.FocusTitle) {
			s.clock.Sleep(ctx, v.FocusBackoffDuration())
			continue
		}

		mode := s.ActiveMode()
		start := s.clock.Now()
		s.cycle(work, mode, start)
		s.clock.Sleep(ctx, remaining(v.Interval(mode), s.clock.Now().Sub(start)))
	}
}

// exited marks the scanner stopped when the loop ends without Stop.
func (s *Scanner) exited() {
	s.mu.Lock()
	wasRunning := s.state != Stopped
	s.state = Stopped
	s.mu.Unlock()

	if wasRunning {
		s.logger.Info("Scanner stopped by cancellation")
		s.transitioned(Stopped)
	}
}

// focused applies the focus gate, announcing changes once.
func (s *Scanner) focused(title string) bool {
	ok := s.deps.Window.ForegroundTitleContains(title)
	switch {
	case !ok && !s.w.unfocused:
		s.w.unfocused = true
		s.logger.Debug("Game window not focused", "title", title)
		s.deps.Sink.OnStatus("waiting for game window")
	case ok && s.w.unfocused:
		s.w.unfocused = false
		s.deps.Sink.OnStatus("scanning")
	}
	return ok
}

// refresh rebuilds the detector list when the configuration version changes.
func (s *Scanner) refresh() config.Vision {
	snap := s.deps.Config.Snapshot()
	if snap.Version == s.w.version && s.w.detectors != nil {
		return snap.Vision
	}

	v := snap.Vision
	s.w.version = snap.Version
	s.w.vision = v
	s.w.geometry = region.GeometryFrom(v)
	s.w.hint = recognition.ParseLayoutHint(v.LayoutHint)
	s.w.tracker.SetVocabulary(v.StashTabs)

	var negotiation detect.Detector
	s.w.trigger = detect.Trigger{}
	if v.Syndicate.Enabled {
		s.w.resolver.SetGoals(v.Syndicate.Goals)
		s.w.resolver.SetTTL(v.Syndicate.MemoryTTLDuration(), v.Syndicate.FallbackTTLDuration())
		negotiation = s.w.resolver
		s.w.trigger = detect.Trigger{Keywords: v.Syndicate.ContextKeywords}
	}
	s.w.detectors = detect.Build(v, negotiation)

	s.logger.Info("Detectors rebuilt", "version", snap.Version, "detectors", s.w.detectors.Names())
	s.publish(s.published.Get().region)
	return v
}

// cycle runs one capture, recognition and decision pass.
func (s *Scanner) cycle(ctx context.Context, mode vision.ScanMode, now time.Time) {
	ctx, span := trace.StartSpan(ctx, "scan_cycle")
	log := trace.Logger(ctx, s.logger)
	defer span.Finish(log, "Cycle done")
	v := s.w.vision

	cursor, _ := s.deps.Window.CursorPosition()
	window, _ := s.deps.Window.WindowRect(v.FocusTitle)
	rect, effective := region.Select(region.Params{
		Mode:         mode,
		Cursor:       cursor,
		Window:       window,
		Screen:       s.screen(),
		Anchor:       s.w.anchor,
		LastExpanded: s.w.lastExpanded,
		Now:          now,
	}, s.w.geometry)
	span.SetAttr("mode", effective.String())
	span.SetAttr("region", rect)
	s.announce(effective)

	s.w.cycles++
	s.w.effective = effective
	defer s.publish(rect)

	img, err := s.deps.Capturer.Capture(ctx, rect)
	if err != nil {
		s.captureFailed(log, rect, err)
		return
	}
	if s.w.captureFail.Clear() {
		log.Info("Capture recovered")
		s.deps.Sink.OnStatus("scanning")
	}

	res := s.deps.Recognizer.Run(ctx, img, rect, s.deps.Strategies.Primary(v.OCRThreshold), s.w.hint)
	in := detect.NewInput(res.Tokens, res.Text, now)

	if s.w.trigger.Fired(in) {
		s.w.lastExpanded = now
		res = s.deps.Recognizer.Run(ctx, img, rect, s.deps.Strategies.Context(), s.w.hint)
		in = detect.NewInput(res.Tokens, res.Text, now)
		log.Debug("Context pass", "strategy", res.Strategy, "tokens", len(res.Tokens))
	}

	s.observeStash(res.Text)

	s.mu.Lock()
	inHideout := zone.IsHideout(s.zone)
	s.mu.Unlock()

	result := s.w.detectors.Evaluate(in, inHideout)
	if result.HasFinding() {
		d := vision.Decision{
			ID:      uuid.NewString(),
			Finding: result.Finding,
			Source:  result.Source,
			Mode:    effective,
			At:      now,
		}
		s.w.last = &d
		span.SetAttr("decision", d.Source)
		log.Debug("Decision", "source", d.Source, "message", d.Finding.Message, "severity", d.Finding.Severity.String())
		s.deps.Sink.OnDecision(d)
	}

	if effective == vision.FollowCursor {
		s.w.anchor = s.w.anchor.Next(result.Found)
	}
}

// announce emits the effective mode when it differs from the last one sent.
func (s *Scanner) announce(mode vision.ScanMode) {
	if s.w.modeSent && mode == s.w.lastMode {
		return
	}
	s.w.lastMode, s.w.modeSent = mode, true
	s.deps.Sink.OnModeChanged(mode)
}

func (s *Scanner) screen() vision.Rect {
	if b := s.deps.Window.ScreenBounds(); !b.Empty() {
		return b
	}
	return defaultScreen
}

// captureFailed reports the first failure of a streak; capture errors never end the loop.
func (s *Scanner) captureFailed(log *slog.Logger, rect vision.Rect, err error) {
	if !s.w.captureFail.Raise() {
		log.Debug("Capture failed", "error", err)
		return
	}
	code := apperrors.CodeCaptureFailed
	if appErr, ok := apperrors.As(err); ok {
		code = appErr.Code
	}
	log.Warn("Capture failed, skipping cycles", "code", code.String(), "region", rect, "error", err)
	s.deps.Sink.OnStatus(fmt.Sprintf("capture unavailable (%s)", code))
}

func (s *Scanner) observeStash(text string) {
	if text == "" {
		return
	}
	if entry, _, changed := s.w.tracker.Observe(text); changed {
		s.deps.Sink.OnStatus("stash tab: " + entry)
	}
}

func (s *Scanner) publish(rect vision.Rect) {
	info := cycleInfo{
		mode:      s.w.effective,
		anchor:    s.w.anchor,
		region:    rect,
		version:   s.w.version,
		cycles:    s.w.cycles,
		detectors: s.w.detectors.Names(),
		stashTab:  s.w.tracker.Current(),
		last:      s.w.last,
	}
	s.published.Set(info)
}
