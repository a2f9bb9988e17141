// Package audio plays short alert tones for dangerous decisions
package audio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Chime defaults.
const (
	DefaultSampleRate = 44100
	DefaultCooldown   = 2 * time.Second
	DefaultQueueSize  = 4

	dangerFreq  = 880.0
	dangerTone  = 120 * time.Millisecond
	dangerGap   = 60 * time.Millisecond
	fadeSeconds = 0.005
)

// Player renders mono float32 samples.
type Player interface {
	Play(samples []float32) error
	Close() error
}

// Chime is a scanner sink that sounds an alert for danger findings.
// OnDecision never blocks; alerts are dropped when the queue is full.
type Chime struct {
	player     Player
	sampleRate int
	queue      chan []float32
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
	enabled  bool
}

// NewChime creates an enabled chime. Call Run to start playback.
func NewChime(p Player, sampleRate int, cooldown time.Duration, logger *slog.Logger) *Chime {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Chime{
		player:     p,
		sampleRate: sampleRate,
		queue:      make(chan []float32, DefaultQueueSize),
		logger:     logger,
		now:        time.Now,
		cooldown:   cooldown,
		enabled:    true,
	}
}

// SetEnabled mutes or unmutes the chime.
func (c *Chime) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	c.logger.Info("Alert sound state changed", "enabled", enabled)
}

// Enabled reports whether alerts are played.
func (c *Chime) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// OnDecision queues an alert for danger findings outside the cooldown.
func (c *Chime) OnDecision(d vision.Decision) {
	if d.Finding.Severity < vision.Danger {
		return
	}

	c.mu.Lock()
	now := c.now()
	if !c.enabled || (!c.last.IsZero() && now.Sub(c.last) < c.cooldown) {
		c.mu.Unlock()
		return
	}
	c.last = now
	c.mu.Unlock()

	select {
	case c.queue <- Alert(c.sampleRate):
		c.logger.Debug("Alert queued", "source", d.Source, "message", d.Finding.Message)
	default:
		c.logger.Debug("Alert queue full, dropping", "message", d.Finding.Message)
	}
}

func (c *Chime) OnStatus(string) {}

func (c *Chime) OnModeChanged(vision.ScanMode) {}

// Run plays queued alerts until ctx ends, then closes the player.
func (c *Chime) Run(ctx context.Context) {
	defer func() {
		if err := c.player.Close(); err != nil {
			c.logger.Debug("Audio close error", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case samples := <-c.queue:
			if err := c.player.Play(samples); err != nil {
				c.logger.Warn("Alert playback failed", "error", err)
			}
		}
	}
}

// Alert is the danger pattern: two short beeps.
func Alert(sampleRate int) []float32 {
	beep := Tone(dangerFreq, dangerTone, sampleRate)
	gap := make([]float32, samplesFor(dangerGap, sampleRate))
	out := make([]float32, 0, 2*len(beep)+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	return append(out, beep...)
}

// Tone returns a sine wave at freq with short linear fades at both ends.
func Tone(freq float64, d time.Duration, sampleRate int) []float32 {
	n := samplesFor(d, sampleRate)
	out := make([]float32, n)
	fade := int(fadeSeconds * float64(sampleRate))
	for i := range out {
		amp := 0.5
		if fade > 0 {
			amp *= math.Min(1, math.Min(float64(i)/float64(fade), float64(n-1-i)/float64(fade)))
		}
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}
