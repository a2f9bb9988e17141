package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

type fakePlayer struct {
	mu     sync.Mutex
	played [][]float32
	err    error
	closed bool
}

func (p *fakePlayer) Play(s []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, s)
	return p.err
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

func danger(msg string) vision.Decision {
	return vision.Decision{Finding: vision.Finding{Message: msg, Severity: vision.Danger, Color: vision.ColorRed}}
}

func TestToneShape(t *testing.T) {
	s := Tone(440, 100*time.Millisecond, 8000)
	if len(s) != 800 {
		t.Fatalf("len = %d, want 800", len(s))
	}
	if s[0] != 0 || math.Abs(float64(s[len(s)-1])) > 1e-6 {
		t.Errorf("tone should fade in and out: first %v last %v", s[0], s[len(s)-1])
	}
	var peak float32
	for _, v := range s {
		if v > peak {
			peak = v
		}
		if v > 0.5 || v < -0.5 {
			t.Fatalf("sample %v exceeds amplitude", v)
		}
	}
	if peak < 0.4 {
		t.Errorf("peak = %v, tone too quiet", peak)
	}
}

func TestAlertLength(t *testing.T) {
	rate := 1000
	want := 2*samplesFor(dangerTone, rate) + samplesFor(dangerGap, rate)
	if got := len(Alert(rate)); got != want {
		t.Errorf("len(Alert) = %d, want %d", got, want)
	}
}

func TestChimeFiltersAndCoolsDown(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewChime(&fakePlayer{}, 1000, time.Second, nil)
	c.now = func() time.Time { return now }

	c.OnDecision(vision.Decision{Finding: vision.Finding{Message: "FOUND: Hysteria", Severity: vision.Info}})
	c.OnDecision(vision.Decision{Finding: vision.Finding{Message: "avoid", Severity: vision.Warn}})
	if n := len(c.queue); n != 0 {
		t.Fatalf("queued %d alerts for non-danger findings", n)
	}

	c.OnDecision(danger("REFLECT"))
	c.OnDecision(danger("REFLECT"))
	if n := len(c.queue); n != 1 {
		t.Fatalf("queued %d alerts inside cooldown, want 1", n)
	}

	now = now.Add(time.Second)
	c.OnDecision(danger("REFLECT"))
	if n := len(c.queue); n != 2 {
		t.Errorf("queued %d alerts after cooldown, want 2", n)
	}

	c.SetEnabled(false)
	if c.Enabled() {
		t.Error("Enabled() = true after mute")
	}
	now = now.Add(time.Hour)
	c.OnDecision(danger("REFLECT"))
	if n := len(c.queue); n != 2 {
		t.Errorf("muted chime queued an alert")
	}
}

func TestChimeNeverBlocks(t *testing.T) {
	now := time.Now()
	c := NewChime(&fakePlayer{}, 1000, 0, nil)
	c.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultQueueSize*3; i++ {
			c.OnDecision(danger("x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnDecision blocked on a full queue")
	}
	if n := len(c.queue); n != DefaultQueueSize {
		t.Errorf("queue = %d, want %d", n, DefaultQueueSize)
	}
}

func TestChimeRunPlaysAndCloses(t *testing.T) {
	p := &fakePlayer{err: errors.New("device busy")}
	c := NewChime(p, 1000, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()

	c.OnDecision(danger("x"))
	deadline := time.After(2 * time.Second)
	for p.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("alert never played")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-stopped
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		t.Error("Run did not close the player")
	}
}

func TestDeviceOpens(t *testing.T) {
	if testing.Short() {
		t.Skip("requires an audio output device")
	}
	d, err := OpenDevice(DefaultSampleRate)
	if err != nil {
		t.Skipf("no audio device: %v", err)
	}
	defer d.Close()
	if err := d.Play(Tone(440, 10*time.Millisecond, DefaultSampleRate)); err != nil {
		t.Errorf("Play() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := d.Play(nil); err == nil {
		t.Error("Play after Close should fail")
	}
}
