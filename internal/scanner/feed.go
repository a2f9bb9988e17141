package scanner

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Sink receives scanner notifications. Implementations must not block.
type Sink interface {
	OnDecision(d vision.Decision)
	OnStatus(msg string)
	OnModeChanged(mode vision.ScanMode)
}

// Sinks fans notifications out to several sinks in order.
type Sinks []Sink

func (s Sinks) OnDecision(d vision.Decision) {
	for _, sink := range s {
		sink.OnDecision(d)
	}
}

func (s Sinks) OnStatus(msg string) {
	for _, sink := range s {
		sink.OnStatus(msg)
	}
}

func (s Sinks) OnModeChanged(mode vision.ScanMode) {
	for _, sink := range s {
		sink.OnModeChanged(mode)
	}
}

// Event types carried on the feed.
const (
	EventDecision = "decision"
	EventStatus   = "status"
	EventMode     = "mode"
)

// Event is one scanner notification as published to feed subscribers.
type Event struct {
	Type     string           `json:"type"`
	Decision *vision.Decision `json:"decision,omitempty"`
	Status   string           `json:"status,omitempty"`
	Mode     string           `json:"mode,omitempty"`
	At       time.Time        `json:"at"`
}

// Feed keeps a bounded history of decisions and republishes every
// notification on a buffered channel. Events are dropped when the channel is full.
type Feed struct {
	mu      sync.RWMutex
	entries []vision.Decision
	maxSize int
	events  chan Event
	now     func() time.Time
}

// NewFeed creates a feed holding up to maxEntries decisions.
func NewFeed(maxEntries, eventBuffer int) *Feed {
	return &Feed{
		entries: make([]vision.Decision, 0, maxEntries),
		maxSize: maxEntries,
		events:  make(chan Event, eventBuffer),
		now:     time.Now,
	}
}

func (f *Feed) OnDecision(d vision.Decision) {
	f.mu.Lock()
	f.entries = append(f.entries, d)
	if len(f.entries) > f.maxSize {
		f.entries = f.entries[len(f.entries)-f.maxSize:]
	}
	f.mu.Unlock()

	f.emit(Event{Type: EventDecision, Decision: &d, At: d.At})
}

func (f *Feed) OnStatus(msg string) {
	f.emit(Event{Type: EventStatus, Status: msg, At: f.now()})
}

func (f *Feed) OnModeChanged(mode vision.ScanMode) {
	f.emit(Event{Type: EventMode, Mode: mode.String(), At: f.now()})
}

// Events returns the notification channel.
func (f *Feed) Events() <-chan Event { return f.events }

func (f *Feed) emit(e Event) {
	select {
	case f.events <- e:
	default:
	}
}

// Recent returns up to n decisions, newest last. n <= 0 returns all.
func (f *Feed) Recent(n int) []vision.Decision {
	f.mu.RLock()
	defer f.mu.RUnlock()

	start := 0
	if n > 0 && n < len(f.entries) {
		start = len(f.entries) - n
	}
	out := make([]vision.Decision, len(f.entries)-start)
	copy(out, f.entries[start:])
	return out
}

// Last returns the newest decision.
func (f *Feed) Last() (vision.Decision, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.entries) == 0 {
		return vision.Decision{}, false
	}
	return f.entries[len(f.entries)-1], true
}
