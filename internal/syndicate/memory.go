package syndicate

import (
	"time"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

type entry struct {
	subject string
	at      time.Time
	finding vision.Finding
}

// Memory caches high-confidence findings per subject for a short window.
// Expired entries are dropped when read; there is no background sweep.
// Memory is owned by the scan goroutine and is not safe for concurrent use.
type Memory struct {
	ttl         time.Duration
	fallbackTTL time.Duration
	entries     map[string]entry
	lastGood    *entry
}

// NewMemory creates a memory with subject and fallback lifetimes.
func NewMemory(ttl, fallbackTTL time.Duration) *Memory {
	return &Memory{ttl: ttl, fallbackTTL: fallbackTTL, entries: make(map[string]entry)}
}

// SetTTL replaces both lifetimes. Entries are judged against the new values on their next read.
func (m *Memory) SetTTL(ttl, fallbackTTL time.Duration) {
	m.ttl, m.fallbackTTL = ttl, fallbackTTL
}

// Remember overwrites the entry for subject and the last-good slot.
func (m *Memory) Remember(subject string, f vision.Finding, at time.Time) {
	e := entry{subject: subject, at: at, finding: f}
	m.entries[subject] = e
	m.lastGood = &e
}

// Recall returns the finding for subject if it is younger than the TTL.
func (m *Memory) Recall(subject string, now time.Time) (vision.Finding, bool) {
	e, ok := m.entries[subject]
	if !ok {
		return vision.Finding{}, false
	}
	if now.Sub(e.at) >= m.ttl {
		delete(m.entries, subject)
		return vision.Finding{}, false
	}
	return e.finding, true
}

// LastGood returns the most recent finding of any subject within the fallback TTL.
func (m *Memory) LastGood(now time.Time) (vision.Finding, string, bool) {
	if m.lastGood == nil {
		return vision.Finding{}, "", false
	}
	if now.Sub(m.lastGood.at) >= m.fallbackTTL {
		m.lastGood = nil
		return vision.Finding{}, "", false
	}
	return m.lastGood.finding, m.lastGood.subject, true
}

// Len returns the number of subject entries, expired or not.
func (m *Memory) Len() int { return len(m.entries) }
