// Package detect holds the rule evaluators that turn recognized text into findings.
package detect

import (
	"strings"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Input is the recognized content of one cycle.
type Input struct {
	Text   string
	Lower  string
	Tokens []vision.Token
	Now    time.Time
}

// NewInput builds an Input, deriving Text from tokens when text is empty.
func NewInput(tokens []vision.Token, text string, now time.Time) Input {
	if text == "" {
		text = vision.JoinTokens(tokens)
	}
	return Input{Text: text, Lower: strings.ToLower(text), Tokens: tokens, Now: now}
}

// Contains reports whether the lowercased text holds s, case-insensitively.
func (in Input) Contains(s string) bool {
	return s != "" && strings.Contains(in.Lower, strings.ToLower(s))
}

// ContainsAny returns the first of list present in the text.
func (in Input) ContainsAny(list []string) (string, bool) {
	for _, s := range list {
		if in.Contains(s) {
			return s, true
		}
	}
	return "", false
}

// Detector evaluates one rule. A detector without its vocabulary yields nothing.
type Detector interface {
	Name() string
	Evaluate(in Input) (vision.Finding, bool)
}

// Scope limits where a detector runs.
type Scope int

const (
	Anywhere Scope = iota
	OutsideHideout
	InHideout
)

func (s Scope) allows(inHideout bool) bool {
	switch s {
	case OutsideHideout:
		return !inHideout
	case InHideout:
		return inHideout
	default:
		return true
	}
}

// Entry pairs a detector with its scope.
type Entry struct {
	Detector Detector
	Scope    Scope
}

// Set is an ordered list of enabled detectors, built once per configuration.
type Set struct {
	entries []Entry
	markers []string
}

// NewSet keeps nil detectors out of the list.
func NewSet(markers []string, entries ...Entry) *Set {
	s := &Set{markers: markers}
	for _, e := range entries {
		if e.Detector != nil {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// Names lists the detectors in evaluation order.
func (s *Set) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Detector.Name()
	}
	return names
}

// Len returns the number of detectors.
func (s *Set) Len() int { return len(s.entries) }

// Result is the outcome of evaluating a Set.
type Result struct {
	Finding vision.Finding
	Source  string
	// Found is true when a finding was produced or a found marker is present.
	Found bool
	ok    bool
}

// HasFinding reports whether a detector produced a finding.
func (r Result) HasFinding() bool { return r.ok }

// Evaluate runs every allowed detector in order and surfaces the first finding.
// Later detectors still run so their side effects (such as resolver memory) stay current.
func (s *Set) Evaluate(in Input, inHideout bool) Result {
	var res Result
	for _, e := range s.entries {
		if !e.Scope.allows(inHideout) {
			continue
		}
		f, ok := e.Detector.Evaluate(in)
		if ok && !res.ok {
			res = Result{Finding: f, Source: e.Detector.Name(), Found: true, ok: true}
		}
	}
	if !res.ok {
		_, res.Found = in.ContainsAny(s.markers)
	}
	return res
}

// Build assembles the detectors enabled in v. negotiation is placed after the
// keyword detector and may be nil.
func Build(v config.Vision, negotiation Detector) *Set {
	var entries []Entry

	if kws := v.Keywords(); len(kws) > 0 {
		entries = append(entries, Entry{Detector: NewKeyword(kws), Scope: OutsideHideout})
	}
	if negotiation != nil {
		entries = append(entries, Entry{Detector: negotiation, Scope: OutsideHideout})
	}
	if v.MapCheck.Enabled {
		entries = append(entries, Entry{
			Detector: NewContextGated("map_safety", v.MapCheck.RequiredContext, v.MapCheck.BadMods, v.MapDeviceButton),
			Scope:    InHideout,
		})
	}
	if v.Altars.Enabled {
		entries = append(entries, Entry{
			Detector: NewTiered(v.Altars.Tiers, v.Altars.MinTierToHighlight, v.Altars.BadMods),
			Scope:    OutsideHideout,
		})
	}
	if v.Expedition.Enabled {
		entries = append(entries, Entry{
			Detector: NewImmunity(v.Expedition.DomainKeyword, v.Expedition.ImmuneWarning, v.Expedition.BadMods),
			Scope:    OutsideHideout,
		})
	}
	return NewSet(v.FoundMarkers, entries...)
}

// Trigger recognizes text that calls for the specialized recognition pass.
type Trigger struct {
	Keywords []string
}

// Fired reports whether any trigger keyword is present.
func (t Trigger) Fired(in Input) bool {
	_, ok := in.ContainsAny(t.Keywords)
	return ok
}
