// Package syndicate resolves guidance for the multi-member negotiation board.
package syndicate

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/detect"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Tier ranks how much a candidate can be trusted.
type Tier int

const (
	TierNone    Tier = iota
	TierDefault      // member seen, no state
	TierRemove       // "remove" goal, no state
	TierState        // current or target house resolved
)

const removeGoal = "remove"

var (
	buttonWords  = []string{"execute", "interrogate", "release"}
	contextWords = []string{"intelligence", "imprisoned", "rank", "transportation", "fortification", "research", "intervention"}
	actionWords  = []string{"execute", "interrogate", "bargain", "betray", "release"}
)

const (
	houses = `(transportation|fortification|research|intervention)`
	ranks  = `(member|leader|captain|sergeant|lieutenant)`
)

var (
	intelPattern     = regexp.MustCompile(`(?i)\+\d+\s+` + houses + `\s+intelligence`)
	rankHousePattern = regexp.MustCompile(`(?i)` + ranks + `.{0,10}` + houses)
	houseRankPattern = regexp.MustCompile(`(?i)` + houses + `.{0,10}` + ranks)
	movePattern      = regexp.MustCompile(`(?i)moves to.{0,10}` + houses)
)

// Candidate is the guidance derived for one recognized member.
type Candidate struct {
	Subject string
	Goal    string
	Tier    Tier
	House   string
	Target  string
	Finding vision.Finding
	Cached  bool // recalled from memory this cycle
}

// Resolver implements detect.Detector for the negotiation board.
type Resolver struct {
	goals  []config.Goal
	memory *Memory
	logger *slog.Logger
}

// New creates a resolver. A nil logger discards output.
func New(cfg config.Syndicate, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		goals:  cfg.Goals,
		memory: NewMemory(cfg.MemoryTTLDuration(), cfg.FallbackTTLDuration()),
		logger: logger,
	}
}

// SetGoals swaps the goal table and keeps memory.
func (r *Resolver) SetGoals(goals []config.Goal) { r.goals = goals }

// SetTTL updates the memory lifetimes and keeps stored entries.
func (r *Resolver) SetTTL(ttl, fallbackTTL time.Duration) { r.memory.SetTTL(ttl, fallbackTTL) }

func (r *Resolver) Name() string { return "syndicate" }

// InContext reports whether the text looks like the negotiation board.
func InContext(in detect.Input) bool {
	_, buttons := in.ContainsAny(buttonWords)
	return buttons || hasContext(in)
}

func hasContext(in detect.Input) bool {
	_, ok := in.ContainsAny(contextWords)
	return ok
}

// Evaluate picks the best candidate and smooths it with memory.
func (r *Resolver) Evaluate(in detect.Input) (vision.Finding, bool) {
	if len(r.goals) == 0 || !InContext(in) {
		return vision.Finding{}, false
	}

	cands := r.recall(r.Candidates(in), in)
	if best, ok := Best(cands); ok {
		switch {
		case best.Cached:
			r.logger.Debug("Using cached negotiation result", "member", best.Subject)
		case best.Tier == TierState:
			r.memory.Remember(best.Subject, best.Finding, in.Now)
			r.logger.Debug("Memorized negotiation result", "member", best.Subject, "message", best.Finding.Message)
		}
		return best.Finding, true
	}

	if hasContext(in) {
		if cached, member, hit := r.memory.LastGood(in.Now); hit {
			r.logger.Debug("Using fallback negotiation result", "member", member)
			return cached, true
		}
	}
	return vision.Finding{}, false
}

// recall raises every candidate below TierState to its remembered result.
func (r *Resolver) recall(cands []Candidate, in detect.Input) []Candidate {
	for i, c := range cands {
		if c.Tier == TierState {
			continue
		}
		if f, hit := r.memory.Recall(c.Subject, in.Now); hit {
			cands[i].Finding, cands[i].Tier, cands[i].Cached = f, TierState, true
		}
	}
	return cands
}

// Best returns the highest-tier candidate. A live result beats a cached one
// of the same tier; otherwise the earliest wins ties.
func Best(cands []Candidate) (Candidate, bool) {
	var best Candidate
	for _, c := range cands {
		if c.Tier > best.Tier || (c.Tier == best.Tier && best.Cached && !c.Cached) {
			best = c
		}
	}
	return best, best.Tier > TierNone
}

// Candidates derives one candidate per token naming a configured member.
func (r *Resolver) Candidates(in detect.Input) []Candidate {
	actions := availableActions(in)
	house := currentHouse(in.Text)
	target := ""
	if m := movePattern.FindStringSubmatch(in.Text); m != nil {
		target = titleCase(m[1])
	}

	var out []Candidate
	for _, tok := range in.Tokens {
		word := strings.TrimFunc(tok.Text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" {
			continue
		}
		for _, g := range r.goals {
			if strings.EqualFold(g.Member, word) {
				out = append(out, classify(g, actions, house, target, in))
			}
		}
	}
	return out
}

func classify(g config.Goal, actions []string, house, target string, in detect.Input) Candidate {
	c := Candidate{Subject: g.Member, Goal: g.Goal, House: house, Target: target, Tier: TierDefault}
	label := fmt.Sprintf("%s -> %s", g.Member, strings.ToUpper(g.Goal))
	msg, color := fmt.Sprintf("%s | %s", label, strings.Join(actions, ", ")), vision.ColorCyan

	if strings.EqualFold(g.Goal, removeGoal) {
		msg, color = fmt.Sprintf("%s: REMOVE (Do not Rank Up)", g.Member), vision.ColorOrange
		c.Tier = TierRemove
	}

	switch {
	case target != "":
		c.Tier = TierState
		switch {
		case strings.EqualFold(target, g.Goal):
			msg, color = fmt.Sprintf("%s | EXECUTE (Join %s)", label, g.Goal), vision.ColorGreen
		case in.Contains("release"):
			msg, color = label+" | RELEASE (Keep Free)", vision.ColorGreen
		default:
			msg, color = fmt.Sprintf("%s | AVOID %s", label, strings.ToUpper(target)), vision.ColorOrange
		}
	case house != "":
		c.Tier = TierState
		switch {
		case !strings.EqualFold(house, g.Goal) && in.Contains("interrogate"):
			msg, color = fmt.Sprintf("%s | INTERROGATE (Remove from %s)", label, house), vision.ColorGreen
		case !strings.EqualFold(house, g.Goal):
			msg, color = fmt.Sprintf("%s | REMOVE FROM %s", label, strings.ToUpper(house)), vision.ColorOrange
		case in.Contains("execute"):
			msg, color = fmt.Sprintf("%s | EXECUTE (Rank Up in %s)", label, house), vision.ColorGreen
		case in.Contains("release"):
			msg, color = fmt.Sprintf("%s | RELEASE (Stay in %s)", label, house), vision.ColorGreen
		default:
			msg, color = fmt.Sprintf("%s | STAY IN %s", label, strings.ToUpper(house)), vision.ColorGreen
		}
	}

	c.Finding = vision.Finding{Message: msg, Color: color, Severity: severityFor(color)}
	return c
}

// currentHouse tries the intelligence line, then rank-before-house, then house-before-rank.
func currentHouse(text string) string {
	if m := intelPattern.FindStringSubmatch(text); m != nil {
		return titleCase(m[1])
	}
	if m := rankHousePattern.FindStringSubmatch(text); m != nil {
		return titleCase(m[2])
	}
	if m := houseRankPattern.FindStringSubmatch(text); m != nil {
		return titleCase(m[1])
	}
	return ""
}

func availableActions(in detect.Input) []string {
	var out []string
	for _, a := range actionWords {
		if in.Contains(a) {
			out = append(out, strings.ToUpper(a))
		}
	}
	return out
}

func severityFor(color string) vision.Severity {
	switch color {
	case vision.ColorOrange:
		return vision.Warn
	case vision.ColorRed:
		return vision.Danger
	default:
		return vision.Info
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
