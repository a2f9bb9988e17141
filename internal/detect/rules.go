package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// minKeywordToken is the shortest token the keyword detector looks inside.
const minKeywordToken = 3

// Keyword flags configured keywords found inside individual tokens.
type Keyword struct {
	keywords []string
	lowered  []string
}

func NewKeyword(keywords []string) *Keyword {
	k := &Keyword{keywords: keywords, lowered: make([]string, len(keywords))}
	for i, kw := range keywords {
		k.lowered[i] = strings.ToLower(kw)
	}
	return k
}

func (k *Keyword) Name() string { return "keyword" }

// Evaluate matches per token, never across the joined text.
func (k *Keyword) Evaluate(in Input) (vision.Finding, bool) {
	for _, tok := range in.Tokens {
		word := strings.TrimSpace(tok.Text)
		if len(word) < minKeywordToken {
			continue
		}
		word = strings.ToLower(word)
		for i, kw := range k.lowered {
			if kw != "" && strings.Contains(word, kw) {
				return vision.Finding{
					Message:  "FOUND: " + k.keywords[i],
					Severity: vision.Info,
					Color:    vision.ColorGreen,
				}, true
			}
		}
	}
	return vision.Finding{}, false
}

// ContextGated evaluates bad keywords only once a context keyword proves what is on screen.
type ContextGated struct {
	name    string
	context []string
	bad     []string
	region  vision.Rect
}

// NewContextGated creates the detector. region is attached to blocking findings.
func NewContextGated(name string, context, bad []string, region vision.Rect) *ContextGated {
	return &ContextGated{name: name, context: context, bad: bad, region: region}
}

func (g *ContextGated) Name() string { return g.name }

// Evaluate returns nothing without context, a blocking danger for a bad keyword,
// and an informational safe finding otherwise.
func (g *ContextGated) Evaluate(in Input) (vision.Finding, bool) {
	if _, ok := in.ContainsAny(g.context); !ok {
		return vision.Finding{}, false
	}
	if mod, ok := in.ContainsAny(g.bad); ok {
		return vision.Finding{
			Message:  "UNSAFE MAP: " + strings.ToUpper(mod),
			Severity: vision.Danger,
			Color:    vision.ColorRed,
			Blocking: true,
			Region:   g.region,
		}, true
	}
	return vision.Finding{Message: "MAP SAFE", Severity: vision.Info, Color: vision.ColorGreen}, true
}

// Tiered highlights rewards bucketed into numeric tiers, lowest tier first.
type Tiered struct {
	tiers     []int
	rewards   map[int][]string
	threshold int
	bad       []string
}

// NewTiered creates the detector. Only tiers at or below threshold are reported.
func NewTiered(rewards map[int][]string, threshold int, bad []string) *Tiered {
	t := &Tiered{rewards: rewards, threshold: threshold, bad: bad}
	for tier := range rewards {
		t.tiers = append(t.tiers, tier)
	}
	sort.Ints(t.tiers)
	return t
}

func (t *Tiered) Name() string { return "tiered_reward" }

// Evaluate surfaces bad outcomes before any tier.
func (t *Tiered) Evaluate(in Input) (vision.Finding, bool) {
	if mod, ok := in.ContainsAny(t.bad); ok {
		return vision.Finding{
			Message:  "DANGER: " + strings.ToUpper(mod),
			Severity: vision.Danger,
			Color:    vision.ColorRed,
		}, true
	}

	for _, tier := range t.tiers {
		if tier > t.threshold {
			break
		}
		if reward, ok := in.ContainsAny(t.rewards[tier]); ok {
			return vision.Finding{
				Message:  fmt.Sprintf("ALTAR T%d: %s", tier, reward),
				Severity: vision.Info,
				Color:    vision.ColorGreen,
			}, true
		}
	}
	return vision.Finding{}, false
}

// Immunity warns about immunities and bad mods once a domain keyword is present.
type Immunity struct {
	domain string
	immune []string
	bad    []string
}

func NewImmunity(domain string, immune, bad []string) *Immunity {
	return &Immunity{domain: domain, immune: immune, bad: bad}
}

func (m *Immunity) Name() string { return "immunity" }

// Evaluate checks "immune to X" phrases first, then bad mods.
func (m *Immunity) Evaluate(in Input) (vision.Finding, bool) {
	if !in.Contains(m.domain) {
		return vision.Finding{}, false
	}
	for _, dtype := range m.immune {
		if in.Contains("immune to " + dtype) {
			return vision.Finding{
				Message:  "IMMUNE TO " + strings.ToUpper(dtype),
				Severity: vision.Danger,
				Color:    vision.ColorRed,
			}, true
		}
	}
	if mod, ok := in.ContainsAny(m.bad); ok {
		return vision.Finding{
			Message:  "EXPEDITION DANGER: " + strings.ToUpper(mod),
			Severity: vision.Danger,
			Color:    vision.ColorRed,
		}, true
	}
	return vision.Finding{}, false
}
