package syndicate

import (
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/detect"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

var t0 = time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)

func newResolver(goals ...config.Goal) *Resolver {
	cfg := config.DefaultVision().Syndicate
	cfg.Goals = goals
	return New(cfg, nil)
}

func input(text string, at time.Time) detect.Input {
	words := strings.Fields(text)
	toks := make([]vision.Token, len(words))
	for i, w := range words {
		toks[i] = vision.Token{Text: w, X: i * 50, Width: 45, Height: 14}
	}
	return detect.NewInput(toks, text, at)
}

func TestClassifyMessages(t *testing.T) {
	goals := []config.Goal{{Member: "Vorici", Goal: "research"}}

	tests := []struct {
		name  string
		text  string
		want  string
		color string
		tier  Tier
	}{
		{
			"default guidance",
			"Vorici Execute Interrogate",
			"Vorici -> RESEARCH | EXECUTE, INTERROGATE", vision.ColorCyan, TierDefault,
		},
		{
			"rank up in goal house",
			"Vorici Sergeant Research Execute",
			"Vorici -> RESEARCH | EXECUTE (Rank Up in Research)", vision.ColorGreen, TierState,
		},
		{
			"stay in goal house",
			"Vorici Research Captain Bargain",
			"Vorici -> RESEARCH | STAY IN RESEARCH", vision.ColorGreen, TierState,
		},
		{
			"interrogate out of wrong house",
			"Vorici +2 Fortification Intelligence Interrogate",
			"Vorici -> RESEARCH | INTERROGATE (Remove from Fortification)", vision.ColorGreen, TierState,
		},
		{
			"wrong house without interrogate",
			"Vorici Lieutenant Transportation Bargain",
			"Vorici -> RESEARCH | REMOVE FROM TRANSPORTATION", vision.ColorOrange, TierState,
		},
		{
			"moves to goal house",
			"Vorici moves to Research Execute",
			"Vorici -> RESEARCH | EXECUTE (Join research)", vision.ColorGreen, TierState,
		},
		{
			"moves elsewhere with release",
			"Vorici moves to Intervention Release",
			"Vorici -> RESEARCH | RELEASE (Keep Free)", vision.ColorGreen, TierState,
		},
		{
			"moves elsewhere",
			"Vorici moves to Intervention Execute",
			"Vorici -> RESEARCH | AVOID INTERVENTION", vision.ColorOrange, TierState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(goals...)
			cands := r.Candidates(input(tt.text, t0))
			if len(cands) != 1 {
				t.Fatalf("candidates = %d, want 1", len(cands))
			}
			c := cands[0]
			if c.Finding.Message != tt.want || c.Finding.Color != tt.color || c.Tier != tt.tier {
				t.Errorf("got %q/%s/T%d, want %q/%s/T%d",
					c.Finding.Message, c.Finding.Color, c.Tier, tt.want, tt.color, tt.tier)
			}
		})
	}
}

func TestMovePhraseTakesPrecedence(t *testing.T) {
	r := newResolver(config.Goal{Member: "Haku", Goal: "fortification"})
	c := r.Candidates(input("Haku Sergeant Research moves to Fortification", t0))[0]
	if c.Target != "Fortification" || !strings.Contains(c.Finding.Message, "EXECUTE (Join fortification)") {
		t.Errorf("candidate = %+v", c)
	}
}

func TestRemoveGoalTier(t *testing.T) {
	r := newResolver(
		config.Goal{Member: "Vorici", Goal: "research"},
		config.Goal{Member: "Aisling", Goal: "remove"},
	)

	f, ok := r.Evaluate(input("Vorici Aisling Execute", t0))
	if !ok || f.Message != "Aisling: REMOVE (Do not Rank Up)" || f.Severity != vision.Warn {
		t.Errorf("Evaluate() = %+v, %v", f, ok)
	}
}

func TestBestTieKeepsFirst(t *testing.T) {
	cands := []Candidate{
		{Subject: "a", Tier: TierDefault},
		{Subject: "b", Tier: TierState},
		{Subject: "c", Tier: TierState},
	}
	best, ok := Best(cands)
	if !ok || best.Subject != "b" {
		t.Errorf("Best() = %q, want b", best.Subject)
	}
	if _, ok := Best(nil); ok {
		t.Error("Best(nil) should report nothing")
	}
}

func TestMemorySubstitution(t *testing.T) {
	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})

	good, ok := r.Evaluate(input("Vorici Sergeant Research Execute", t0))
	if !ok || !strings.Contains(good.Message, "Rank Up in Research") {
		t.Fatalf("tier-3 evaluate = %+v, %v", good, ok)
	}

	weak := "Vorici Execute Interrogate"

	got, ok := r.Evaluate(input(weak, t0.Add(2900*time.Millisecond)))
	if !ok || got != good {
		t.Errorf("at T+2.9s got %q, want cached %q", got.Message, good.Message)
	}

	got, ok = r.Evaluate(input(weak, t0.Add(3100*time.Millisecond)))
	if !ok || got == good {
		t.Errorf("at T+3.1s got %q, memory should have expired", got.Message)
	}
	if got.Message != "Vorici -> RESEARCH | EXECUTE, INTERROGATE" {
		t.Errorf("at T+3.1s got %q, want the lower-tier guidance", got.Message)
	}
}

func TestMemoryIsPerSubject(t *testing.T) {
	r := newResolver(
		config.Goal{Member: "Vorici", Goal: "research"},
		config.Goal{Member: "Haku", Goal: "research"},
	)

	if _, ok := r.Evaluate(input("Vorici Sergeant Research Execute", t0)); !ok {
		t.Fatal("expected tier-3 result")
	}

	got, _ := r.Evaluate(input("Haku Execute", t0.Add(time.Second)))
	if !strings.HasPrefix(got.Message, "Haku") {
		t.Errorf("other subject must not reuse Vorici memory, got %q", got.Message)
	}
}

func TestMemoryOutranksOtherSubjectRemove(t *testing.T) {
	r := newResolver(
		config.Goal{Member: "Vorici", Goal: "research"},
		config.Goal{Member: "Haku", Goal: "remove"},
	)

	good, ok := r.Evaluate(input("Vorici Sergeant Research Execute", t0))
	if !ok || good.Message != "Vorici -> RESEARCH | EXECUTE (Rank Up in Research)" {
		t.Fatalf("tier-3 evaluate = %q, %v", good.Message, ok)
	}

	got, ok := r.Evaluate(input("Vorici Haku Execute", t0.Add(time.Second)))
	if !ok || got != good {
		t.Errorf("got %q, want remembered %q", got.Message, good.Message)
	}

	got, _ = r.Evaluate(input("Vorici Haku Execute", t0.Add(3100*time.Millisecond)))
	if got.Message != "Haku: REMOVE (Do not Rank Up)" {
		t.Errorf("after expiry got %q, want the remove guidance", got.Message)
	}
}

func TestBestPrefersLiveOverCached(t *testing.T) {
	cands := []Candidate{
		{Subject: "a", Tier: TierState, Cached: true},
		{Subject: "b", Tier: TierRemove},
		{Subject: "c", Tier: TierState},
		{Subject: "d", Tier: TierState},
	}
	if best, _ := Best(cands); best.Subject != "c" {
		t.Errorf("Best() = %q, want live c", best.Subject)
	}
}

func TestSetTTL(t *testing.T) {
	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})
	good, _ := r.Evaluate(input("Vorici Sergeant Research Execute", t0))

	r.SetTTL(time.Second, time.Second)

	got, _ := r.Evaluate(input("Vorici Execute", t0.Add(1500*time.Millisecond)))
	if got == good {
		t.Error("shortened TTL should have expired the entry")
	}
}

func TestLastGoodFallback(t *testing.T) {
	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})
	good, _ := r.Evaluate(input("Vorici Sergeant Research Execute", t0))

	board := "Imprisoned +1 Intelligence"

	got, ok := r.Evaluate(input(board, t0.Add(1900*time.Millisecond)))
	if !ok || got != good {
		t.Errorf("at T+1.9s got %+v, %v; want fallback", got, ok)
	}

	if _, ok := r.Evaluate(input(board, t0.Add(2100*time.Millisecond))); ok {
		t.Error("fallback should expire after 2s")
	}
}

func TestFallbackNeedsContext(t *testing.T) {
	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})
	r.Evaluate(input("Vorici Sergeant Research Execute", t0))

	// Buttons alone do not justify the fallback.
	if _, ok := r.Evaluate(input("Execute", t0.Add(500*time.Millisecond))); ok {
		t.Error("fallback requires board context words")
	}
}

func TestNoGoalsOrNoContext(t *testing.T) {
	if _, ok := newResolver().Evaluate(input("Vorici Research Sergeant", t0)); ok {
		t.Error("resolver without goals yields nothing")
	}

	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})
	if _, ok := r.Evaluate(input("Vorici says hello", t0)); ok {
		t.Error("member name outside the board yields nothing")
	}
}

func TestTokenPunctuationIgnored(t *testing.T) {
	r := newResolver(config.Goal{Member: "Vorici", Goal: "research"})
	cands := r.Candidates(input("Vorici, Execute", t0))
	if len(cands) != 1 {
		t.Errorf("candidates = %d, want 1", len(cands))
	}
}

func TestMemoryPrunesOnRead(t *testing.T) {
	m := NewMemory(3*time.Second, 2*time.Second)
	m.Remember("Vorici", vision.Finding{Message: "x"}, t0)

	if _, ok := m.Recall("Vorici", t0.Add(3*time.Second)); ok {
		t.Error("entry at exactly the TTL is expired")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, expired entry should be dropped on read", m.Len())
	}

	m.Remember("Vorici", vision.Finding{Message: "y"}, t0)
	m.Remember("Vorici", vision.Finding{Message: "z"}, t0.Add(time.Second))
	if f, _ := m.Recall("Vorici", t0.Add(2*time.Second)); f.Message != "z" {
		t.Errorf("Recall() = %q, entries are overwritten per subject", f.Message)
	}
	if _, subject, ok := m.LastGood(t0.Add(2 * time.Second)); !ok || subject != "Vorici" {
		t.Errorf("LastGood() = %q, %v", subject, ok)
	}
}
