// Package recognition turns captured pixels into recognized tokens.
//
// A Pipeline runs a set of preprocessing strategies through one Engine and keeps
// the richest result. Engine failures never escape: they are logged once per
// failure streak and the cycle continues with an empty result.
package recognition

import (
	"context"
	"image"
	"strings"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// minScoredLen is the shortest token counted when ranking strategies.
const minScoredLen = 3

// LayoutHint tells the engine how text is laid out on the page.
type LayoutHint int

const (
	LayoutAuto   LayoutHint = iota // fully automatic segmentation
	LayoutBlock                    // single uniform block
	LayoutLine                     // single line
	LayoutSparse                   // sparse text, any order
)

func (h LayoutHint) String() string {
	switch h {
	case LayoutBlock:
		return "block"
	case LayoutLine:
		return "line"
	case LayoutSparse:
		return "sparse"
	default:
		return "auto"
	}
}

// ParseLayoutHint maps a config name to a hint, defaulting to LayoutAuto.
func ParseLayoutHint(s string) LayoutHint {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return LayoutBlock
	case "line":
		return LayoutLine
	case "sparse":
		return LayoutSparse
	default:
		return LayoutAuto
	}
}

// Strategy preprocesses a frame before recognition.
type Strategy interface {
	Name() string
	Apply(img image.Image) (image.Image, error)
}

// Engine recognizes words with bounding boxes.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, hint LayoutHint) ([]vision.Token, error)
}

// StrategySet is a named, ordered list of strategies. Order breaks ties.
type StrategySet struct {
	Name       string
	Strategies []Strategy
}

// Result is the output of one recognition pass.
type Result struct {
	Tokens   []vision.Token
	Text     string
	Strategy string
}

// NewResult joins tokens into the full text.
func NewResult(strategy string, tokens []vision.Token) Result {
	return Result{Tokens: tokens, Text: vision.JoinTokens(tokens), Strategy: strategy}
}

// Empty reports whether nothing was recognized.
func (r Result) Empty() bool { return len(r.Tokens) == 0 }

// Lower returns the lowercased full text.
func (r Result) Lower() string { return strings.ToLower(r.Text) }

// Score counts tokens long enough to carry meaning.
func (r Result) Score() int {
	n := 0
	for _, t := range r.Tokens {
		if len(strings.TrimSpace(t.Text)) >= minScoredLen {
			n++
		}
	}
	return n
}

// Best returns the index of the highest-scoring result; the earliest wins ties.
// It returns -1 for an empty slice.
func Best(results []Result) int {
	best, bestScore := -1, -1
	for i, r := range results {
		if s := r.Score(); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
