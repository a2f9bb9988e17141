// Package vocab matches noisy recognized text against known vocabularies.
package vocab

import "strings"

// Separators are characters OCR tends to produce around UI chrome.
const Separators = "|}{]"

// minSubstringLen is the shortest candidate accepted as a substring of an entry.
const minSubstringLen = 3

// minTokenLen is the shortest clean form accepted as a token-boundary match.
const minTokenLen = 2

// Candidates lowercases raw, splits it on Separators and drops blank pieces.
func Candidates(raw string) []string {
	parts := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return strings.ContainsRune(Separators, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanForm returns the lowercased text after the last '|', or the whole entry.
func CleanForm(entry string) string {
	lower := strings.ToLower(entry)
	if i := strings.LastIndexByte(lower, '|'); i >= 0 {
		return strings.TrimSpace(lower[i+1:])
	}
	return strings.TrimSpace(lower)
}

// Match returns the first vocabulary entry that any candidate of raw matches.
//
// Per candidate the rules are tried in order: exact clean form, exact full entry,
// candidate inside the entry, clean form on token boundaries inside the candidate.
// The substring rule only fires when the candidate occurs in exactly one entry, so
// a shared prefix such as "stash" never picks an arbitrary tab.
func Match(raw string, vocabulary []string) (string, bool) {
	candidates := Candidates(raw)
	if len(candidates) == 0 {
		return "", false
	}

	lowered := make([]string, len(vocabulary))
	for i, entry := range vocabulary {
		lowered[i] = strings.ToLower(strings.TrimSpace(entry))
	}

	for i, entry := range vocabulary {
		full := lowered[i]
		clean := CleanForm(entry)
		if clean == "" {
			continue
		}

		for _, c := range candidates {
			switch {
			case c == clean, c == full:
				return entry, true
			case len(c) >= minSubstringLen && strings.Contains(full, c) && occurrences(lowered, c) == 1:
				return entry, true
			case len(clean) >= minTokenLen && strings.Contains(" "+c+" ", " "+clean+" "):
				return entry, true
			}
		}
	}
	return "", false
}

func occurrences(entries []string, s string) int {
	n := 0
	for _, e := range entries {
		if strings.Contains(e, s) {
			n++
		}
	}
	return n
}

// Tracker follows which vocabulary entry is currently on screen.
// It is owned by a single goroutine.
type Tracker struct {
	vocabulary []string
	current    string
}

func NewTracker(vocabulary []string) *Tracker {
	return &Tracker{vocabulary: vocabulary}
}

// SetVocabulary swaps the vocabulary and keeps the current entry.
func (t *Tracker) SetVocabulary(vocabulary []string) {
	t.vocabulary = vocabulary
}

// Current returns the last matched entry.
func (t *Tracker) Current() string { return t.current }

// Observe matches text and reports the entry when it differs from the previous one.
// Text that matches nothing leaves the current entry unchanged.
func (t *Tracker) Observe(text string) (entry, previous string, changed bool) {
	if len(t.vocabulary) == 0 {
		return "", t.current, false
	}
	found, ok := Match(text, t.vocabulary)
	if !ok || found == t.current {
		return t.current, t.current, false
	}
	previous, t.current = t.current, found
	return found, previous, true
}
