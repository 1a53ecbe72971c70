// Package repair implements the error and recovery subsystem of the scope
// engine: similarity-based repair of misspelt slot and layer names, best-
// effort rebuild of corrupted equipment snapshots, and the mapping from
// internal error codes to fixed user-facing messages.
//
// Recovery is narrow and deterministic, and it never throws: at worst an
// error comes back unhandled with a generic message and the resolution yields
// an empty set. A missing clothing item must never crash the action system.
package repair

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// DefaultSimilarityThreshold is the minimum Jaro-Winkler score for a
	// name suggestion to be accepted. A heuristic, not a correctness
	// guarantee — keep it configurable so it can be tuned without touching
	// resolver logic.
	DefaultSimilarityThreshold = 0.75

	// maxEditDistance accepts very close misspellings outright, regardless
	// of their Jaro-Winkler score.
	maxEditDistance = 1
)

// Matcher ranks candidate names for an unrecognised input by string
// similarity. Read-only after construction; safe for concurrent use.
type Matcher struct {
	threshold float64
}

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithSimilarityThreshold sets the minimum Jaro-Winkler score required for a
// suggestion. Default: [DefaultSimilarityThreshold].
func WithSimilarityThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// NewMatcher returns a [Matcher] configured with the supplied options.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{threshold: DefaultSimilarityThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Suggest returns the candidate most similar to name. A candidate is accepted
// when it is within Levenshtein distance 1 of the input, or when its
// Jaro-Winkler score meets the threshold; among acceptable candidates the
// highest-scoring one wins. ok=false means no candidate came close enough —
// the caller drops the offending entry and continues.
func (m *Matcher) Suggest(name string, candidates []string) (best string, score float64, ok bool) {
	input := strings.ToLower(strings.TrimSpace(name))
	if input == "" {
		return "", 0, false
	}

	for _, cand := range candidates {
		jw := matchr.JaroWinkler(input, strings.ToLower(cand), false)
		accepted := jw >= m.threshold ||
			matchr.Levenshtein(input, strings.ToLower(cand)) <= maxEditDistance
		if accepted && (!ok || jw > score) {
			best, score, ok = cand, jw, true
		}
	}
	return best, score, ok
}
