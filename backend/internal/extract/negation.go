package extract

import (
	"strings"

	"graphmind/backend/internal/graph"
)

// NegationPair reports one new relationship negating an earlier one.
type NegationPair struct {
	Original graph.Relationship
	Negating graph.Relationship
}

// DetectNegations compares new relationships against a session's
// existing ones. A pair qualifies when both relationships share the
// same (source, target) entity pair, the combined text matches a
// negation cue, and either the relation type changed or the new
// relationship was already flagged at extraction time. One new
// relationship may negate several earlier ones; each pair is an
// independent event.
func DetectNegations(text string, existing, incoming []graph.Relationship) []NegationPair {
	lower := strings.ToLower(text)

	cueMatched := false
	for _, pattern := range negationCuePatterns {
		if pattern.MatchString(lower) {
			cueMatched = true
			break
		}
	}
	if !cueMatched {
		return nil
	}

	var pairs []NegationPair
	for _, curr := range incoming {
		for _, prev := range existing {
			if curr.SourceEntityID != prev.SourceEntityID || curr.TargetEntityID != prev.TargetEntityID {
				continue
			}
			if curr.Type != prev.Type || curr.NegationDetected() {
				pairs = append(pairs, NegationPair{Original: prev, Negating: curr})
			}
		}
	}
	return pairs
}
