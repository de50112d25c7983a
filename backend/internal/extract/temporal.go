package extract

import (
	"regexp"
	"strings"
)

// TimeReference is one concrete time expression found in text.
type TimeReference struct {
	Text     string `json:"text"`
	Position []int  `json:"position"`
}

// TemporalContext is the tense and time expressions of a text span,
// carried along with interaction summaries.
type TemporalContext struct {
	Tense          string          `json:"tense"`
	TimeReferences []TimeReference `json:"time_references"`
}

var (
	pastIndicators    = []string{"was", "were", "had", "did", "used to", "previously", "before", "ago"}
	futureIndicators  = []string{"will", "going to", "shall", "next", "tomorrow", "soon", "later"}
	presentIndicators = []string{"is", "are", "am", "now", "currently", "today", "at present"}

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}\b`),
		regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\b`),
		regexp.MustCompile(`\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s*[AP]M)?\b`),
	}
)

// ExtractTemporalContext classifies the dominant tense of a text span
// and collects its explicit time references.
func ExtractTemporalContext(text string) TemporalContext {
	lower := strings.ToLower(text)

	count := func(indicators []string) int {
		n := 0
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				n++
			}
		}
		return n
	}

	past := count(pastIndicators)
	future := count(futureIndicators)
	present := count(presentIndicators)

	tense := "present"
	if past > future && past > present {
		tense = "past"
	} else if future > past && future > present {
		tense = "future"
	}

	tc := TemporalContext{Tense: tense, TimeReferences: []TimeReference{}}
	for _, pattern := range timePatterns {
		for _, match := range pattern.FindAllStringIndex(text, -1) {
			tc.TimeReferences = append(tc.TimeReferences, TimeReference{
				Text:     text[match[0]:match[1]],
				Position: []int{match[0], match[1]},
			})
		}
	}
	return tc
}
