package extract

import (
	"regexp"

	"graphmind/backend/internal/graph"
)

// patternFamily is one ordered group of matchers producing a single
// entity type. Families run in order; the first type to claim a span
// wins the (lowercased text, type) dedup key.
type patternFamily struct {
	Type     graph.EntityType
	Patterns []*regexp.Regexp
}

var entityPatternFamilies = []patternFamily{
	{
		Type: graph.EntityPerson,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
			regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.? [A-Z][a-z]+\b`),
		},
	},
	{
		Type: graph.EntityOrganization,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b[A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)* (?:Inc|Corp|LLC|Ltd|Company|Organization|Institute|University)\b`),
			regexp.MustCompile(`\b(?:Google|Microsoft|Apple|Amazon|Facebook|OpenAI|Anthropic)\b`),
		},
	},
	{
		Type: graph.EntityLocation,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)* (?:City|Country|State|Province|Street|Avenue|Road)\b`),
			regexp.MustCompile(`\b(?:New York|London|Paris|Tokyo|Beijing|San Francisco|Los Angeles)\b`),
		},
	},
	{
		Type: graph.EntityDate,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
			regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},? \d{4}\b`),
			regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday|last week|next month)\b`),
		},
	},
	{
		Type: graph.EntityQuantity,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:dollars|euros|pounds|yen|USD|EUR|GBP)\b`),
			regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kg|g|mg|lb|oz|km|m|cm|mm|miles|feet|inches)\b`),
			regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
		},
	},
}

// capitalized phrase fallback for the concept pass
var conceptPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// relationshipIndicators maps each relation type to the lexical
// phrases that signal it in text.
var relationshipIndicators = []struct {
	Type       graph.RelationType
	Indicators []string
}{
	{graph.RelationIsA, []string{"is a", "is an", "are", "was a", "were"}},
	{graph.RelationHas, []string{"has", "have", "had", "contains", "includes"}},
	{graph.RelationBelongsTo, []string{"belongs to", "owned by", "part of", "member of"}},
	{graph.RelationLocatedIn, []string{"located in", "in", "at", "near", "from"}},
	{graph.RelationWorksFor, []string{"works for", "employed by", "works at", "job at"}},
	{graph.RelationKnows, []string{"knows", "met", "friends with", "colleague of"}},
	{graph.RelationCreatedBy, []string{"created by", "made by", "built by", "designed by"}},
	{graph.RelationCauses, []string{"causes", "leads to", "results in", "triggers"}},
	{graph.RelationPrevents, []string{"prevents", "stops", "blocks", "inhibits"}},
}

// negationIndicators is the cue vocabulary scanned against a
// relationship's textual context at extraction time.
var negationIndicators = []string{
	"not", "no", "never", "neither", "nor", "nothing", "nobody",
	"isn't", "aren't", "wasn't", "weren't", "won't", "wouldn't",
	"can't", "couldn't", "shouldn't", "mustn't", "needn't",
	"doesn't", "didn't", "don't", "hasn't", "haven't", "hadn't",
	"incorrect", "false", "wrong", "actually", "correction",
	"update", "revised", "changed", "no longer", "not anymore",
}

// negationCuePatterns are the correction phrasings that qualify a new
// statement as negating an earlier one for the same entity pair.
var negationCuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:actually|correction|update).*?not`),
	regexp.MustCompile(`no longer`),
	regexp.MustCompile(`not anymore`),
	regexp.MustCompile(`changed from .* to`),
	regexp.MustCompile(`used to .* but now`),
	regexp.MustCompile(`previously .* now`),
}
