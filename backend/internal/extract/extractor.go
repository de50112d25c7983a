package extract

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"graphmind/backend/internal/cache"
	"graphmind/backend/internal/graph"
	"graphmind/backend/pkg/logger"
	"graphmind/backend/pkg/metrics"
)

// Extractor turns raw chat text into candidate entities and
// relationships. The pattern strategy always runs; the prose and LLM
// strategies are optional passes layered in front of it, all sharing
// one (lowercased name, type) dedup key where the first match wins.
type Extractor struct {
	cache  *cache.Service
	llm    *LLMRecognizer
	prose  bool
	logger *zap.Logger
}

// extractionResult is the memoized output of one recognizer call.
type extractionResult struct {
	Entities      []graph.Entity
	Relationships []graph.Relationship
}

// NewExtractor creates an extractor. llm may be nil to disable the
// LLM strategy; enableProse toggles the prose NER pass.
func NewExtractor(cacheService *cache.Service, llm *LLMRecognizer, enableProse bool) *Extractor {
	return &Extractor{
		cache:  cacheService,
		llm:    llm,
		prose:  enableProse,
		logger: logger.Named("extract"),
	}
}

// ExtractEntities extracts entities from text. Results are memoized
// per (text, session, message, enabled strategies).
func (e *Extractor) ExtractEntities(ctx context.Context, text, sessionID, messageID string) []graph.Entity {
	key := e.cacheKey("entities", text, sessionID, messageID)
	if cached, ok := e.cache.Get(key); ok {
		if result, ok := cached.(extractionResult); ok {
			return validateEntities(result.Entities)
		}
	}

	timer := prometheus.NewTimer(metrics.ExtractionDuration.WithLabelValues("entities"))
	defer timer.ObserveDuration()

	seen := mapset.NewSet[string]()
	var entities []graph.Entity

	add := func(ent graph.Entity) bool {
		k := dedupKey(ent.Name, ent.Type)
		if !seen.Add(k) {
			return false
		}
		entities = append(entities, ent)
		metrics.EntitiesExtracted.WithLabelValues(string(ent.Type)).Inc()
		return true
	}

	// LLM strategy runs first so its richer names claim the dedup keys.
	if e.llm != nil {
		llmEntities, _ := e.llm.Extract(ctx, text, sessionID, messageID)
		for _, ent := range llmEntities {
			add(ent)
		}
	}

	if e.prose {
		for _, ent := range proseEntities(text, sessionID, messageID) {
			add(ent)
		}
	}

	for _, family := range entityPatternFamilies {
		for _, pattern := range family.Patterns {
			for _, match := range pattern.FindAllStringIndex(text, -1) {
				name := strings.TrimSpace(text[match[0]:match[1]])
				if name == "" {
					continue
				}
				add(graph.Entity{
					ID:   uuid.New().String(),
					Name: name,
					Type: family.Type,
					Properties: map[string]interface{}{
						"original_text": name,
						"position":      []int{match[0], match[1]},
						"context":       contextWindow(text, match[0], match[1]),
					},
					Confidence:  0.8,
					SourceText:  text,
					ExtractedAt: time.Now().UTC(),
					SessionID:   sessionID,
					MessageID:   messageID,
				})
			}
		}
	}

	entities = append(entities, e.conceptPass(text, sessionID, messageID, seen)...)

	e.logger.Debug("entities extracted",
		zap.Int("count", len(entities)),
		zap.String("session_id", sessionID),
	)

	e.cache.Set(key, extractionResult{Entities: entities}, 0)
	return entities
}

// conceptPass picks up remaining capitalized phrases as low-confidence
// concepts, skipping anything a more specific family would claim.
func (e *Extractor) conceptPass(text, sessionID, messageID string, seen mapset.Set[string]) []graph.Entity {
	var entities []graph.Entity

	for _, match := range conceptPattern.FindAllStringIndex(text, -1) {
		name := strings.TrimSpace(text[match[0]:match[1]])
		if len(name) < 3 {
			continue
		}
		key := dedupKey(name, graph.EntityConcept)
		if seen.Contains(key) {
			continue
		}
		if matchesSpecificFamily(name) {
			continue
		}
		seen.Add(key)
		entities = append(entities, graph.Entity{
			ID:   uuid.New().String(),
			Name: name,
			Type: graph.EntityConcept,
			Properties: map[string]interface{}{
				"original_text": name,
				"position":      []int{match[0], match[1]},
			},
			Confidence:  0.6,
			SourceText:  text,
			ExtractedAt: time.Now().UTC(),
			SessionID:   sessionID,
			MessageID:   messageID,
		})
		metrics.EntitiesExtracted.WithLabelValues(string(graph.EntityConcept)).Inc()
	}

	return entities
}

// matchesSpecificFamily reports whether a candidate concept is claimed
// by one of the typed pattern families (anchored at the phrase start).
func matchesSpecificFamily(name string) bool {
	for _, family := range entityPatternFamilies {
		for _, pattern := range family.Patterns {
			if loc := pattern.FindStringIndex(name); loc != nil && loc[0] == 0 {
				return true
			}
		}
	}
	return false
}

// ExtractRelationships extracts relationships between the given
// entities from text. Relationships whose endpoints do not resolve to
// an extracted entity are dropped.
func (e *Extractor) ExtractRelationships(ctx context.Context, text string, entities []graph.Entity, sessionID, messageID string) []graph.Relationship {
	entityIDs := make([]string, 0, len(entities))
	for _, ent := range entities {
		entityIDs = append(entityIDs, ent.ID)
	}
	sort.Strings(entityIDs)

	key := e.cacheKey("rels", text, sessionID, messageID, entityIDs...)
	if cached, ok := e.cache.Get(key); ok {
		if result, ok := cached.(extractionResult); ok {
			return validateRelationships(result.Relationships)
		}
	}

	timer := prometheus.NewTimer(metrics.ExtractionDuration.WithLabelValues("relationships"))
	defer timer.ObserveDuration()

	var relationships []graph.Relationship

	if e.llm != nil {
		_, llmRels := e.llm.Extract(ctx, text, sessionID, messageID)
		relationships = append(relationships, llmRels...)
	}

	for _, group := range relationshipIndicators {
		for _, indicator := range group.Indicators {
			pattern, err := regexp.Compile(`(?i)(\b\w+(?:\s+\w+)*)\s+` + regexp.QuoteMeta(indicator) + `\s+(\b\w+(?:\s+\w+)*)`)
			if err != nil {
				continue
			}

			for _, match := range pattern.FindAllStringSubmatchIndex(text, -1) {
				sourceText := strings.TrimSpace(text[match[2]:match[3]])
				targetText := strings.TrimSpace(text[match[4]:match[5]])

				source := findMatchingEntity(sourceText, entities)
				target := findMatchingEntity(targetText, entities)
				if source == nil || target == nil {
					continue
				}

				relationships = append(relationships, graph.Relationship{
					ID:             uuid.New().String(),
					SourceEntityID: source.ID,
					TargetEntityID: target.ID,
					Type:           group.Type,
					Properties: map[string]interface{}{
						"indicator": indicator,
						"context":   text[match[0]:match[1]],
						"position":  []int{match[0], match[1]},
					},
					Confidence:  0.7,
					ExtractedAt: time.Now().UTC(),
					SessionID:   sessionID,
					MessageID:   messageID,
					IsActive:    true,
				})
				metrics.RelationshipsExtracted.WithLabelValues(string(group.Type)).Inc()
			}
		}
	}

	relationships = tagNegations(relationships)

	e.cache.Set(key, extractionResult{Relationships: relationships}, 0)
	return relationships
}

// findMatchingEntity resolves a text span to an extracted entity:
// exact case-insensitive match first, then substring containment in
// either direction, first hit wins.
func findMatchingEntity(text string, entities []graph.Entity) *graph.Entity {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}

	for i := range entities {
		if strings.ToLower(entities[i].Name) == needle {
			return &entities[i]
		}
	}
	for i := range entities {
		name := strings.ToLower(entities[i].Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return &entities[i]
		}
	}
	return nil
}

// tagNegations scans each relationship's context for a negation cue.
// A hit flags the relationship and halves its confidence; the
// relationship stays a candidate, downstream resolution decides.
func tagNegations(relationships []graph.Relationship) []graph.Relationship {
	for i := range relationships {
		rel := &relationships[i]
		contextText, _ := rel.Properties["context"].(string)
		if contextText == "" {
			continue
		}
		lower := strings.ToLower(contextText)
		for _, cue := range negationIndicators {
			if strings.Contains(lower, cue) {
				rel.Properties["negation_detected"] = true
				rel.Properties["negation_indicator"] = cue
				rel.Confidence = graph.ClampConfidence(rel.Confidence * 0.5)
				break
			}
		}
	}
	return relationships
}

func contextWindow(text string, start, end int) string {
	lo := start - 50
	if lo < 0 {
		lo = 0
	}
	hi := end + 50
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func dedupKey(name string, t graph.EntityType) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + string(t)
}

func (e *Extractor) cacheKey(kind, text, sessionID, messageID string, extra ...string) string {
	h := fnv.New64a()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(messageID))
	for _, s := range extra {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	// strategy discriminators: the same text extracts differently when
	// the optional passes are toggled
	fmt.Fprintf(h, "|prose=%t|llm=%t", e.prose, e.llm != nil)
	if e.llm != nil {
		fmt.Fprintf(h, "|model=%s", e.llm.Model())
	}
	return fmt.Sprintf("%s:%x", kind, h.Sum64())
}

func validateEntities(entities []graph.Entity) []graph.Entity {
	out := make([]graph.Entity, 0, len(entities))
	for _, ent := range entities {
		if ent.Name == "" || ent.ID == "" {
			continue
		}
		ent.Confidence = graph.ClampConfidence(ent.Confidence)
		out = append(out, ent)
	}
	return out
}

func validateRelationships(relationships []graph.Relationship) []graph.Relationship {
	out := make([]graph.Relationship, 0, len(relationships))
	for _, rel := range relationships {
		if rel.ID == "" || rel.SourceEntityID == "" || rel.TargetEntityID == "" {
			continue
		}
		rel.Confidence = graph.ClampConfidence(rel.Confidence)
		out = append(out, rel)
	}
	return out
}
