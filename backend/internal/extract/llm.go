package extract

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"graphmind/backend/internal/adapter"
	"graphmind/backend/internal/cache"
	"graphmind/backend/internal/graph"
	"graphmind/backend/pkg/logger"
	"graphmind/backend/pkg/metrics"
)

const extractionSystemPrompt = "You are an information extraction system. Extract entities and relations as strict JSON. " +
	"Use the schema: {entities:[{id,name,type,confidence}], relationships:[{id,source_name,target_name,type,confidence}]}. " +
	"Entity types: PERSON, ORGANIZATION, LOCATION, DATE, QUANTITY, EVENT, OBJECT, CONCEPT. " +
	"Relationship types: IS_A, HAS, BELONGS_TO, LOCATED_IN, WORKS_FOR, KNOWS, CREATED_BY, PART_OF, RELATED_TO, CAUSES, PREVENTS. " +
	"Only return JSON, no commentary."

// LLMRecognizer extracts entities and relationships through a
// text-completion provider, with iterative self-critique passes.
// Any provider failure, timeout, or unparseable output yields empty
// results, never an error.
type LLMRecognizer struct {
	client        *adapter.CompletionClient
	cache         *cache.Service
	temperature   float64
	maxTokens     int
	maxReflection int
	logger        *zap.Logger
}

// NewLLMRecognizer creates the LLM strategy around a completion client.
func NewLLMRecognizer(client *adapter.CompletionClient, cacheService *cache.Service, temperature float64, maxTokens, maxReflection int) *LLMRecognizer {
	if maxReflection < 0 {
		maxReflection = 0
	}
	return &LLMRecognizer{
		client:        client,
		cache:         cacheService,
		temperature:   temperature,
		maxTokens:     maxTokens,
		maxReflection: maxReflection,
		logger:        logger.Named("llmner"),
	}
}

// Model returns the underlying model id, used as a cache discriminator.
func (r *LLMRecognizer) Model() string {
	return r.client.Model()
}

// Extract runs the extraction prompt with up to maxReflection critique
// re-prompts, stopping early once a pass draws no critique.
func (r *LLMRecognizer) Extract(ctx context.Context, text, sessionID, messageID string) ([]graph.Entity, []graph.Relationship) {
	key := r.cacheKey(text, sessionID, messageID)
	if cached, ok := r.cache.Get(key); ok {
		if result, ok := cached.(extractionResult); ok {
			return validateEntities(result.Entities), validateRelationships(result.Relationships)
		}
	}

	timer := prometheus.NewTimer(metrics.ExtractionDuration.WithLabelValues("llm"))
	defer timer.ObserveDuration()

	entities, relationships := r.runOnce(ctx, text, sessionID, messageID)

	for pass := 0; pass < r.maxReflection; pass++ {
		critique := critique(entities, relationships)
		if critique == "" {
			break
		}
		r.logger.Debug("reflection pass",
			zap.Int("pass", pass+1),
			zap.String("critique", critique),
		)
		entities, relationships = r.runOnce(ctx, text+"\nCritique:"+critique, sessionID, messageID)
	}

	r.cache.Set(key, extractionResult{Entities: entities, Relationships: relationships}, 0)
	return entities, relationships
}

func (r *LLMRecognizer) runOnce(ctx context.Context, text, sessionID, messageID string) ([]graph.Entity, []graph.Relationship) {
	completion, err := r.client.Complete(ctx, []adapter.Message{
		{Role: "user", Content: text},
	}, r.temperature, r.maxTokens, extractionSystemPrompt)
	if err != nil {
		// Timeouts and provider failures degrade to an empty extraction
		return nil, nil
	}

	raw := trimToJSON(completion.Content)
	if !gjson.Valid(raw) {
		r.logger.Debug("unparseable extraction output", zap.Int("length", len(completion.Content)))
		return nil, nil
	}

	entities := r.mapEntities(gjson.Get(raw, "entities"), text, sessionID, messageID)
	relationships := r.mapRelationships(gjson.Get(raw, "relationships"), entities, sessionID, messageID)
	return entities, relationships
}

// trimToJSON extracts the outermost {...} substring, tolerating
// commentary the model wrapped around its JSON.
func trimToJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "{}"
	}
	return s[start : end+1]
}

// critique inspects a pass's output and produces the re-prompt text,
// or empty when the output is acceptable.
func critique(entities []graph.Entity, relationships []graph.Relationship) string {
	if len(entities) == 0 && len(relationships) == 0 {
		return "No entities or relationships were extracted. Ensure JSON with fields entities and relationships."
	}
	for _, ent := range entities {
		if len(strings.Fields(ent.Name)) == 1 && (ent.Type == graph.EntityPerson || ent.Type == graph.EntityOrganization) {
			return "Resolve single-word entity names by adding more context when possible."
		}
	}
	return ""
}

func (r *LLMRecognizer) mapEntities(items gjson.Result, sourceText, sessionID, messageID string) []graph.Entity {
	var entities []graph.Entity
	items.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get("name").String())
		if name == "" {
			return true
		}
		confidence := item.Get("confidence").Float()
		if confidence == 0 {
			confidence = 0.8
		}
		entities = append(entities, graph.Entity{
			ID:          uuid.New().String(),
			Name:        name,
			Type:        graph.ParseEntityType(strings.ToLower(item.Get("type").String())),
			Properties:  map[string]interface{}{"source": "llm"},
			Confidence:  graph.ClampConfidence(confidence),
			SourceText:  sourceText,
			ExtractedAt: time.Now().UTC(),
			SessionID:   sessionID,
			MessageID:   messageID,
		})
		return true
	})
	return entities
}

func (r *LLMRecognizer) mapRelationships(items gjson.Result, entities []graph.Entity, sessionID, messageID string) []graph.Relationship {
	nameIDs := make(map[string]string, len(entities))
	for _, ent := range entities {
		key := strings.ToLower(ent.Name)
		if _, ok := nameIDs[key]; !ok {
			nameIDs[key] = ent.ID
		}
	}

	var relationships []graph.Relationship
	items.ForEach(func(_, item gjson.Result) bool {
		sourceName := strings.ToLower(strings.TrimSpace(item.Get("source_name").String()))
		targetName := strings.ToLower(strings.TrimSpace(item.Get("target_name").String()))
		sourceID, sourceOK := nameIDs[sourceName]
		targetID, targetOK := nameIDs[targetName]
		if !sourceOK || !targetOK {
			// References to entities the model never declared are dropped
			return true
		}
		confidence := item.Get("confidence").Float()
		if confidence == 0 {
			confidence = 0.7
		}
		relationships = append(relationships, graph.Relationship{
			ID:             uuid.New().String(),
			SourceEntityID: sourceID,
			TargetEntityID: targetID,
			Type:           graph.ParseRelationType(strings.ToLower(item.Get("type").String())),
			Properties:     map[string]interface{}{"source": "llm"},
			Confidence:     graph.ClampConfidence(confidence),
			ExtractedAt:    time.Now().UTC(),
			SessionID:      sessionID,
			MessageID:      messageID,
			IsActive:       true,
		})
		return true
	})
	return relationships
}

func (r *LLMRecognizer) cacheKey(text, sessionID, messageID string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(messageID))
	h.Write([]byte{0})
	h.Write([]byte(r.client.Model()))
	return fmt.Sprintf("llmner:%x", h.Sum64())
}
