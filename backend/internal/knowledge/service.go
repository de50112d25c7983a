package knowledge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"graphmind/backend/internal/extract"
	"graphmind/backend/internal/graph"
	apperrors "graphmind/backend/pkg/errors"
	"graphmind/backend/pkg/logger"
	"graphmind/backend/pkg/metrics"
)

// summarySampleCap bounds the entities/relationships echoed back in an
// interaction summary. A safety cap, not a correctness bound.
const summarySampleCap = 5

// Service orchestrates the extraction pipeline. It owns the session
// store, the community engine and the audit log; all three live for
// the process and are injected at construction.
type Service struct {
	extractor *extract.Extractor
	repo      *graph.Repository
	sessions  *SessionStore
	engine    *Engine
	audit     *AuditLog
	logger    *zap.Logger
}

func NewService(extractor *extract.Extractor, repo *graph.Repository, sessions *SessionStore, engine *Engine, audit *AuditLog) *Service {
	return &Service{
		extractor: extractor,
		repo:      repo,
		sessions:  sessions,
		engine:    engine,
		audit:     audit,
		logger:    logger.Named("knowledge"),
	}
}

// InteractionSummary is the result of processing one chat interaction.
type InteractionSummary struct {
	EntitiesExtracted      int                     `json:"entities_extracted"`
	RelationshipsExtracted int                     `json:"relationships_extracted"`
	NegationsDetected      int                     `json:"negations_detected"`
	EpisodicGraphID        string                  `json:"episodic_graph_id"`
	CommunityGraphUpdated  bool                    `json:"community_graph_updated"`
	TemporalContext        extract.TemporalContext `json:"temporal_context"`
	Entities               []graph.Entity          `json:"entities"`
	Relationships          []graph.Relationship    `json:"relationships"`
}

// ProcessInteraction runs the full pipeline for one user/assistant
// exchange. The only error it returns is validation of the session id;
// extraction and persistence failures degrade to smaller results.
func (s *Service) ProcessInteraction(ctx context.Context, userText, responseText, sessionID, messageID string) (*InteractionSummary, error) {
	if strings.TrimSpace(sessionID) == "" {
		metrics.InteractionsProcessed.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewValidationFailed("session_id", "must not be empty")
	}

	lock := s.sessions.SessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	episodic := s.sessions.GetOrCreate(sessionID)

	userEntities := s.extractor.ExtractEntities(ctx, userText, sessionID, messageID+"_user")
	responseEntities := s.extractor.ExtractEntities(ctx, responseText, sessionID, messageID+"_response")
	allEntities := extract.MergeEntities(append(userEntities, responseEntities...))

	userRels := s.extractor.ExtractRelationships(ctx, userText, allEntities, sessionID, messageID+"_user")
	responseRels := s.extractor.ExtractRelationships(ctx, responseText, allEntities, sessionID, messageID+"_response")
	allRels := append(userRels, responseRels...)

	negations := s.applyNegations(ctx, userText+" "+responseText, episodic.Relationships, allRels, sessionID, messageID)

	for _, ent := range allEntities {
		episodic.AddEntity(ent)
		s.repo.UpsertEntity(ctx, ent)
	}
	for _, rel := range allRels {
		episodic.AddRelationship(rel)
		s.repo.UpsertRelationship(ctx, rel)
	}
	episodic.AddMessageID(messageID)
	s.repo.StoreEpisode(ctx, episodic)

	// Full rebuild every interaction, not just after negations.
	communityGraph := s.engine.Rebuild(ctx)
	if communityGraph != nil {
		affected := make([]string, 0, len(communityGraph.Communities))
		for _, c := range communityGraph.Communities {
			affected = append(affected, c.ID)
		}
		s.audit.Record("update_community", sessionID, messageID, graph.GraphUpdate{
			AffectedCommunities: affected,
			Details: map[string]interface{}{
				"communities_count":             len(communityGraph.Communities),
				"inter_community_relationships": len(communityGraph.InterCommunityRelationships),
			},
		})
	}

	entityIDs := make([]string, 0, len(allEntities))
	for _, ent := range allEntities {
		entityIDs = append(entityIDs, ent.ID)
	}
	relIDs := make([]string, 0, len(allRels))
	for _, rel := range allRels {
		relIDs = append(relIDs, rel.ID)
	}
	s.audit.Record("process_interaction", sessionID, messageID, graph.GraphUpdate{
		AffectedEntities:      entityIDs,
		AffectedRelationships: relIDs,
		Details: map[string]interface{}{
			"user_entities":     len(userEntities),
			"response_entities": len(responseEntities),
			"relationships":     len(allRels),
			"negations":         len(negations),
		},
	})

	metrics.InteractionsProcessed.WithLabelValues("ok").Inc()
	s.logger.Info("interaction processed",
		zap.String("session_id", sessionID),
		zap.Int("entities", len(allEntities)),
		zap.Int("relationships", len(allRels)),
		zap.Int("negations", len(negations)),
	)

	return &InteractionSummary{
		EntitiesExtracted:      len(allEntities),
		RelationshipsExtracted: len(allRels),
		NegationsDetected:      len(negations),
		EpisodicGraphID:        episodic.ID,
		CommunityGraphUpdated:  s.engine.Current() != nil,
		TemporalContext:        extract.ExtractTemporalContext(userText + " " + responseText),
		Entities:               sampleEntities(allEntities),
		Relationships:          sampleRelationships(allRels),
	}, nil
}

// applyNegations detects negation pairs and applies each one: the
// original relationship is deactivated with back-links in memory and
// in the store, a NegationEvent is recorded, and community maintenance
// runs for the touched entity pair.
func (s *Service) applyNegations(ctx context.Context, text string, existing, incoming []graph.Relationship, sessionID, messageID string) []graph.NegationEvent {
	pairs := extract.DetectNegations(text, existing, incoming)
	if len(pairs) == 0 {
		return nil
	}

	events := make([]graph.NegationEvent, 0, len(pairs))
	for _, pair := range pairs {
		event := s.repo.ApplyNegation(ctx, pair.Original.ID, pair.Negating.ID, sessionID, messageID)

		for i := range existing {
			if existing[i].ID == pair.Original.ID {
				existing[i].IsActive = false
				existing[i].NegatedByID = pair.Negating.ID
			}
		}
		for i := range incoming {
			if incoming[i].ID == pair.Negating.ID {
				incoming[i].NegatesID = pair.Original.ID
			}
		}

		s.engine.HandleNegation(ctx, pair.Original.SourceEntityID, pair.Original.TargetEntityID)

		s.audit.Record("negation", sessionID, messageID, graph.GraphUpdate{
			AffectedRelationships: []string{pair.Original.ID, pair.Negating.ID},
			Details: map[string]interface{}{
				"negation_event_id": event.ID,
			},
		})

		events = append(events, *event)
		metrics.NegationsApplied.Inc()
		s.logger.Info("negation applied",
			zap.String("original_relationship_id", pair.Original.ID),
			zap.String("negating_relationship_id", pair.Negating.ID),
			zap.String("session_id", sessionID),
		)
	}
	return events
}

func sampleEntities(entities []graph.Entity) []graph.Entity {
	if len(entities) > summarySampleCap {
		entities = entities[:summarySampleCap]
	}
	out := make([]graph.Entity, len(entities))
	copy(out, entities)
	return out
}

func sampleRelationships(relationships []graph.Relationship) []graph.Relationship {
	if len(relationships) > summarySampleCap {
		relationships = relationships[:summarySampleCap]
	}
	out := make([]graph.Relationship, len(relationships))
	copy(out, relationships)
	return out
}
