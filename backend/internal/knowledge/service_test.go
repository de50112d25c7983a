package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmind/backend/internal/adapter"
	"graphmind/backend/internal/cache"
	"graphmind/backend/internal/extract"
	"graphmind/backend/internal/graph"
	"graphmind/backend/pkg/config"
	apperrors "graphmind/backend/pkg/errors"
)

// newDegradedService builds a full pipeline with no graph store and no
// LLM strategy. Everything must still work in memory.
func newDegradedService() *Service {
	repo := graph.NewRepository(nil)
	extractor := extract.NewExtractor(cache.New(false, 0), nil, false)
	return NewService(extractor, repo, NewSessionStore(), NewEngine(repo), NewAuditLog())
}

func TestProcessInteraction_RejectsEmptySessionID(t *testing.T) {
	s := newDegradedService()

	summary, err := s.ProcessInteraction(context.Background(), "hello", "hi", "  ", "msg-1")

	assert.Nil(t, summary)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProcessInteraction_DegradedStoreStillWorks(t *testing.T) {
	s := newDegradedService()

	summary, err := s.ProcessInteraction(context.Background(),
		"Alice Smith works at Acme Corp",
		"Got it, Alice Smith is employed there",
		"session-1", "msg-1")

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Greater(t, summary.EntitiesExtracted, 0)
	assert.NotEmpty(t, summary.EpisodicGraphID)
	assert.True(t, summary.CommunityGraphUpdated)
	assert.Equal(t, "present", summary.TemporalContext.Tense)

	sessionGraph, err := s.GetSessionGraph("session-1")
	require.NoError(t, err)
	assert.Equal(t, summary.EpisodicGraphID, sessionGraph.EpisodicGraphID)
	assert.Equal(t, summary.EntitiesExtracted, sessionGraph.EntitiesCount)
}

func TestProcessInteraction_UnreachableLLMStillReturnsSummary(t *testing.T) {
	cfg := &config.Config{
		LLMProvider: config.ProviderLocal,
		LLMBaseURL:  "http://127.0.0.1:9",
		LLMModel:    "test-model",
		LLMTimeout:  200 * time.Millisecond,
	}
	client := adapter.NewCompletionClient(cfg)
	cacheService := cache.New(false, 0)
	llm := extract.NewLLMRecognizer(client, cacheService, 0, 100, 0)

	repo := graph.NewRepository(nil)
	extractor := extract.NewExtractor(cacheService, llm, false)
	s := NewService(extractor, repo, NewSessionStore(), NewEngine(repo), NewAuditLog())

	summary, err := s.ProcessInteraction(context.Background(),
		"Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")

	require.NoError(t, err)
	require.NotNil(t, summary)
	// The pattern strategy still runs after the LLM pass comes back empty.
	assert.Greater(t, summary.EntitiesExtracted, 0)
}

func TestProcessInteraction_SummarySampleCap(t *testing.T) {
	s := newDegradedService()

	summary, err := s.ProcessInteraction(context.Background(),
		"Alice Smith met Bob Jones and Carol White in Paris",
		"They visited London and Tokyo with David Brown yesterday",
		"session-1", "msg-1")

	require.NoError(t, err)
	assert.Greater(t, summary.EntitiesExtracted, 5)
	assert.LessOrEqual(t, len(summary.Entities), 5)
	assert.LessOrEqual(t, len(summary.Relationships), 5)
}

func TestProcessInteraction_EpisodicGraphAccumulates(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	first, err := s.ProcessInteraction(ctx, "Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	second, err := s.ProcessInteraction(ctx, "Bob Jones lives in Paris", "noted", "session-1", "msg-2")
	require.NoError(t, err)
	assert.Equal(t, first.EpisodicGraphID, second.EpisodicGraphID)

	sessionGraph, err := s.GetSessionGraph("session-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sessionGraph.EntitiesCount, first.EntitiesExtracted+second.EntitiesExtracted)
}

func TestProcessInteraction_AuditTrailGrows(t *testing.T) {
	s := newDegradedService()

	_, err := s.ProcessInteraction(context.Background(), "Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	updates := s.audit.Snapshot()
	require.NotEmpty(t, updates)

	last := updates[len(updates)-1]
	assert.Equal(t, "process_interaction", last.UpdateType)
	assert.Equal(t, "session-1", last.SessionID)
	assert.NotEmpty(t, last.AffectedEntities)
	assert.NotZero(t, last.Timestamp)
}

func TestApplyNegations_DeactivatesAndBackLinks(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	episodic := s.sessions.GetOrCreate("session-1")
	original := graph.Relationship{
		ID:             "rel-1",
		SourceEntityID: "alice",
		TargetEntityID: "acme",
		Type:           graph.RelationWorksFor,
		Confidence:     0.7,
		ExtractedAt:    time.Now().UTC(),
		SessionID:      "session-1",
		IsActive:       true,
	}
	episodic.AddRelationship(original)

	incoming := []graph.Relationship{{
		ID:             "rel-2",
		SourceEntityID: "alice",
		TargetEntityID: "acme",
		Type:           graph.RelationKnows,
		Confidence:     0.7,
		ExtractedAt:    time.Now().UTC(),
		SessionID:      "session-1",
		IsActive:       true,
	}}

	events := s.applyNegations(ctx, "alice no longer works at acme",
		episodic.Relationships, incoming, "session-1", "msg-2")

	require.Len(t, events, 1)
	assert.Equal(t, "rel-1", events[0].OriginalRelationshipID)
	assert.Equal(t, "rel-2", events[0].NegatingRelationshipID)

	assert.False(t, episodic.Relationships[0].IsActive)
	assert.Equal(t, "rel-2", episodic.Relationships[0].NegatedByID)
	assert.Equal(t, "rel-1", incoming[0].NegatesID)

	assert.Equal(t, int64(1), s.audit.CountType("negation"))
}

func TestApplyNegations_NoCueNoEvents(t *testing.T) {
	s := newDegradedService()

	existing := []graph.Relationship{{
		ID: "rel-1", SourceEntityID: "alice", TargetEntityID: "acme",
		Type: graph.RelationWorksFor, IsActive: true,
	}}
	incoming := []graph.Relationship{{
		ID: "rel-2", SourceEntityID: "alice", TargetEntityID: "acme",
		Type: graph.RelationKnows, IsActive: true,
	}}

	events := s.applyNegations(context.Background(), "alice knows acme",
		existing, incoming, "session-1", "msg-2")

	assert.Empty(t, events)
	assert.True(t, existing[0].IsActive)
}

func TestGetSessionGraph_UnknownSession(t *testing.T) {
	s := newDegradedService()

	sessionGraph, err := s.GetSessionGraph("missing")

	assert.Nil(t, sessionGraph)
	require.Error(t, err)
	assert.False(t, apperrors.IsValidation(err))
}

func TestGetEntityContext_FallsBackToMemory(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	_, err := s.ProcessInteraction(ctx, "Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	entityContext, err := s.GetEntityContext(ctx, "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", entityContext.Entity["name"])
}

func TestGetEntityContext_UnknownEntity(t *testing.T) {
	s := newDegradedService()

	entityContext, err := s.GetEntityContext(context.Background(), "Nobody Here")

	assert.Nil(t, entityContext)
	assert.Error(t, err)
}

func TestGetCommunityInsights_BuildsOnDemand(t *testing.T) {
	s := newDegradedService()

	insights := s.GetCommunityInsights(context.Background())

	require.NotNil(t, insights)
	assert.Equal(t, 0, insights.TotalCommunities)
	assert.NotNil(t, s.engine.Current())
}

func TestQueryKnowledge_FindsKnownEntities(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	_, err := s.ProcessInteraction(ctx, "Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	result := s.QueryKnowledge(ctx, "What does Alice Smith do?")

	require.NotNil(t, result)
	require.NotEmpty(t, result.EntitiesFound)
	assert.Equal(t, "Alice Smith", result.EntitiesFound[0].Entity["name"])
}

func TestGetGraphStatistics_DegradedFallsBackToMemory(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	_, err := s.ProcessInteraction(ctx, "Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	stats := s.GetGraphStatistics(ctx)

	require.NotNil(t, stats)
	assert.Greater(t, stats.EntityCount, int64(0))
	assert.Equal(t, int64(0), stats.NegationCount)
}

func TestReadQueriesConcurrentWithProcessInteraction(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, err := s.ProcessInteraction(ctx,
				"Alice Smith works at Acme Corp",
				"Bob Jones lives in Paris",
				"session-1", fmt.Sprintf("msg-%d", i))
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 50; i++ {
		if sessionGraph, err := s.GetSessionGraph("session-1"); err == nil {
			assert.Len(t, sessionGraph.Entities, sessionGraph.EntitiesCount)
		}
		s.GetEntityContext(ctx, "Alice Smith")
		s.GetGraphStatistics(ctx)
	}
	<-done

	sessionGraph, err := s.GetSessionGraph("session-1")
	require.NoError(t, err)
	assert.Greater(t, sessionGraph.EntitiesCount, 0)
}

func TestProcessInteraction_NegationPairsByEntityID(t *testing.T) {
	s := newDegradedService()
	ctx := context.Background()

	_, err := s.ProcessInteraction(ctx,
		"Alice Smith works at Acme Corp", "noted", "session-1", "msg-1")
	require.NoError(t, err)

	// Extraction mints fresh ids per interaction, so a later mention of
	// the same pair never matches the stored relationship by id. The cue
	// alone flags the incoming relationship; deactivation happens only
	// when ids persist across mentions.
	summary, err := s.ProcessInteraction(ctx,
		"Actually, Alice Smith no longer works at Acme Corp", "understood", "session-1", "msg-2")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NegationsDetected)

	episodic, ok := s.sessions.Get("session-1")
	require.True(t, ok)
	for _, rel := range episodic.Relationships {
		assert.True(t, rel.IsActive)
	}
}
