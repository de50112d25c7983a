package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"graphmind/backend/internal/graph"
)

func makeRelationship(id, source, target string, relType graph.RelationType, props map[string]interface{}) graph.Relationship {
	return graph.Relationship{
		ID:             id,
		SourceEntityID: source,
		TargetEntityID: target,
		Type:           relType,
		Properties:     props,
		Confidence:     0.7,
		ExtractedAt:    time.Now().UTC(),
		SessionID:      "session-1",
		IsActive:       true,
	}
}

func TestDetectNegations_TypeChangeWithCue(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-2", "alice", "acme", graph.RelationKnows, nil),
	}

	pairs := DetectNegations("Alice no longer works at Acme Corp", existing, incoming)

	assert.Len(t, pairs, 1)
	assert.Equal(t, "rel-1", pairs[0].Original.ID)
	assert.Equal(t, "rel-2", pairs[0].Negating.ID)
}

func TestDetectNegations_FlaggedRelationshipSameType(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-2", "alice", "acme", graph.RelationWorksFor,
			map[string]interface{}{"negation_detected": true}),
	}

	pairs := DetectNegations("Actually Alice does not work at Acme anymore", existing, incoming)

	assert.Len(t, pairs, 1)
}

func TestDetectNegations_NoCueNoNegation(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-2", "alice", "acme", graph.RelationKnows, nil),
	}

	pairs := DetectNegations("Alice knows people at Acme Corp", existing, incoming)

	assert.Empty(t, pairs)
}

func TestDetectNegations_SameTypeUnflaggedNoNegation(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-2", "alice", "acme", graph.RelationWorksFor, nil),
	}

	// Cue present, but the relationship is unchanged and unflagged.
	pairs := DetectNegations("Alice no longer visits the office", existing, incoming)

	assert.Empty(t, pairs)
}

func TestDetectNegations_DifferentEntityPairIgnored(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-2", "bob", "acme", graph.RelationKnows, nil),
	}

	pairs := DetectNegations("Bob no longer works there", existing, incoming)

	assert.Empty(t, pairs)
}

func TestDetectNegations_OneNegatingManyOriginals(t *testing.T) {
	existing := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor, nil),
		makeRelationship("rel-2", "alice", "acme", graph.RelationBelongsTo, nil),
	}
	incoming := []graph.Relationship{
		makeRelationship("rel-3", "alice", "acme", graph.RelationKnows, nil),
	}

	pairs := DetectNegations("Alice no longer works at Acme", existing, incoming)

	assert.Len(t, pairs, 2)
}

func TestTagNegations_FlagsAndHalvesConfidence(t *testing.T) {
	relationships := []graph.Relationship{
		makeRelationship("rel-1", "alice", "acme", graph.RelationWorksFor,
			map[string]interface{}{"context": "Alice doesn't work at Acme"}),
		makeRelationship("rel-2", "bob", "acme", graph.RelationWorksFor,
			map[string]interface{}{"context": "Bob works at Acme"}),
	}

	tagged := tagNegations(relationships)

	assert.True(t, tagged[0].NegationDetected())
	assert.Equal(t, 0.35, tagged[0].Confidence)
	assert.False(t, tagged[1].NegationDetected())
	assert.Equal(t, 0.7, tagged[1].Confidence)
}
