package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplyNegation marks the original relationship inactive, back-links
// both relationships, and records an immutable NegationEvent node.
// The returned event is always non-nil so in-memory state stays
// consistent even when the store is down.
func (r *Repository) ApplyNegation(ctx context.Context, originalID, negatingID, sessionID, messageID string) *NegationEvent {
	event := &NegationEvent{
		ID:                     uuid.New().String(),
		OriginalRelationshipID: originalID,
		NegatingRelationshipID: negatingID,
		NegationTimestamp:      time.Now().UTC(),
		SessionID:              sessionID,
		MessageID:              messageID,
		Confidence:             1.0,
	}

	timestamp := event.NegationTimestamp.Format(time.RFC3339)

	r.write(ctx, `
		MATCH ()-[r:RELATES_TO {id: $original_id}]-()
		SET r.is_active = false,
		    r.negated_by_relationship_id = $negating_id,
		    r.negated_at = $timestamp
	`, map[string]interface{}{
		"original_id": originalID,
		"negating_id": negatingID,
		"timestamp":   timestamp,
	})

	r.write(ctx, `
		MATCH ()-[r:RELATES_TO {id: $negating_id}]-()
		SET r.negates_relationship_id = $original_id
	`, map[string]interface{}{
		"negating_id": negatingID,
		"original_id": originalID,
	})

	r.write(ctx, `
		CREATE (n:NegationEvent {
			id: $id,
			original_relationship_id: $original_id,
			negating_relationship_id: $negating_id,
			timestamp: $timestamp,
			session_id: $session_id,
			message_id: $message_id,
			confidence: $confidence
		})
	`, map[string]interface{}{
		"id":          event.ID,
		"original_id": originalID,
		"negating_id": negatingID,
		"timestamp":   timestamp,
		"session_id":  sessionID,
		"message_id":  messageID,
		"confidence":  event.Confidence,
	})

	r.logger.Info("negation applied",
		zap.String("original", originalID),
		zap.String("negating", negatingID),
		zap.String("session_id", sessionID),
	)

	return event
}
