package graph

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// UpsertEntity stores an entity by id, overwriting all fields on repeat.
func (r *Repository) UpsertEntity(ctx context.Context, e Entity) bool {
	query := `
		MERGE (e:Entity {id: $id})
		SET e.name = $name,
		    e.type = $type,
		    e.properties = $properties,
		    e.confidence = $confidence,
		    e.source_text = $source_text,
		    e.extracted_at = $extracted_at,
		    e.session_id = $session_id,
		    e.message_id = $message_id
	`

	return r.write(ctx, query, map[string]interface{}{
		"id":           e.ID,
		"name":         e.Name,
		"type":         string(e.Type),
		"properties":   marshalProperties(e.Properties),
		"confidence":   e.Confidence,
		"source_text":  e.SourceText,
		"extracted_at": e.ExtractedAt.UTC().Format(time.RFC3339),
		"session_id":   e.SessionID,
		"message_id":   e.MessageID,
	})
}

// UpsertRelationship stores a relationship edge between its entities
// by id, overwriting all fields on repeat.
func (r *Repository) UpsertRelationship(ctx context.Context, rel Relationship) bool {
	query := `
		MATCH (source:Entity {id: $source_id})
		MATCH (target:Entity {id: $target_id})
		MERGE (source)-[r:RELATES_TO {id: $id}]->(target)
		SET r.type = $type,
		    r.properties = $properties,
		    r.confidence = $confidence,
		    r.extracted_at = $extracted_at,
		    r.session_id = $session_id,
		    r.message_id = $message_id,
		    r.is_active = $is_active,
		    r.negates_relationship_id = $negates_id,
		    r.negated_by_relationship_id = $negated_by_id
	`

	return r.write(ctx, query, map[string]interface{}{
		"id":            rel.ID,
		"source_id":     rel.SourceEntityID,
		"target_id":     rel.TargetEntityID,
		"type":          string(rel.Type),
		"properties":    marshalProperties(rel.Properties),
		"confidence":    rel.Confidence,
		"extracted_at":  rel.ExtractedAt.UTC().Format(time.RFC3339),
		"session_id":    rel.SessionID,
		"message_id":    rel.MessageID,
		"is_active":     rel.IsActive,
		"negates_id":    rel.NegatesID,
		"negated_by_id": rel.NegatedByID,
	})
}

// StoreEpisode writes episode metadata and links the episode to every
// entity tagged with its session. This is a coarse re-link over the
// whole session, not scoped to the entities of one interaction.
func (r *Repository) StoreEpisode(ctx context.Context, g *EpisodicGraph) bool {
	if g == nil {
		return false
	}

	query := `
		MERGE (ep:Episode {id: $id})
		SET ep.session_id = $session_id,
		    ep.created_at = $created_at,
		    ep.updated_at = $updated_at,
		    ep.message_ids = $message_ids
		WITH ep
		MATCH (e:Entity {session_id: $session_id})
		MERGE (ep)-[:CONTAINS]->(e)
	`

	ok := r.write(ctx, query, map[string]interface{}{
		"id":          g.ID,
		"session_id":  g.SessionID,
		"created_at":  g.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  g.UpdatedAt.UTC().Format(time.RFC3339),
		"message_ids": g.MessageIDs,
	})
	if ok {
		r.logger.Debug("episode stored",
			zap.String("episode_id", g.ID),
			zap.String("session_id", g.SessionID),
		)
	}
	return ok
}

// EntityHistory bundles an entity with its relationships and the
// negation events touching them.
type EntityHistory struct {
	Entity        map[string]interface{}   `json:"entity"`
	Relationships []map[string]interface{} `json:"relationships"`
	Negations     []map[string]interface{} `json:"negations"`
}

// GetEntityHistory returns the full relationship and negation history
// of one entity. Empty when the store is unavailable.
func (r *Repository) GetEntityHistory(ctx context.Context, entityID string) []EntityHistory {
	query := `
		MATCH (e:Entity {id: $entity_id})
		OPTIONAL MATCH (e)-[rel:RELATES_TO]-()
		OPTIONAL MATCH (n:NegationEvent)
		WHERE n.original_relationship_id = rel.id
		   OR n.negating_relationship_id = rel.id
		RETURN e, collect(DISTINCT rel) as relationships,
		       collect(DISTINCT n) as negations
	`

	rows := r.Run(ctx, query, map[string]interface{}{"entity_id": entityID})
	if len(rows) == 0 {
		return nil
	}

	history := make([]EntityHistory, 0, len(rows))
	for _, row := range rows {
		h := EntityHistory{
			Entity:        nodeProps(row["e"]),
			Relationships: collectProps(row["relationships"]),
			Negations:     collectProps(row["negations"]),
		}
		history = append(history, h)
	}
	return history
}

func marshalProperties(props map[string]interface{}) string {
	if len(props) == 0 {
		return "{}"
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(data)
}
