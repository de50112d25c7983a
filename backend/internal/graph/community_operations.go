package graph

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ActiveEdge is a lightweight view of an active relationship used by
// community detection.
type ActiveEdge struct {
	ID             string
	SourceEntityID string
	TargetEntityID string
	Type           RelationType
}

// ActiveNode is the entity view consumed by community detection.
type ActiveNode struct {
	ID   string
	Name string
}

// FetchActiveGraph returns every persisted entity plus the currently
// active relationships between them, the subgraph community detection
// runs over. Both slices are empty when the store is unavailable.
func (r *Repository) FetchActiveGraph(ctx context.Context) ([]ActiveNode, []ActiveEdge) {
	nodeRows := r.Run(ctx, `
		MATCH (e:Entity)
		RETURN e.id as id, e.name as name
	`, nil)

	nodes := make([]ActiveNode, 0, len(nodeRows))
	for _, row := range nodeRows {
		id := stringValue(row["id"])
		if id == "" {
			continue
		}
		nodes = append(nodes, ActiveNode{ID: id, Name: stringValue(row["name"])})
	}

	edgeRows := r.Run(ctx, `
		MATCH (a:Entity)-[r:RELATES_TO]->(b:Entity)
		WHERE r.is_active = true
		RETURN r.id as id, a.id as source, b.id as target, r.type as type
	`, nil)

	edges := make([]ActiveEdge, 0, len(edgeRows))
	for _, row := range edgeRows {
		id := stringValue(row["id"])
		src := stringValue(row["source"])
		dst := stringValue(row["target"])
		if id == "" || src == "" || dst == "" {
			continue
		}
		edges = append(edges, ActiveEdge{
			ID:             id,
			SourceEntityID: src,
			TargetEntityID: dst,
			Type:           RelationType(stringValue(row["type"])),
		})
	}

	return nodes, edges
}

// StoreCommunityGraph persists a full community snapshot: each
// community node, its INCLUDES links, and the inter-community edges.
func (r *Repository) StoreCommunityGraph(ctx context.Context, cg *CommunityGraph) bool {
	if cg == nil || !r.Available() {
		return false
	}

	ok := true
	for _, community := range cg.Communities {
		params := map[string]interface{}{
			"id":               community.ID,
			"name":             community.Name,
			"description":      community.Description,
			"entity_ids":       community.EntityIDs.ToSlice(),
			"central_entities": community.CentralEntities,
			"properties":       marshalProperties(community.Properties),
			"created_at":       community.CreatedAt.UTC().Format(time.RFC3339),
			"updated_at":       community.UpdatedAt.UTC().Format(time.RFC3339),
			"confidence":       community.Confidence,
		}

		query := `
			MERGE (c:Community {id: $id})
			SET c.name = $name,
			    c.description = $description,
			    c.entity_ids = $entity_ids,
			    c.central_entities = $central_entities,
			    c.properties = $properties,
			    c.created_at = $created_at,
			    c.updated_at = $updated_at,
			    c.confidence = $confidence
			WITH c
			UNWIND $entity_ids as entity_id
			MATCH (e:Entity {id: entity_id})
			MERGE (c)-[:INCLUDES]->(e)
		`

		if community.Dissolved() {
			params["dissolved_at"] = community.DissolvedAt.UTC().Format(time.RFC3339)
			params["dissolved_reason"] = community.DissolvedReason
			query = `
				MERGE (c:Community {id: $id})
				SET c.name = $name,
				    c.description = $description,
				    c.entity_ids = $entity_ids,
				    c.central_entities = $central_entities,
				    c.properties = $properties,
				    c.created_at = $created_at,
				    c.updated_at = $updated_at,
				    c.confidence = $confidence,
				    c.dissolved_at = $dissolved_at,
				    c.dissolved_reason = $dissolved_reason
				WITH c
				UNWIND $entity_ids as entity_id
				MATCH (e:Entity {id: entity_id})
				MERGE (c)-[:INCLUDES]->(e)
			`
		}

		if !r.write(ctx, query, params) {
			ok = false
		}
	}

	for _, inter := range cg.InterCommunityRelationships {
		if !r.write(ctx, `
			MATCH (c1:Community {id: $source_id})
			MATCH (c2:Community {id: $target_id})
			MERGE (c1)-[r:CONNECTED_TO]->(c2)
			SET r.relationship_count = $rel_count,
			    r.relationship_types = $rel_types
		`, map[string]interface{}{
			"source_id": inter.SourceCommunityID,
			"target_id": inter.TargetCommunityID,
			"rel_count": inter.RelationshipCount,
			"rel_types": inter.RelationshipTypes,
		}) {
			ok = false
		}
	}

	if ok {
		r.logger.Debug("community graph stored",
			zap.String("graph_id", cg.ID),
			zap.Int("communities", len(cg.Communities)),
		)
	}
	return ok
}
