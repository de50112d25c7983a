package knowledge

import (
	"context"
	"strings"
	"time"

	"graphmind/backend/internal/extract"
	"graphmind/backend/internal/graph"
	apperrors "graphmind/backend/pkg/errors"
)

// EntityContext is the full picture of one entity: its properties, the
// active relationships it participates in and the communities holding it.
type EntityContext struct {
	Entity        map[string]interface{} `json:"entity"`
	Relationships []RelatedEntity        `json:"relationships"`
	Communities   []CommunitySummary     `json:"communities"`
}

// RelatedEntity is one active relationship viewed from an entity.
type RelatedEntity struct {
	Type          string  `json:"type"`
	RelatedEntity string  `json:"related_entity"`
	Confidence    float64 `json:"confidence"`
}

// CommunitySummary is the projection of a community returned by
// query operations.
type CommunitySummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Size            int      `json:"size"`
	CentralEntities []string `json:"central_entities"`
	Confidence      float64  `json:"confidence"`
}

// GetEntityContext looks an entity up by name. The store is consulted
// first; with the store unavailable the in-memory session graphs serve
// as the fallback.
func (s *Service) GetEntityContext(ctx context.Context, entityName string) (*EntityContext, error) {
	rows := s.repo.Run(ctx, `
		MATCH (e:Entity {name: $name})
		OPTIONAL MATCH (e)-[r:RELATES_TO]-(related:Entity)
		WHERE r.is_active = true
		OPTIONAL MATCH (e)<-[:INCLUDES]-(c:Community)
		RETURN e.id as id, e.name as name, e.type as type, e.confidence as confidence,
		       collect(DISTINCT {type: r.type, related: related.name, confidence: r.confidence}) as relationships,
		       collect(DISTINCT {id: c.id, name: c.name}) as communities
	`, map[string]interface{}{"name": entityName})

	if len(rows) > 0 {
		return entityContextFromRow(rows[0]), nil
	}
	if ec := s.entityContextFromMemory(entityName); ec != nil {
		return ec, nil
	}
	return nil, apperrors.NewEntityNotFound(entityName)
}

func entityContextFromRow(row map[string]interface{}) *EntityContext {
	ec := &EntityContext{
		Entity: map[string]interface{}{
			"id":         row["id"],
			"name":       row["name"],
			"type":       row["type"],
			"confidence": row["confidence"],
		},
		Relationships: []RelatedEntity{},
		Communities:   []CommunitySummary{},
	}

	if rels, ok := row["relationships"].([]interface{}); ok {
		for _, item := range rels {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			relType, _ := m["type"].(string)
			related, _ := m["related"].(string)
			if relType == "" || related == "" {
				continue
			}
			confidence, _ := m["confidence"].(float64)
			ec.Relationships = append(ec.Relationships, RelatedEntity{
				Type:          relType,
				RelatedEntity: related,
				Confidence:    confidence,
			})
		}
	}

	if comms, ok := row["communities"].([]interface{}); ok {
		for _, item := range comms {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			id, _ := m["id"].(string)
			name, _ := m["name"].(string)
			if id == "" {
				continue
			}
			ec.Communities = append(ec.Communities, CommunitySummary{ID: id, Name: name})
		}
	}
	return ec
}

// entityContextFromMemory scans the session graphs for the entity and
// its active relationships. Nil when the name matches nothing.
func (s *Service) entityContextFromMemory(entityName string) *EntityContext {
	needle := strings.ToLower(strings.TrimSpace(entityName))
	if needle == "" {
		return nil
	}

	for _, sessionID := range s.sessions.Sessions() {
		g, ok := s.sessions.Get(sessionID)
		if !ok {
			continue
		}
		// Interactions append to the graph under the session lock;
		// reads take it too.
		lock := s.sessions.SessionLock(sessionID)
		lock.Lock()
		ec := entityContextInGraph(g, needle, s.engine.Current())
		lock.Unlock()
		if ec != nil {
			return ec
		}
	}
	return nil
}

// entityContextInGraph scans one episodic graph for the entity. The
// caller holds the session lock.
func entityContextInGraph(g *graph.EpisodicGraph, needle string, cg *graph.CommunityGraph) *EntityContext {
	for _, ent := range g.Entities {
		if strings.ToLower(ent.Name) != needle {
			continue
		}

		ec := &EntityContext{
			Entity: map[string]interface{}{
				"id":         ent.ID,
				"name":       ent.Name,
				"type":       string(ent.Type),
				"confidence": ent.Confidence,
			},
			Relationships: []RelatedEntity{},
			Communities:   []CommunitySummary{},
		}

		names := make(map[string]string, len(g.Entities))
		for _, other := range g.Entities {
			names[other.ID] = other.Name
		}
		for _, rel := range g.Relationships {
			if !rel.IsActive {
				continue
			}
			var relatedID string
			switch ent.ID {
			case rel.SourceEntityID:
				relatedID = rel.TargetEntityID
			case rel.TargetEntityID:
				relatedID = rel.SourceEntityID
			default:
				continue
			}
			ec.Relationships = append(ec.Relationships, RelatedEntity{
				Type:          string(rel.Type),
				RelatedEntity: names[relatedID],
				Confidence:    rel.Confidence,
			})
		}

		if cg != nil {
			for _, c := range cg.Communities {
				if c.EntityIDs.Contains(ent.ID) {
					ec.Communities = append(ec.Communities, CommunitySummary{ID: c.ID, Name: c.Name})
				}
			}
		}
		return ec
	}
	return nil
}

// SessionGraph is the complete episodic graph projection for one session.
type SessionGraph struct {
	EpisodicGraphID    string               `json:"episodic_graph_id"`
	EntitiesCount      int                  `json:"entities_count"`
	RelationshipsCount int                  `json:"relationships_count"`
	Entities           []graph.Entity       `json:"entities"`
	Relationships      []graph.Relationship `json:"relationships"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          string               `json:"updated_at"`
}

// GetSessionGraph returns the full episodic graph for a session.
func (s *Service) GetSessionGraph(sessionID string) (*SessionGraph, error) {
	g, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewSessionNotFound(sessionID)
	}

	// An interaction in flight appends under this lock.
	lock := s.sessions.SessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	entities := make([]graph.Entity, len(g.Entities))
	copy(entities, g.Entities)
	relationships := make([]graph.Relationship, len(g.Relationships))
	copy(relationships, g.Relationships)

	return &SessionGraph{
		EpisodicGraphID:    g.ID,
		EntitiesCount:      len(entities),
		RelationshipsCount: len(relationships),
		Entities:           entities,
		Relationships:      relationships,
		CreatedAt:          g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          g.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// CommunityInsights summarizes the current community snapshot.
type CommunityInsights struct {
	TotalCommunities          int                `json:"total_communities"`
	InterCommunityConnections int                `json:"inter_community_connections"`
	Communities               []CommunitySummary `json:"communities"`
}

// GetCommunityInsights reports on the current community graph,
// building it first when no snapshot exists yet.
func (s *Service) GetCommunityInsights(ctx context.Context) *CommunityInsights {
	cg := s.engine.Current()
	if cg == nil {
		cg = s.engine.Rebuild(ctx)
	}

	insights := &CommunityInsights{
		TotalCommunities:          len(cg.Communities),
		InterCommunityConnections: len(cg.InterCommunityRelationships),
		Communities:               make([]CommunitySummary, 0, len(cg.Communities)),
	}
	for _, c := range cg.Communities {
		insights.Communities = append(insights.Communities, CommunitySummary{
			ID:              c.ID,
			Name:            c.Name,
			Description:     c.Description,
			Size:            c.EntityIDs.Cardinality(),
			CentralEntities: c.CentralEntities,
			Confidence:      c.Confidence,
		})
	}
	return insights
}

// QueryResult is the answer to a natural-language knowledge query.
type QueryResult struct {
	Query           string                  `json:"query"`
	EntitiesFound   []*EntityContext        `json:"entities_found"`
	TemporalContext extract.TemporalContext `json:"temporal_context"`
}

// QueryKnowledge extracts entities from a free-text query and gathers
// the context of every one the graph knows about.
func (s *Service) QueryKnowledge(ctx context.Context, query string) *QueryResult {
	result := &QueryResult{
		Query:           query,
		EntitiesFound:   []*EntityContext{},
		TemporalContext: extract.ExtractTemporalContext(query),
	}

	for _, ent := range s.extractor.ExtractEntities(ctx, query, "query_session", "query") {
		ec, err := s.GetEntityContext(ctx, ent.Name)
		if err != nil {
			continue
		}
		result.EntitiesFound = append(result.EntitiesFound, ec)
	}
	return result
}

// GraphStatistics is the count summary of the whole graph.
type GraphStatistics struct {
	EntityCount       int64 `json:"entity_count"`
	RelationshipCount int64 `json:"relationship_count"`
	CommunityCount    int64 `json:"community_count"`
	NegationCount     int64 `json:"negation_count"`
}

// GetGraphStatistics counts entities, relationships, communities and
// negation events. The persistent store is authoritative; in-memory
// state answers when it is unavailable.
func (s *Service) GetGraphStatistics(ctx context.Context) *GraphStatistics {
	rows := s.repo.Run(ctx, `
		OPTIONAL MATCH (e:Entity)
		WITH count(e) as entity_count
		OPTIONAL MATCH ()-[r:RELATES_TO]->()
		WITH entity_count, count(r) as relationship_count
		OPTIONAL MATCH (c:Community)
		WITH entity_count, relationship_count, count(c) as community_count
		OPTIONAL MATCH (n:NegationEvent)
		RETURN entity_count, relationship_count, community_count,
		       count(n) as negation_count
	`, nil)

	if len(rows) > 0 {
		row := rows[0]
		return &GraphStatistics{
			EntityCount:       int64Value(row["entity_count"]),
			RelationshipCount: int64Value(row["relationship_count"]),
			CommunityCount:    int64Value(row["community_count"]),
			NegationCount:     int64Value(row["negation_count"]),
		}
	}

	entities, relationships := s.sessions.Totals()
	stats := &GraphStatistics{
		EntityCount:       entities,
		RelationshipCount: relationships,
		NegationCount:     s.audit.CountType("negation"),
	}
	if cg := s.engine.Current(); cg != nil {
		for _, c := range cg.Communities {
			if !c.Dissolved() {
				stats.CommunityCount++
			}
		}
	}
	return stats
}

func int64Value(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
