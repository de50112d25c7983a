package graph

import (
	"reflect"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// EntityType classifies a node in the knowledge graph.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityConcept      EntityType = "concept"
	EntityEvent        EntityType = "event"
	EntityObject       EntityType = "object"
	EntityDate         EntityType = "date"
	EntityQuantity     EntityType = "quantity"
	EntityUnknown      EntityType = "unknown"
)

// RelationType classifies an edge between two entities.
type RelationType string

const (
	RelationIsA            RelationType = "is_a"
	RelationHas            RelationType = "has"
	RelationBelongsTo      RelationType = "belongs_to"
	RelationLocatedIn      RelationType = "located_in"
	RelationWorksFor       RelationType = "works_for"
	RelationKnows          RelationType = "knows"
	RelationCreatedBy      RelationType = "created_by"
	RelationPartOf         RelationType = "part_of"
	RelationRelatedTo      RelationType = "related_to"
	RelationCauses         RelationType = "causes"
	RelationPrevents       RelationType = "prevents"
	RelationNegates        RelationType = "negates"
	RelationUpdates        RelationType = "updates"
	RelationTemporalBefore RelationType = "temporal_before"
	RelationTemporalAfter  RelationType = "temporal_after"
	RelationUnknown        RelationType = "unknown"
)

var entityTypes = map[string]EntityType{
	"person":       EntityPerson,
	"organization": EntityOrganization,
	"location":     EntityLocation,
	"concept":      EntityConcept,
	"event":        EntityEvent,
	"object":       EntityObject,
	"date":         EntityDate,
	"quantity":     EntityQuantity,
	"unknown":      EntityUnknown,
}

var relationTypes = map[string]RelationType{
	"is_a":            RelationIsA,
	"has":             RelationHas,
	"belongs_to":      RelationBelongsTo,
	"located_in":      RelationLocatedIn,
	"works_for":       RelationWorksFor,
	"knows":           RelationKnows,
	"created_by":      RelationCreatedBy,
	"part_of":         RelationPartOf,
	"related_to":      RelationRelatedTo,
	"causes":          RelationCauses,
	"prevents":        RelationPrevents,
	"negates":         RelationNegates,
	"updates":         RelationUpdates,
	"temporal_before": RelationTemporalBefore,
	"temporal_after":  RelationTemporalAfter,
	"unknown":         RelationUnknown,
}

// ParseEntityType maps a string onto the closed entity type set,
// falling back to concept for anything it does not recognize.
func ParseEntityType(s string) EntityType {
	if t, ok := entityTypes[s]; ok {
		return t
	}
	return EntityConcept
}

// ParseRelationType maps a string onto the closed relation type set,
// falling back to related_to.
func ParseRelationType(s string) RelationType {
	if t, ok := relationTypes[s]; ok {
		return t
	}
	return RelationRelatedTo
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Entity is a node in the knowledge graph.
type Entity struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        EntityType             `json:"type"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Confidence  float64                `json:"confidence"`
	SourceText  string                 `json:"source_text,omitempty"`
	ExtractedAt time.Time              `json:"extracted_at"`
	SessionID   string                 `json:"session_id"`
	MessageID   string                 `json:"message_id,omitempty"`
}

// Relationship is an edge between two entities.
type Relationship struct {
	ID             string                 `json:"id"`
	SourceEntityID string                 `json:"source_entity_id"`
	TargetEntityID string                 `json:"target_entity_id"`
	Type           RelationType           `json:"type"`
	Properties     map[string]interface{} `json:"properties,omitempty"`
	Confidence     float64                `json:"confidence"`
	ExtractedAt    time.Time              `json:"extracted_at"`
	SessionID      string                 `json:"session_id"`
	MessageID      string                 `json:"message_id,omitempty"`
	IsActive       bool                   `json:"is_active"`
	NegatesID      string                 `json:"negates_relationship_id,omitempty"`
	NegatedByID    string                 `json:"negated_by_relationship_id,omitempty"`
}

// NegationDetected reports whether the recognizer flagged this
// relationship with a negation cue at extraction time.
func (r Relationship) NegationDetected() bool {
	if r.Properties == nil {
		return false
	}
	v, ok := r.Properties["negation_detected"].(bool)
	return ok && v
}

// EpisodicGraph accumulates everything extracted for one session.
// It only grows: entries are appended, never removed. Negated
// relationships stay in the list with IsActive false.
type EpisodicGraph struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	MessageIDs    []string       `json:"message_ids"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// AddEntity appends an entity unless an identical one is already present.
func (g *EpisodicGraph) AddEntity(e Entity) {
	for _, existing := range g.Entities {
		if reflect.DeepEqual(existing, e) {
			return
		}
	}
	g.Entities = append(g.Entities, e)
	g.UpdatedAt = time.Now().UTC()
}

// AddRelationship appends a relationship unless an identical one is present.
func (g *EpisodicGraph) AddRelationship(r Relationship) {
	for _, existing := range g.Relationships {
		if reflect.DeepEqual(existing, r) {
			return
		}
	}
	g.Relationships = append(g.Relationships, r)
	g.UpdatedAt = time.Now().UTC()
}

// AddMessageID records a contributing message id once.
func (g *EpisodicGraph) AddMessageID(id string) {
	if id == "" {
		return
	}
	for _, existing := range g.MessageIDs {
		if existing == id {
			return
		}
	}
	g.MessageIDs = append(g.MessageIDs, id)
}

// Community is a cluster of entities linked by active relationships.
type Community struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	EntityIDs       mapset.Set[string]     `json:"entity_ids"`
	CentralEntities []string               `json:"central_entities"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Confidence      float64                `json:"confidence"`
	DissolvedAt     *time.Time             `json:"dissolved_at,omitempty"`
	DissolvedReason string                 `json:"dissolved_reason,omitempty"`
}

// Dissolved reports whether the community has been marked dissolved.
func (c *Community) Dissolved() bool {
	return c.DissolvedAt != nil
}

// InterCommunityRelationship summarizes the active edges crossing
// between two communities.
type InterCommunityRelationship struct {
	SourceCommunityID string   `json:"source_community_id"`
	TargetCommunityID string   `json:"target_community_id"`
	RelationshipCount int64    `json:"relationship_count"`
	RelationshipTypes []string `json:"relationship_types"`
}

// CommunityGraph is a full snapshot of detected communities plus the
// edges between them. Snapshots are replaced wholesale on rebuild.
type CommunityGraph struct {
	ID                          string                       `json:"id"`
	Communities                 []Community                  `json:"communities"`
	InterCommunityRelationships []InterCommunityRelationship `json:"inter_community_relationships"`
	CreatedAt                   time.Time                    `json:"created_at"`
	UpdatedAt                   time.Time                    `json:"updated_at"`
}

// NegationEvent is an immutable audit record of one relationship
// negating another.
type NegationEvent struct {
	ID                     string    `json:"id"`
	OriginalRelationshipID string    `json:"original_relationship_id"`
	NegatingRelationshipID string    `json:"negating_relationship_id"`
	NegationTimestamp      time.Time `json:"negation_timestamp"`
	SessionID              string    `json:"session_id"`
	MessageID              string    `json:"message_id,omitempty"`
	Reason                 string    `json:"reason,omitempty"`
	Confidence             float64   `json:"confidence"`
}

// GraphUpdate is one append-only audit trail entry describing a mutation.
type GraphUpdate struct {
	ID                    string                 `json:"id"`
	UpdateType            string                 `json:"update_type"`
	AffectedEntities      []string               `json:"affected_entities,omitempty"`
	AffectedRelationships []string               `json:"affected_relationships,omitempty"`
	AffectedCommunities   []string               `json:"affected_communities,omitempty"`
	Timestamp             time.Time              `json:"timestamp"`
	SessionID             string                 `json:"session_id"`
	MessageID             string                 `json:"message_id,omitempty"`
	Details               map[string]interface{} `json:"details,omitempty"`
}
