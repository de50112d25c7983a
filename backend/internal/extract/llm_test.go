package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"graphmind/backend/internal/graph"
)

func TestTrimToJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, trimToJSON(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, trimToJSON("Here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, "{}", trimToJSON("no json here"))
	assert.Equal(t, "{}", trimToJSON("} backwards {"))
}

func TestCritique_EmptyExtraction(t *testing.T) {
	c := critique(nil, nil)

	assert.Contains(t, c, "No entities or relationships were extracted")
}

func TestCritique_SingleWordPersonName(t *testing.T) {
	entities := []graph.Entity{
		makeEntity("1", "Alice", graph.EntityPerson, 0.8, nil),
	}

	c := critique(entities, nil)

	assert.Contains(t, c, "single-word entity names")
}

func TestCritique_AcceptableOutput(t *testing.T) {
	entities := []graph.Entity{
		makeEntity("1", "Alice Smith", graph.EntityPerson, 0.8, nil),
		makeEntity("2", "Quantum", graph.EntityConcept, 0.6, nil),
	}

	assert.Empty(t, critique(entities, nil))
}

func TestMapEntities_ParsesTypesAndClamps(t *testing.T) {
	r := &LLMRecognizer{}
	raw := `{"entities":[
		{"name":"Alice Smith","type":"PERSON","confidence":1.4},
		{"name":"Acme Corp","type":"organization","confidence":0.9},
		{"name":"","type":"concept","confidence":0.5},
		{"name":"Mystery","type":"gibberish"}
	]}`

	entities := r.mapEntities(gjson.Get(raw, "entities"), "source", "session-1", "msg-1")

	require.Len(t, entities, 3)
	assert.Equal(t, graph.EntityPerson, entities[0].Type)
	assert.Equal(t, 1.0, entities[0].Confidence)
	assert.Equal(t, graph.EntityOrganization, entities[1].Type)
	// unrecognized types land on concept with the default confidence
	assert.Equal(t, graph.EntityConcept, entities[2].Type)
	assert.Equal(t, 0.8, entities[2].Confidence)
}

func TestMapRelationships_ResolvesByName(t *testing.T) {
	r := &LLMRecognizer{}
	rawEntities := `{"entities":[
		{"name":"Alice Smith","type":"PERSON","confidence":0.9},
		{"name":"Acme Corp","type":"ORGANIZATION","confidence":0.9}
	]}`
	entities := r.mapEntities(gjson.Get(rawEntities, "entities"), "source", "session-1", "msg-1")

	rawRels := `{"relationships":[
		{"source_name":"alice smith","target_name":"ACME CORP","type":"WORKS_FOR","confidence":0.85},
		{"source_name":"Alice Smith","target_name":"Globex","type":"KNOWS","confidence":0.8}
	]}`
	relationships := r.mapRelationships(gjson.Get(rawRels, "relationships"), entities, "session-1", "msg-1")

	require.Len(t, relationships, 1)
	assert.Equal(t, graph.RelationWorksFor, relationships[0].Type)
	assert.Equal(t, entities[0].ID, relationships[0].SourceEntityID)
	assert.Equal(t, entities[1].ID, relationships[0].TargetEntityID)
	assert.True(t, relationships[0].IsActive)
}
