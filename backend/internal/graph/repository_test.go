package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Degraded-mode behavior needs no database: every operation on a
// store-less repository must return empty results, never panic.

func TestRepository_DegradedMode(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)

	assert.False(t, repo.Available())
	assert.NoError(t, repo.Close())
	repo.InitSchema(ctx)

	assert.Nil(t, repo.Run(ctx, "MATCH (n) RETURN n", nil))
	assert.False(t, repo.UpsertEntity(ctx, Entity{ID: "e1", Name: "Alice Smith", Type: EntityPerson}))
	assert.False(t, repo.UpsertRelationship(ctx, Relationship{ID: "r1", SourceEntityID: "a", TargetEntityID: "b"}))
	assert.False(t, repo.StoreEpisode(ctx, &EpisodicGraph{ID: "g1", SessionID: "session-1"}))
	assert.Empty(t, repo.GetEntityHistory(ctx, "e1"))

	nodes, edges := repo.FetchActiveGraph(ctx)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)

	assert.False(t, repo.StoreCommunityGraph(ctx, &CommunityGraph{ID: "cg1"}))
}

func TestRepository_ApplyNegationDegradedStillReturnsEvent(t *testing.T) {
	repo := NewRepository(nil)

	event := repo.ApplyNegation(context.Background(), "rel-1", "rel-2", "session-1", "msg-1")

	require.NotNil(t, event)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "rel-1", event.OriginalRelationshipID)
	assert.Equal(t, "rel-2", event.NegatingRelationshipID)
	assert.Equal(t, "session-1", event.SessionID)
	assert.Equal(t, 1.0, event.Confidence)
}

// Integration tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}
	return neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
}

func TestRepository_UpsertEntityRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	entityID := "test-entity-" + time.Now().Format("20060102150405")

	// Clean up
	defer func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		session.Run(ctx, "MATCH (e:Entity {id: $id}) DETACH DELETE e", map[string]interface{}{"id": entityID})
	}()

	entity := Entity{
		ID:          entityID,
		Name:        "Integration Test Entity",
		Type:        EntityConcept,
		Properties:  map[string]interface{}{"source": "test"},
		Confidence:  0.8,
		ExtractedAt: time.Now().UTC(),
		SessionID:   "test-session",
	}
	require.True(t, repo.UpsertEntity(ctx, entity))

	rows := repo.Run(ctx, "MATCH (e:Entity {id: $id}) RETURN e.name as name, e.type as type",
		map[string]interface{}{"id": entityID})

	require.Len(t, rows, 1)
	assert.Equal(t, "Integration Test Entity", rows[0]["name"])
	assert.Equal(t, "concept", rows[0]["type"])
}
