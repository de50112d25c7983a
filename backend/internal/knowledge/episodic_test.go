package knowledge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmind/backend/internal/graph"
)

func TestSessionStore_GetOrCreate(t *testing.T) {
	store := NewSessionStore()

	g := store.GetOrCreate("session-1")
	require.NotNil(t, g)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "session-1", g.SessionID)

	again := store.GetOrCreate("session-1")
	assert.Same(t, g, again)
}

func TestSessionStore_GetDoesNotCreate(t *testing.T) {
	store := NewSessionStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.Sessions())
}

func TestSessionStore_SessionLockIsStable(t *testing.T) {
	store := NewSessionStore()

	l1 := store.SessionLock("session-1")
	l2 := store.SessionLock("session-1")
	other := store.SessionLock("session-2")

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, other)
}

func TestSessionStore_Totals(t *testing.T) {
	store := NewSessionStore()

	g := store.GetOrCreate("session-1")
	g.AddEntity(graph.Entity{ID: "e1", Name: "Alice Smith", Type: graph.EntityPerson})
	g.AddRelationship(graph.Relationship{ID: "r1", SourceEntityID: "e1", TargetEntityID: "e2"})

	h := store.GetOrCreate("session-2")
	h.AddEntity(graph.Entity{ID: "e2", Name: "Acme Corp", Type: graph.EntityOrganization})

	entities, relationships := store.Totals()
	assert.Equal(t, int64(2), entities)
	assert.Equal(t, int64(1), relationships)
}

func TestEpisodicGraph_ValueEqualityNoop(t *testing.T) {
	store := NewSessionStore()
	g := store.GetOrCreate("session-1")

	ent := graph.Entity{ID: "e1", Name: "Alice Smith", Type: graph.EntityPerson}
	g.AddEntity(ent)
	g.AddEntity(ent)

	assert.Len(t, g.Entities, 1)

	// A differing field is a new append, not a merge.
	ent.Confidence = 0.9
	g.AddEntity(ent)
	assert.Len(t, g.Entities, 2)
}

func TestSessionStore_ConcurrentGetOrCreate(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	graphs := make([]*graph.EpisodicGraph, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i] = store.GetOrCreate("session-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 10; i++ {
		assert.Same(t, graphs[0], graphs[i])
	}
}

func TestAuditLog_AppendOnly(t *testing.T) {
	log := NewAuditLog()

	first := log.Record("process_interaction", "session-1", "msg-1", graph.GraphUpdate{
		AffectedEntities: []string{"e1"},
	})
	second := log.Record("negation", "session-1", "msg-2", graph.GraphUpdate{
		AffectedRelationships: []string{"r1", "r2"},
	})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, log.Len())
	assert.Equal(t, int64(1), log.CountType("negation"))

	snapshot := log.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "process_interaction", snapshot[0].UpdateType)
	assert.False(t, snapshot[0].Timestamp.After(snapshot[1].Timestamp.Add(time.Second)))
}

func TestAuditLog_SnapshotIsACopy(t *testing.T) {
	log := NewAuditLog()
	log.Record("process_interaction", "session-1", "msg-1", graph.GraphUpdate{})

	snapshot := log.Snapshot()
	snapshot[0].UpdateType = "mutated"

	assert.Equal(t, "process_interaction", log.Snapshot()[0].UpdateType)
}
