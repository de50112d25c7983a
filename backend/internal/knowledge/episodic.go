package knowledge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"graphmind/backend/internal/graph"
)

// SessionStore holds the per-session episodic graphs for the life of
// the process. Graphs are created empty on first access and only grow;
// there is no teardown beyond process exit.
type SessionStore struct {
	mu     sync.Mutex
	graphs map[string]*graph.EpisodicGraph
	locks  map[string]*sync.Mutex
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		graphs: make(map[string]*graph.EpisodicGraph),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Get returns the session's graph without creating one.
func (s *SessionStore) Get(sessionID string) (*graph.EpisodicGraph, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[sessionID]
	return g, ok
}

// GetOrCreate returns the session's graph, creating an empty one on
// first access.
func (s *SessionStore) GetOrCreate(sessionID string) *graph.EpisodicGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.graphs[sessionID]; ok {
		return g
	}
	now := time.Now().UTC()
	g := &graph.EpisodicGraph{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.graphs[sessionID] = g
	return g
}

// SessionLock returns the mutex serializing mutations for one session.
// At most one interaction may mutate a session's graph at a time;
// merge depends on the pre-mutation state.
func (s *SessionStore) SessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[sessionID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[sessionID] = l
	return l
}

// Sessions lists the session ids with an episodic graph.
func (s *SessionStore) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	return ids
}

// Totals sums entities and relationships across all sessions, used as
// the statistics fallback when the persistent store is unavailable.
// Each graph is read under its session lock; interactions append to
// these slices under the same lock.
func (s *SessionStore) Totals() (entities, relationships int64) {
	type locked struct {
		g *graph.EpisodicGraph
		l *sync.Mutex
	}

	s.mu.Lock()
	graphs := make([]locked, 0, len(s.graphs))
	for id, g := range s.graphs {
		l, ok := s.locks[id]
		if !ok {
			l = &sync.Mutex{}
			s.locks[id] = l
		}
		graphs = append(graphs, locked{g: g, l: l})
	}
	s.mu.Unlock()

	for _, lg := range graphs {
		lg.l.Lock()
		entities += int64(len(lg.g.Entities))
		relationships += int64(len(lg.g.Relationships))
		lg.l.Unlock()
	}
	return entities, relationships
}
