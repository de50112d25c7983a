package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmind/backend/pkg/logger"
)

// Repository handles all Neo4j database operations. A nil driver is a
// valid state: every operation degrades to a no-op returning empty
// results so the in-memory pipeline keeps working without the store.
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a graph repository. Pass a nil driver to run
// in degraded (store-less) mode.
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("graph"),
	}
}

// Available reports whether a backing store is attached.
func (r *Repository) Available() bool {
	return r.driver != nil
}

// Close closes the Neo4j driver connection.
func (r *Repository) Close() error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Close(context.Background())
}

// InitSchema creates uniqueness constraints and lookup indexes.
// Failures are logged and swallowed; constraints may already exist.
func (r *Repository) InitSchema(ctx context.Context) {
	if r.driver == nil {
		return
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
		"CREATE CONSTRAINT relationship_id IF NOT EXISTS FOR ()-[r:RELATES_TO]-() REQUIRE r.id IS UNIQUE",
		"CREATE CONSTRAINT episode_id IF NOT EXISTS FOR (ep:Episode) REQUIRE ep.id IS UNIQUE",
		"CREATE CONSTRAINT community_id IF NOT EXISTS FOR (c:Community) REQUIRE c.id IS UNIQUE",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)",
		"CREATE INDEX entity_type IF NOT EXISTS FOR (e:Entity) ON (e.type)",
		"CREATE INDEX entity_session IF NOT EXISTS FOR (e:Entity) ON (e.session_id)",
		"CREATE INDEX relationship_type IF NOT EXISTS FOR ()-[r:RELATES_TO]-() ON (r.type)",
		"CREATE INDEX relationship_active IF NOT EXISTS FOR ()-[r:RELATES_TO]-() ON (r.is_active)",
		"CREATE INDEX community_name IF NOT EXISTS FOR (c:Community) ON (c.name)",
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			r.logger.Debug("schema statement skipped", zap.Error(err))
		}
	}
}

// Run executes an ad-hoc Cypher query and returns plain record maps.
// Returns nil when the store is unavailable or the query fails.
func (r *Repository) Run(ctx context.Context, query string, params map[string]interface{}) []map[string]interface{} {
	if r.driver == nil {
		return nil
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		r.logger.Warn("query failed", zap.Error(err))
		return nil
	}

	var rows []map[string]interface{}
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	return rows
}

// write runs a single write statement, logging and swallowing failures.
func (r *Repository) write(ctx context.Context, query string, params map[string]interface{}) bool {
	if r.driver == nil {
		return false
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, query, params); err != nil {
		r.logger.Warn("write failed", zap.Error(err))
		return false
	}
	return true
}
