package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmind/backend/internal/graph"
	"graphmind/backend/pkg/config"
	"graphmind/backend/pkg/logger"
)

// Seeds a demo knowledge graph so the query endpoints have something
// to answer before any chat traffic arrives.
func main() {
	sessionID := flag.String("session-id", "demo-session", "Session ID for seeded data")
	reset := flag.Bool("reset", false, "Wipe all graph data before seeding")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	if *reset {
		log.Info("Wiping existing graph data...")
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		if _, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
			log.Fatal("Failed to wipe graph", zap.Error(err))
		}
		session.Close(ctx)
	}

	repo := graph.NewRepository(driver)

	log.Info("Creating constraints and indexes...")
	repo.InitSchema(ctx)

	now := time.Now().UTC()
	alice := graph.Entity{
		ID:          uuid.New().String(),
		Name:        "Alice Smith",
		Type:        graph.EntityPerson,
		Properties:  map[string]interface{}{"source": "seed"},
		Confidence:  0.9,
		ExtractedAt: now,
		SessionID:   *sessionID,
	}
	acme := graph.Entity{
		ID:          uuid.New().String(),
		Name:        "Acme Corp",
		Type:        graph.EntityOrganization,
		Properties:  map[string]interface{}{"source": "seed"},
		Confidence:  0.9,
		ExtractedAt: now,
		SessionID:   *sessionID,
	}
	paris := graph.Entity{
		ID:          uuid.New().String(),
		Name:        "Paris",
		Type:        graph.EntityLocation,
		Properties:  map[string]interface{}{"source": "seed"},
		Confidence:  0.9,
		ExtractedAt: now,
		SessionID:   *sessionID,
	}

	for _, ent := range []graph.Entity{alice, acme, paris} {
		if !repo.UpsertEntity(ctx, ent) {
			log.Fatal("Failed to seed entity", zap.String("name", ent.Name))
		}
		log.Info("Seeded entity", zap.String("name", ent.Name), zap.String("type", string(ent.Type)))
	}

	relationships := []graph.Relationship{
		{
			ID:             uuid.New().String(),
			SourceEntityID: alice.ID,
			TargetEntityID: acme.ID,
			Type:           graph.RelationWorksFor,
			Properties:     map[string]interface{}{"source": "seed"},
			Confidence:     0.9,
			ExtractedAt:    now,
			SessionID:      *sessionID,
			IsActive:       true,
		},
		{
			ID:             uuid.New().String(),
			SourceEntityID: acme.ID,
			TargetEntityID: paris.ID,
			Type:           graph.RelationLocatedIn,
			Properties:     map[string]interface{}{"source": "seed"},
			Confidence:     0.9,
			ExtractedAt:    now,
			SessionID:      *sessionID,
			IsActive:       true,
		},
	}
	for _, rel := range relationships {
		if !repo.UpsertRelationship(ctx, rel) {
			log.Fatal("Failed to seed relationship", zap.String("id", rel.ID))
		}
		log.Info("Seeded relationship", zap.String("type", string(rel.Type)))
	}

	log.Info("Seeding complete",
		zap.String("session_id", *sessionID),
		zap.Int("entities", 3),
		zap.Int("relationships", len(relationships)),
	)
}
