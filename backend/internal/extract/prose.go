package extract

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jdkato/prose/v2"

	"graphmind/backend/internal/graph"
)

// proseLabelTypes maps prose NER labels onto the closed entity type set.
var proseLabelTypes = map[string]graph.EntityType{
	"PERSON": graph.EntityPerson,
	"GPE":    graph.EntityLocation,
	"LOC":    graph.EntityLocation,
	"ORG":    graph.EntityOrganization,
	"DATE":   graph.EntityDate,
	"TIME":   graph.EntityDate,
	"EVENT":  graph.EntityEvent,
}

// proseEntities runs the statistical NER pass over text. It is an
// optional recall booster layered in front of the pattern families;
// any failure just yields no candidates.
func proseEntities(text, sessionID, messageID string) []graph.Entity {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil
	}

	var entities []graph.Entity
	for _, ent := range doc.Entities() {
		name := strings.TrimSpace(ent.Text)
		if name == "" {
			continue
		}
		etype, ok := proseLabelTypes[strings.ToUpper(ent.Label)]
		if !ok {
			etype = graph.EntityConcept
		}
		entities = append(entities, graph.Entity{
			ID:   uuid.New().String(),
			Name: name,
			Type: etype,
			Properties: map[string]interface{}{
				"ner_label": ent.Label,
			},
			Confidence:  0.85,
			SourceText:  text,
			ExtractedAt: time.Now().UTC(),
			SessionID:   sessionID,
			MessageID:   messageID,
		})
	}
	return entities
}
