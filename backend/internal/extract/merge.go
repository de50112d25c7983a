package extract

import (
	"graphmind/backend/internal/graph"
)

// MergeEntities deduplicates entities across text spans by
// (lowercased name, type). The first entity of each group is kept as
// representative; property maps are unioned with later keys winning,
// and confidence becomes the group maximum. Output preserves the
// insertion order of first occurrence, which makes the merge
// idempotent and order-independent on the final set.
func MergeEntities(entities []graph.Entity) []graph.Entity {
	merged := make(map[string]*graph.Entity, len(entities))
	order := make([]string, 0, len(entities))

	for _, entity := range entities {
		key := dedupKey(entity.Name, entity.Type)
		existing, ok := merged[key]
		if !ok {
			e := entity
			if e.Properties == nil {
				e.Properties = map[string]interface{}{}
			}
			merged[key] = &e
			order = append(order, key)
			continue
		}
		for k, v := range entity.Properties {
			existing.Properties[k] = v
		}
		if entity.Confidence > existing.Confidence {
			existing.Confidence = entity.Confidence
		}
	}

	out := make([]graph.Entity, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}
