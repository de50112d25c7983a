package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// nodeProps extracts the property map from a returned node or
// relationship value.
func nodeProps(v interface{}) map[string]interface{} {
	switch n := v.(type) {
	case neo4j.Node:
		return n.Props
	case neo4j.Relationship:
		return n.Props
	case map[string]interface{}:
		return n
	}
	return nil
}

// collectProps flattens a collect() column into property maps,
// dropping nulls produced by OPTIONAL MATCH.
func collectProps(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		if props := nodeProps(item); props != nil {
			out = append(out, props)
		}
	}
	return out
}
