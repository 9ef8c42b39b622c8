package neograph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

// toNodeSummary projects a node onto its first label.
func toNodeSummary(node neo4j.Node) models.NodeSummary {
	summary := models.NodeSummary{ID: node.ElementId}
	if len(node.Labels) > 0 {
		summary.Label = node.Labels[0]
	}
	return summary
}

func toNodeDetail(node neo4j.Node) models.NodeDetail {
	labels := node.Labels
	if labels == nil {
		labels = []string{}
	}
	return models.NodeDetail{
		ID:         node.ElementId,
		Labels:     labels,
		Attributes: toAttributes(node.Props),
	}
}

func toRelationshipDetail(rel neo4j.Relationship) models.RelationshipDetail {
	return models.RelationshipDetail{
		Type:       rel.Type,
		Attributes: toAttributes(rel.Props),
	}
}

// toNeighborhoodEntry maps one `n, r, m` row of a neighborhood query.
func toNeighborhoodEntry(record *neo4j.Record) (models.NeighborhoodEntry, error) {
	var (
		entry models.NeighborhoodEntry
		seen  int
	)

	// Use a type switch over the returned values, keyed by column name.
	for i, key := range record.Keys {
		switch v := record.Values[i].(type) {
		case neo4j.Node:
			switch key {
			case "n":
				entry.Node = toNodeDetail(v)
				seen++
			case "m":
				entry.TargetNode = toNodeDetail(v)
				seen++
			}
		case neo4j.Relationship:
			if key == "r" {
				entry.Relationship = toRelationshipDetail(v)
				seen++
			}
		}
	}

	if seen != 3 {
		return models.NeighborhoodEntry{}, fmt.Errorf("neighborhood row is missing node, relationship or target node (keys %v)", record.Keys)
	}
	return entry, nil
}

// nodeFromRecord extracts the node returned under key.
func nodeFromRecord(record *neo4j.Record, key string) (neo4j.Node, error) {
	value, ok := record.Get(key)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("return value '%s' is not a node", key)
	}
	return node, nil
}

func toAttributes(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for key, value := range props {
		out[key] = transportValue(value)
	}
	return out
}

// transportValue converts driver-specific property values into types that
// encode cleanly as JSON. Temporal values become ISO-8601 strings and points
// become coordinate maps.
func transportValue(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = transportValue(elem)
		}
		return out
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case dbtype.Date:
		return time.Time(v).Format("2006-01-02")
	case dbtype.LocalTime:
		return time.Time(v).Format("15:04:05.999999999")
	case dbtype.Time:
		return time.Time(v).Format("15:04:05.999999999Z07:00")
	case dbtype.LocalDateTime:
		return time.Time(v).Format("2006-01-02T15:04:05.999999999")
	case dbtype.Duration:
		return v.String()
	case dbtype.Point2D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y}
	case dbtype.Point3D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y, "z": v.Z}
	}
	return value
}
