// Package models contains the flat, transport-safe records exchanged by the
// graph store and the HTTP API. Every struct here serializes directly to JSON.
package models

// NodeSummary is the single-label view of a node produced by listing.
type NodeSummary struct {
	// ID is the store-assigned element id of the node.
	ID string `json:"id"`

	// Label is the node's first label, or "" when the node carries none.
	// Nodes with several labels are projected onto the first one.
	Label string `json:"label"`
}

// NodeDetail is a full node as it appears inside a neighborhood record.
type NodeDetail struct {
	// ID is the store-assigned element id of the node.
	ID string `json:"id"`

	// Labels holds every label attached to the node (e.g., ["User", "Person"]).
	Labels []string `json:"labels"`

	// Attributes holds the node's properties, converted to JSON-friendly values.
	Attributes map[string]any `json:"attributes"`
}

// RelationshipDetail is one edge seen from either endpoint; direction is not exposed.
type RelationshipDetail struct {
	// Type is the relationship's type (e.g., "RELATIONSHIP_TYPE").
	Type string `json:"type"`

	// Attributes holds the relationship's properties.
	Attributes map[string]any `json:"attributes"`
}

// NeighborhoodEntry pairs a queried node with one incident edge and the node
// on the other end of that edge.
type NeighborhoodEntry struct {
	Node         NodeDetail         `json:"node"`
	Relationship RelationshipDetail `json:"relationship"`
	TargetNode   NodeDetail         `json:"target_node"`
}

// RelationshipSpec declares one edge from a node being created to an existing node.
type RelationshipSpec struct {
	// TargetID is the element id of an existing node. Targets are never created implicitly.
	TargetID string `json:"target_id" validate:"required"`

	// Attributes are stored on the created edge.
	Attributes map[string]any `json:"attributes"`
}

// NodeCreateRequest describes a node and the edges that must be created with it
// in the same transaction.
type NodeCreateRequest struct {
	Label         string             `json:"label" validate:"required"`
	Properties    map[string]any     `json:"properties"`
	Relationships []RelationshipSpec `json:"relationships" validate:"dive"`
}
