package neograph

import (
	"context"
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// DefaultRelationshipType is the type given to every edge created alongside a node.
const DefaultRelationshipType = "RELATIONSHIP_TYPE"

// Queries addressing nodes by identity. Nodes are always addressed by their
// store-assigned element id, never by a user property.
const (
	neighborhoodQuery = `MATCH (n)-[r]-(m) WHERE elementId(n) = $id RETURN n, r, m`
	deleteNodeQuery   = `MATCH (n) WHERE elementId(n) = $id DETACH DELETE n`

	// relationshipQueryTemplate takes the validated relationship type.
	relationshipQueryTemplate = `MATCH (n), (m) WHERE elementId(n) = $nodeId AND elementId(m) = $targetId ` +
		`CREATE (n)-[r:%s]->(m) SET r = $attributes RETURN elementId(r) AS id`
)

// GraphStore maps the four record operations onto store transactions.
// It holds no state between calls apart from the runner, so a single instance
// is safe for concurrent use.
type GraphStore struct {
	runner            DBRunner
	relType           string
	allowedLabels     LabelSet
	relationshipQuery string
}

// StoreOption configures a GraphStore.
type StoreOption func(*GraphStore)

// WithRelationshipType overrides DefaultRelationshipType.
func WithRelationshipType(relType string) StoreOption {
	return func(s *GraphStore) { s.relType = relType }
}

// WithAllowedLabels restricts node creation to the given labels. With no
// allow-list any well-formed label is accepted.
func WithAllowedLabels(labels ...string) StoreOption {
	return func(s *GraphStore) {
		s.allowedLabels = NewLabelSet(labels...)
	}
}

// NewGraphStore creates a GraphStore on top of runner.
//
// Parameters:
//   - runner: The transactional executor, usually a *Neo4jExecutor.
//   - opts: Relationship type and label allow-list settings.
//
// Returns:
//
//	The store, or an error when the relationship type or an allowed label is not
//	a plain identifier.
func NewGraphStore(runner DBRunner, opts ...StoreOption) (*GraphStore, error) {
	s := &GraphStore{runner: runner, relType: DefaultRelationshipType}
	for _, opt := range opts {
		opt(s)
	}

	if !ValidIdentifier(s.relType) {
		return nil, fmt.Errorf("relationship type %q is not a valid identifier", s.relType)
	}
	for label := range s.allowedLabels {
		if !ValidIdentifier(label) {
			return nil, fmt.Errorf("allowed label %q is not a valid identifier", label)
		}
	}

	s.relationshipQuery = fmt.Sprintf(relationshipQueryTemplate, s.relType)
	return s, nil
}

// RelationshipType returns the type used for created edges.
func (s *GraphStore) RelationshipType() string {
	return s.relType
}

// ListNodes returns one summary per node in the store, in no particular order.
// An empty store yields an empty, non-nil slice.
func (s *GraphStore) ListNodes(ctx context.Context) ([]models.NodeSummary, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", "")).
		Return("n").
		Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	nodes := make([]models.NodeSummary, 0)
	err = s.runner.ExecuteRead(ctx, func(ctx context.Context, tx Tx) error {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return err
		}
		nodes = nodes[:0]
		for _, record := range records {
			node, err := nodeFromRecord(record, "n")
			if err != nil {
				return err
			}
			nodes = append(nodes, toNodeSummary(node))
		}
		return nil
	})
	if err != nil {
		return nil, classify("list nodes", err)
	}
	return nodes, nil
}

// GetNeighborhood returns one entry per edge incident to the node with the given
// element id, in either direction, together with the node on the other end.
//
// An id that matches no node is not an error: the result is simply empty.
func (s *GraphStore) GetNeighborhood(ctx context.Context, id string) ([]models.NeighborhoodEntry, error) {
	entries := make([]models.NeighborhoodEntry, 0)
	err := s.runner.ExecuteRead(ctx, func(ctx context.Context, tx Tx) error {
		records, err := tx.Run(ctx, neighborhoodQuery, map[string]any{"id": id})
		if err != nil {
			return err
		}
		entries = entries[:0]
		for _, record := range records {
			entry, err := toNeighborhoodEntry(record)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, classify("get neighborhood", err)
	}
	return entries, nil
}

// CreateNodeWithRelationships creates a node and one edge per relationship spec
// inside a single write transaction.
//
// The node is created first; each spec then resolves its target by element id
// and creates an edge of the store's relationship type carrying the spec's
// attributes. If any step fails nothing is committed.
//
// Parameters:
//   - ctx: The context for the transaction.
//   - label: The node label. It must be a plain identifier and, when an
//     allow-list is configured, one of the allowed labels.
//   - properties: The node's properties (scalars or homogeneous lists of scalars).
//   - relationships: Edges to existing nodes, created in input order.
//
// Returns:
//
//	The element id of the created node, or ErrInvalidLabel, ErrInvalidProperties,
//	a *TargetNotFoundError, ErrConstraintViolation or ErrStoreUnavailable.
func (s *GraphStore) CreateNodeWithRelationships(ctx context.Context, label string, properties map[string]any, relationships []models.RelationshipSpec) (string, error) {
	// 1. Validate everything before touching the store.
	if err := s.allowedLabels.Check(label); err != nil {
		return "", err
	}
	props, err := NormalizeProperties(properties)
	if err != nil {
		return "", err
	}
	specs, err := normalizeRelationships(relationships)
	if err != nil {
		return "", err
	}

	// 2. Build the node query. The label is spliced into the pattern only after
	// passing validation; property values always travel as parameters.
	createQuery, createParams, err := gocypher.NewQueryBuilder().
		Create(gocypher.N("n", label).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return "", fmt.Errorf("could not build query: %w", err)
	}

	// 3. Run node and edge creation as one unit of work.
	var nodeID string
	err = s.runner.ExecuteWrite(ctx, func(ctx context.Context, tx Tx) error {
		records, err := tx.Run(ctx, createQuery, createParams)
		if err != nil {
			return fmt.Errorf("create node: %w", err)
		}
		if len(records) != 1 {
			return fmt.Errorf("create node: expected 1 record but found %d", len(records))
		}
		node, err := nodeFromRecord(records[0], "n")
		if err != nil {
			return err
		}
		nodeID = node.ElementId

		for i, spec := range specs {
			records, err := tx.Run(ctx, s.relationshipQuery, map[string]any{
				"nodeId":     nodeID,
				"targetId":   spec.TargetID,
				"attributes": spec.Attributes,
			})
			if err != nil {
				return fmt.Errorf("relationship %d: %w", i, err)
			}
			if len(records) == 0 {
				return &TargetNotFoundError{Index: i, TargetID: spec.TargetID}
			}
		}
		return nil
	})
	if err != nil {
		return "", classify("create node", err)
	}
	return nodeID, nil
}

// DeleteNode removes the node with the given element id and every edge attached
// to it in one write transaction. Deleting an id that matches nothing succeeds.
func (s *GraphStore) DeleteNode(ctx context.Context, id string) error {
	err := s.runner.ExecuteWrite(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Run(ctx, deleteNodeQuery, map[string]any{"id": id})
		return err
	})
	return classify("delete node", err)
}

// Verify checks connectivity when the runner supports it.
func (s *GraphStore) Verify(ctx context.Context) error {
	v, ok := s.runner.(interface{ Verify(context.Context) error })
	if !ok {
		return nil
	}
	return classify("verify connectivity", v.Verify(ctx))
}
