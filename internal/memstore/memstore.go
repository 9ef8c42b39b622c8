// Package memstore is an in-memory graph with the same contract as
// neograph.GraphStore. It backs service and handler tests that need a working
// store without a database.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/saulfrancisco-ruizacevedo/go-neograph"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

type node struct {
	id     string
	labels []string
	props  map[string]any
}

type edge struct {
	from, to string
	relType  string
	attrs    map[string]any
}

// Store holds nodes and edges in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	nextID  int
	order   []string
	nodes   map[string]*node
	edges   []edge
	relType string
	labels  neograph.LabelSet

	// Err, when set, is returned by every operation before it touches state.
	Err error
}

// New returns an empty Store whose edges use neograph.DefaultRelationshipType.
// Labels are checked the way neograph.GraphStore checks them, including the
// optional allow-list.
func New(allowedLabels ...string) *Store {
	return &Store{
		nodes:   make(map[string]*node),
		relType: neograph.DefaultRelationshipType,
		labels:  neograph.NewLabelSet(allowedLabels...),
	}
}

// ListNodes returns nodes in creation order.
func (s *Store) ListNodes(_ context.Context) ([]models.NodeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]models.NodeSummary, 0, len(s.order))
	for _, id := range s.order {
		n := s.nodes[id]
		label := ""
		if len(n.labels) > 0 {
			label = n.labels[0]
		}
		out = append(out, models.NodeSummary{ID: id, Label: label})
	}
	return out, nil
}

// GetNeighborhood returns one entry per incident edge, in either direction.
func (s *Store) GetNeighborhood(_ context.Context, id string) ([]models.NeighborhoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]models.NeighborhoodEntry, 0)
	for _, e := range s.edges {
		if e.from == id {
			out = append(out, s.entry(id, e, e.to))
		}
		if e.to == id {
			out = append(out, s.entry(id, e, e.from))
		}
	}
	return out, nil
}

// CreateNodeWithRelationships validates the request, then adds the node and its
// edges only if every target exists.
func (s *Store) CreateNodeWithRelationships(_ context.Context, label string, properties map[string]any, relationships []models.RelationshipSpec) (string, error) {
	if err := s.labels.Check(label); err != nil {
		return "", err
	}
	props, err := neograph.NormalizeProperties(properties)
	if err != nil {
		return "", err
	}
	attrs := make([]map[string]any, len(relationships))
	for i, spec := range relationships {
		if spec.TargetID == "" {
			return "", fmt.Errorf("%w: relationship %d has an empty target_id", neograph.ErrInvalidProperties, i)
		}
		if attrs[i], err = neograph.NormalizeProperties(spec.Attributes); err != nil {
			return "", fmt.Errorf("relationship %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}

	// Resolve every target before mutating, so a failure leaves no trace.
	for i, spec := range relationships {
		if _, ok := s.nodes[spec.TargetID]; !ok {
			return "", &neograph.TargetNotFoundError{Index: i, TargetID: spec.TargetID}
		}
	}

	s.nextID++
	id := fmt.Sprintf("mem:%d", s.nextID)
	s.nodes[id] = &node{id: id, labels: []string{label}, props: props}
	s.order = append(s.order, id)
	for i, spec := range relationships {
		s.edges = append(s.edges, edge{from: id, to: spec.TargetID, relType: s.relType, attrs: attrs[i]})
	}
	return id, nil
}

// DeleteNode removes the node and its edges. Unknown ids are a no-op.
func (s *Store) DeleteNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.nodes[id]; !ok {
		return nil
	}

	delete(s.nodes, id)
	for i, nid := range s.order {
		if nid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.from != id && e.to != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return nil
}

// Verify reports Err, mirroring a connectivity check.
func (s *Store) Verify(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Err
}

// Len returns the number of nodes currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) entry(id string, e edge, otherID string) models.NeighborhoodEntry {
	return models.NeighborhoodEntry{
		Node:         s.detail(id),
		Relationship: models.RelationshipDetail{Type: e.relType, Attributes: maps.Clone(e.attrs)},
		TargetNode:   s.detail(otherID),
	}
}

func (s *Store) detail(id string) models.NodeDetail {
	n := s.nodes[id]
	return models.NodeDetail{
		ID:         n.id,
		Labels:     append([]string{}, n.labels...),
		Attributes: maps.Clone(n.props),
	}
}
