package neograph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

func newTestStore(t *testing.T, runner DBRunner, opts ...StoreOption) *GraphStore {
	t.Helper()
	store, err := NewGraphStore(runner, opts...)
	require.NoError(t, err)
	return store
}

func TestNewGraphStore(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		store := newTestStore(t, newFakeRunner())
		assert.Equal(t, DefaultRelationshipType, store.RelationshipType())
		assert.Contains(t, store.relationshipQuery, "[r:RELATIONSHIP_TYPE]")
	})

	t.Run("custom relationship type", func(t *testing.T) {
		store := newTestStore(t, newFakeRunner(), WithRelationshipType("KNOWS"))
		assert.Equal(t, "KNOWS", store.RelationshipType())
		assert.Contains(t, store.relationshipQuery, "[r:KNOWS]")
	})

	t.Run("rejects relationship type that is not an identifier", func(t *testing.T) {
		_, err := NewGraphStore(newFakeRunner(), WithRelationshipType("KNOWS]->(x) DELETE x //"))
		require.Error(t, err)
	})

	t.Run("rejects malformed allowed label", func(t *testing.T) {
		_, err := NewGraphStore(newFakeRunner(), WithAllowedLabels("User", "Bad Label"))
		require.Error(t, err)
	})
}

func TestGraphStore_ListNodes(t *testing.T) {
	t.Run("projects each node onto its first label", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Records: []*neo4j.Record{
			nodeRecord("n", neo4j.Node{ElementId: "4:db:1", Labels: []string{"User", "Person"}}),
			nodeRecord("n", neo4j.Node{ElementId: "4:db:2", Labels: []string{"Post"}}),
			nodeRecord("n", neo4j.Node{ElementId: "4:db:3"}),
		}})
		store := newTestStore(t, runner)

		nodes, err := store.ListNodes(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []models.NodeSummary{
			{ID: "4:db:1", Label: "User"},
			{ID: "4:db:2", Label: "Post"},
			{ID: "4:db:3", Label: ""},
		}, nodes)
		assert.Equal(t, 1, runner.reads)
		assert.Equal(t, 0, runner.writes)
	})

	t.Run("empty store yields empty slice", func(t *testing.T) {
		store := newTestStore(t, newFakeRunner(scriptedResult{}))

		nodes, err := store.ListNodes(context.Background())

		require.NoError(t, err)
		require.NotNil(t, nodes)
		assert.Empty(t, nodes)
	})

	t.Run("transient failure is reported as unavailable", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Err: &neo4j.Neo4jError{
			Code: "Neo.TransientError.General.DatabaseUnavailable",
			Msg:  "database unavailable",
		}})
		store := newTestStore(t, runner)

		_, err := store.ListNodes(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("failure to begin the transaction is reported as unavailable", func(t *testing.T) {
		runner := newFakeRunner()
		runner.beginErr = context.DeadlineExceeded
		store := newTestStore(t, runner)

		_, err := store.ListNodes(context.Background())

		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestGraphStore_GetNeighborhood(t *testing.T) {
	alice := neo4j.Node{ElementId: "4:db:1", Labels: []string{"User"}, Props: map[string]any{"name": "Alice", "age": int64(25)}}
	bob := neo4j.Node{ElementId: "4:db:2", Labels: []string{"User"}, Props: map[string]any{"name": "Bob"}}
	rel := neo4j.Relationship{
		ElementId:      "5:db:9",
		StartElementId: alice.ElementId,
		EndElementId:   bob.ElementId,
		Type:           "RELATIONSHIP_TYPE",
		Props:          map[string]any{"since": "2024"},
	}

	t.Run("maps each incident edge", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Records: []*neo4j.Record{neighborhoodRecord(alice, rel, bob)}})
		store := newTestStore(t, runner)

		entries, err := store.GetNeighborhood(context.Background(), alice.ElementId)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.NeighborhoodEntry{
			Node: models.NodeDetail{
				ID:         "4:db:1",
				Labels:     []string{"User"},
				Attributes: map[string]any{"name": "Alice", "age": int64(25)},
			},
			Relationship: models.RelationshipDetail{
				Type:       "RELATIONSHIP_TYPE",
				Attributes: map[string]any{"since": "2024"},
			},
			TargetNode: models.NodeDetail{
				ID:         "4:db:2",
				Labels:     []string{"User"},
				Attributes: map[string]any{"name": "Bob"},
			},
		}, entries[0])

		require.Len(t, runner.queries, 1)
		assert.Equal(t, neighborhoodQuery, runner.queries[0].Query)
		assert.Equal(t, map[string]any{"id": "4:db:1"}, runner.queries[0].Params)
	})

	t.Run("unknown id yields empty result, not an error", func(t *testing.T) {
		store := newTestStore(t, newFakeRunner(scriptedResult{}))

		entries, err := store.GetNeighborhood(context.Background(), "4:db:404")

		require.NoError(t, err)
		require.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("malformed row is an error", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Records: []*neo4j.Record{
			{Keys: []string{"n", "m"}, Values: []any{alice, bob}},
		}})
		store := newTestStore(t, runner)

		_, err := store.GetNeighborhood(context.Background(), alice.ElementId)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestGraphStore_CreateNodeWithRelationships(t *testing.T) {
	created := neo4j.Node{
		ElementId: "4:db:100",
		Labels:    []string{"User"},
		Props:     map[string]any{"name": "Alice", "age": int64(25)},
	}

	t.Run("node without relationships", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Records: []*neo4j.Record{nodeRecord("n", created)}})
		store := newTestStore(t, runner)

		id, err := store.CreateNodeWithRelationships(context.Background(), "User",
			map[string]any{"name": "Alice", "age": 25}, nil)

		require.NoError(t, err)
		assert.Equal(t, "4:db:100", id)
		assert.Equal(t, 1, runner.writes)
		assert.Equal(t, 1, runner.commits)
		assert.Equal(t, 0, runner.rollbacks)
		require.Len(t, runner.queries, 1)
		assert.Contains(t, runner.queries[0].Query, "User")
		assert.NotContains(t, runner.queries[0].Query, "Alice", "property values must travel as parameters")
	})

	t.Run("edges are created in input order inside the same transaction", func(t *testing.T) {
		runner := newFakeRunner(
			scriptedResult{Records: []*neo4j.Record{nodeRecord("n", created)}},
			scriptedResult{Records: []*neo4j.Record{relIDRecord("5:db:1")}},
			scriptedResult{Records: []*neo4j.Record{relIDRecord("5:db:2")}},
		)
		store := newTestStore(t, runner)

		id, err := store.CreateNodeWithRelationships(context.Background(), "User", nil, []models.RelationshipSpec{
			{TargetID: "4:db:2", Attributes: map[string]any{"since": "2024"}},
			{TargetID: "4:db:3"},
		})

		require.NoError(t, err)
		assert.Equal(t, "4:db:100", id)
		assert.Equal(t, 1, runner.writes)
		assert.Equal(t, 1, runner.commits)

		require.Len(t, runner.queries, 3)
		assert.Equal(t, store.relationshipQuery, runner.queries[1].Query)
		assert.Equal(t, map[string]any{
			"nodeId":     "4:db:100",
			"targetId":   "4:db:2",
			"attributes": map[string]any{"since": "2024"},
		}, runner.queries[1].Params)
		assert.Equal(t, map[string]any{
			"nodeId":     "4:db:100",
			"targetId":   "4:db:3",
			"attributes": map[string]any{},
		}, runner.queries[2].Params)
	})

	t.Run("missing target rolls back the whole unit", func(t *testing.T) {
		runner := newFakeRunner(
			scriptedResult{Records: []*neo4j.Record{nodeRecord("n", created)}},
			scriptedResult{Records: []*neo4j.Record{relIDRecord("5:db:1")}},
			scriptedResult{},
		)
		store := newTestStore(t, runner)

		id, err := store.CreateNodeWithRelationships(context.Background(), "User",
			map[string]any{"name": "Alice"}, []models.RelationshipSpec{
				{TargetID: "4:db:2"},
				{TargetID: "4:db:missing"},
			})

		require.Error(t, err)
		assert.Empty(t, id)
		assert.ErrorIs(t, err, ErrTargetNotFound)

		var targetErr *TargetNotFoundError
		require.True(t, errors.As(err, &targetErr))
		assert.Equal(t, 1, targetErr.Index)
		assert.Equal(t, "4:db:missing", targetErr.TargetID)

		assert.Equal(t, 0, runner.commits)
		assert.Equal(t, 1, runner.rollbacks)
	})

	t.Run("store error during edge creation rolls back", func(t *testing.T) {
		runner := newFakeRunner(
			scriptedResult{Records: []*neo4j.Record{nodeRecord("n", created)}},
			scriptedResult{Err: &neo4j.Neo4jError{Code: codeConstraintViolation, Msg: "already exists"}},
		)
		store := newTestStore(t, runner)

		_, err := store.CreateNodeWithRelationships(context.Background(), "User", nil,
			[]models.RelationshipSpec{{TargetID: "4:db:2"}})

		assert.ErrorIs(t, err, ErrConstraintViolation)
		assert.Equal(t, 0, runner.commits)
		assert.Equal(t, 1, runner.rollbacks)
	})

	t.Run("invalid labels never reach the store", func(t *testing.T) {
		for _, label := range []string{
			"",
			"1User",
			"User Name",
			"User) DETACH DELETE n //",
			"User`",
			strings.Repeat("A", maxIdentifierLength+1),
		} {
			runner := newFakeRunner()
			store := newTestStore(t, runner)

			_, err := store.CreateNodeWithRelationships(context.Background(), label, nil, nil)

			assert.ErrorIs(t, err, ErrInvalidLabel, "label %q", label)
			assert.Equal(t, 0, runner.writes, "label %q", label)
		}
	})

	t.Run("allow-list restricts labels", func(t *testing.T) {
		runner := newFakeRunner()
		store := newTestStore(t, runner, WithAllowedLabels("User", "Post"))

		_, err := store.CreateNodeWithRelationships(context.Background(), "Admin", nil, nil)

		assert.ErrorIs(t, err, ErrInvalidLabel)
		assert.Equal(t, 0, runner.writes)
	})

	t.Run("invalid properties never reach the store", func(t *testing.T) {
		cases := map[string]struct {
			props map[string]any
			rels  []models.RelationshipSpec
		}{
			"nested map":            {props: map[string]any{"address": map[string]any{"city": "Paris"}}},
			"null value":            {props: map[string]any{"name": nil}},
			"mixed list":            {props: map[string]any{"tags": []any{"a", 1}}},
			"empty key":             {props: map[string]any{"": "x"}},
			"key closing pattern":   {props: map[string]any{"x: 1}) WITH n MATCH (z) DETACH DELETE z RETURN n //": "v"}},
			"key with space":        {props: map[string]any{"first name": "Alice"}},
			"key with dash":         {props: map[string]any{"e-mail": "a@example.com"}},
			"oversized integer":     {props: map[string]any{"big": json.Number("100000000000000000000")}},
			"empty target id":       {rels: []models.RelationshipSpec{{TargetID: " "}}},
			"nested edge attribute": {rels: []models.RelationshipSpec{{TargetID: "4:db:2", Attributes: map[string]any{"x": []any{[]any{1}}}}}},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				runner := newFakeRunner()
				store := newTestStore(t, runner)

				_, err := store.CreateNodeWithRelationships(context.Background(), "User", tc.props, tc.rels)

				assert.ErrorIs(t, err, ErrInvalidProperties)
				assert.Equal(t, 0, runner.writes)
				assert.Empty(t, runner.queries)
			})
		}
	})
}

func TestGraphStore_DeleteNode(t *testing.T) {
	t.Run("detaches and deletes by element id", func(t *testing.T) {
		runner := newFakeRunner()
		store := newTestStore(t, runner)

		err := store.DeleteNode(context.Background(), "4:db:1")

		require.NoError(t, err)
		require.Len(t, runner.queries, 1)
		assert.Equal(t, deleteNodeQuery, runner.queries[0].Query)
		assert.Equal(t, map[string]any{"id": "4:db:1"}, runner.queries[0].Params)
		assert.Equal(t, 1, runner.commits)
	})

	t.Run("deleting twice succeeds both times", func(t *testing.T) {
		runner := newFakeRunner()
		store := newTestStore(t, runner)

		require.NoError(t, store.DeleteNode(context.Background(), "4:db:1"))
		require.NoError(t, store.DeleteNode(context.Background(), "4:db:1"))
		assert.Equal(t, 2, runner.commits)
	})

	t.Run("transient failure is reported as unavailable", func(t *testing.T) {
		runner := newFakeRunner(scriptedResult{Err: &neo4j.Neo4jError{Code: "Neo.TransientError.Transaction.DeadlockDetected"}})
		store := newTestStore(t, runner)

		err := store.DeleteNode(context.Background(), "4:db:1")

		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 1, runner.rollbacks)
	})
}

func TestGraphStore_Verify(t *testing.T) {
	runner := newFakeRunner()
	store := newTestStore(t, runner)
	require.NoError(t, store.Verify(context.Background()))

	runner.verifyErr = context.DeadlineExceeded
	assert.ErrorIs(t, store.Verify(context.Background()), ErrStoreUnavailable)
}
