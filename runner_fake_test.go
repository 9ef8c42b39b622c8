package neograph

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// recordedQuery is one Run call observed by fakeRunner.
type recordedQuery struct {
	Query  string
	Params map[string]any
}

// scriptedResult is returned by the next Run call.
type scriptedResult struct {
	Records []*neo4j.Record
	Err     error
}

// fakeRunner is a DBRunner that answers Run calls from a script and tracks
// transaction outcomes.
type fakeRunner struct {
	mu sync.Mutex

	script    []scriptedResult
	queries   []recordedQuery
	reads     int
	writes    int
	commits   int
	rollbacks int

	beginErr  error
	verifyErr error
}

func newFakeRunner(script ...scriptedResult) *fakeRunner {
	return &fakeRunner{script: script}
}

func (f *fakeRunner) ExecuteRead(ctx context.Context, work TxFunc) error {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	return f.execute(ctx, work)
}

func (f *fakeRunner) ExecuteWrite(ctx context.Context, work TxFunc) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.execute(ctx, work)
}

func (f *fakeRunner) execute(ctx context.Context, work TxFunc) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	err := work(ctx, f)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeRunner) Run(_ context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, recordedQuery{Query: query, Params: params})
	if len(f.script) == 0 {
		return nil, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.Records, next.Err
}

func (f *fakeRunner) Verify(context.Context) error {
	return f.verifyErr
}

func nodeRecord(key string, node neo4j.Node) *neo4j.Record {
	return &neo4j.Record{Keys: []string{key}, Values: []any{node}}
}

func relIDRecord(id string) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"id"}, Values: []any{id}}
}

func neighborhoodRecord(n neo4j.Node, r neo4j.Relationship, m neo4j.Node) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"n", "r", "m"}, Values: []any{n, r, m}}
}
