// Package neograph exposes a Neo4j property graph through a small set of
// record-oriented operations built on top of the official Neo4j Go driver.
package neograph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Tx is the query surface available inside a transaction. Results are fully
// buffered before Run returns.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)
}

// TxFunc is a unit of work executed inside a single transaction. Returning a
// non-nil error rolls the transaction back.
type TxFunc func(ctx context.Context, tx Tx) error

// DBRunner defines the transactional executor used by GraphStore.
// It abstracts the driver so tests can substitute a scripted implementation.
type DBRunner interface {
	// ExecuteRead runs work inside one read transaction.
	ExecuteRead(ctx context.Context, work TxFunc) error
	// ExecuteWrite runs work inside one write transaction. The transaction is
	// committed only when work returns nil; otherwise it is rolled back.
	ExecuteWrite(ctx context.Context, work TxFunc) error
}

//---

// Neo4jExecutor is a concrete implementation of the DBRunner interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
//
// Transactions are explicit: the executor never retries a failed unit of work, so
// a caller that sees ErrStoreUnavailable decides on its own whether to try again.
type Neo4jExecutor struct {
	Driver    neo4j.DriverWithContext
	DBName    string
	TxTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// ExecutorOption customizes the driver and transactions created by NewNeo4jExecutor.
type ExecutorOption func(*executorSettings)

type executorSettings struct {
	txTimeout      time.Duration
	connectTimeout time.Duration
	maxPoolSize    int
}

// WithTxTimeout bounds every transaction on the server side.
func WithTxTimeout(d time.Duration) ExecutorOption {
	return func(s *executorSettings) { s.txTimeout = d }
}

// WithConnectTimeout bounds connection establishment and pool acquisition.
func WithConnectTimeout(d time.Duration) ExecutorOption {
	return func(s *executorSettings) { s.connectTimeout = d }
}

// WithMaxPoolSize limits the number of pooled connections. Zero keeps the driver default.
func WithMaxPoolSize(n int) ExecutorOption {
	return func(s *executorSettings) { s.maxPoolSize = n }
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It creates the connection driver with the provided credentials; connectivity is
// not checked until Verify is called.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to. Empty selects the server default.
//   - opts: Optional driver and transaction settings.
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(uri, username, password, dbName string, opts ...ExecutorOption) (*Neo4jExecutor, error) {
	var settings executorSettings
	for _, opt := range opts {
		opt(&settings)
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(c *neo4j.Config) {
		if settings.maxPoolSize > 0 {
			c.MaxConnectionPoolSize = settings.maxPoolSize
		}
		if settings.connectTimeout > 0 {
			c.SocketConnectTimeout = settings.connectTimeout
			c.ConnectionAcquisitionTimeout = settings.connectTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName, TxTimeout: settings.txTimeout}, nil
}

// Verify checks the connectivity to the Neo4j server.
//
// Returns:
//
//	An error if the connection cannot be established.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver and every pooled connection. Only the first call
// reaches the driver; later calls return the same result.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closeErr = e.Driver.Close(ctx)
	})
	return e.closeErr
}

// ExecuteRead runs work in a read-mode session and transaction.
func (e *Neo4jExecutor) ExecuteRead(ctx context.Context, work TxFunc) error {
	return e.execute(ctx, neo4j.AccessModeRead, work)
}

// ExecuteWrite runs work in a write-mode session and transaction.
func (e *Neo4jExecutor) ExecuteWrite(ctx context.Context, work TxFunc) error {
	return e.execute(ctx, neo4j.AccessModeWrite, work)
}

func (e *Neo4jExecutor) execute(ctx context.Context, mode neo4j.AccessMode, work TxFunc) (err error) {
	session := e.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: e.DBName,
	})
	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil && err == nil {
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()

	var txConfig []func(*neo4j.TransactionConfig)
	if e.TxTimeout > 0 {
		txConfig = append(txConfig, neo4j.WithTxTimeout(e.TxTimeout))
	}

	tx, err := session.BeginTransaction(ctx, txConfig...)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := work(ctx, explicitTx{tx: tx}); err != nil {
		// The rollback runs on a fresh context so a cancelled request still
		// releases its server-side transaction.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// explicitTx adapts a driver transaction to Tx, buffering every record.
type explicitTx struct {
	tx neo4j.ExplicitTransaction
}

func (t explicitTx) Run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}
