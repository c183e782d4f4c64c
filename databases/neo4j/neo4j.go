// Package neo4j provides a neotype Store implementation for Neo4j.
package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/rlch/neotype"
)

// ErrInvalidConfig is returned when an invalid configuration is provided.
var ErrInvalidConfig = errors.New("neo4j: expected *neotype.Neo4jConfig")

//nolint:gochecknoinits // Store self-registration pattern
func init() {
	neotype.RegisterStore(neotype.StoreNeo4j, func(cfg any) (neotype.Store, error) {
		neo4jCfg, ok := cfg.(*neotype.Neo4jConfig)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", ErrInvalidConfig, cfg)
		}

		return New(neo4jCfg)
	})
}

// Store implements neotype.Store and neotype.TransactionalStore for Neo4j.
type Store struct {
	driver  neo4j.DriverWithContext
	session neo4j.SessionWithContext
	db      string
}

// New creates a new Neo4j store connection from the given configuration.
func New(cfg *neotype.Neo4jConfig) (*Store, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	s := &Store{
		driver: driver,
		db:     cfg.Database,
	}

	// Verify connectivity
	ctx := context.Background()

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("neo4j: failed to connect: %w", err)
	}

	sessionCfg := neo4j.SessionConfig{
		AccessMode: neo4j.AccessModeWrite,
	}
	if s.db != "" {
		sessionCfg.DatabaseName = s.db
	}

	s.session = driver.NewSession(ctx, sessionCfg)

	return s, nil
}

// Name returns the store identifier.
func (s *Store) Name() string {
	return neotype.StoreNeo4j
}

// Execute runs a Cypher query and returns the result rows. Record values
// convert to neotype handles: nodes and relationships keep their labels,
// type and element IDs so the type layer can resolve runtime types without
// touching the driver. Parameter strings pass through the driver untouched,
// non-ASCII included. Failures surface as neotype.TransportError.
func (s *Store) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := s.session.Run(ctx, query, params)
	if err != nil {
		return nil, &neotype.TransportError{Op: "run", Err: err}
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, &neotype.TransportError{Op: "collect", Err: err}
	}

	rows := make([]map[string]any, len(records))
	for i, record := range records {
		rows[i] = convertRecord(record.Keys, record.Values)
	}

	return rows, nil
}

// Close releases the store connection.
func (s *Store) Close() error {
	ctx := context.Background()

	if s.session != nil {
		err := s.session.Close(ctx)
		if err != nil {
			return fmt.Errorf("neo4j: failed to close session: %w", err)
		}
	}

	if s.driver != nil {
		err := s.driver.Close(ctx)
		if err != nil {
			return fmt.Errorf("neo4j: failed to close driver: %w", err)
		}
	}

	return nil
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (neotype.StoreTransaction, error) {
	tx, err := s.session.BeginTransaction(ctx)
	if err != nil {
		return nil, &neotype.TransportError{Op: "begin", Err: err}
	}

	return &Transaction{tx: tx}, nil
}

// Transaction wraps a Neo4j transaction to implement
// neotype.StoreTransaction.
type Transaction struct {
	tx neo4j.ExplicitTransaction
}

// Execute runs a Cypher query within this transaction.
func (t *Transaction) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, &neotype.TransportError{Op: "run", Err: err}
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, &neotype.TransportError{Op: "collect", Err: err}
	}

	rows := make([]map[string]any, len(records))
	for i, record := range records {
		rows[i] = convertRecord(record.Keys, record.Values)
	}

	return rows, nil
}

// Commit commits the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &neotype.TransportError{Op: "commit", Err: err}
	}

	return nil
}

// Rollback aborts the transaction.
func (t *Transaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return &neotype.TransportError{Op: "rollback", Err: err}
	}

	return nil
}

// convertRecord converts a Neo4j record into a row keyed by the record keys.
func convertRecord(keys []string, values []any) map[string]any {
	row := make(map[string]any, len(keys))

	for i, key := range keys {
		row[key] = convertValue(values[i])
	}

	return row
}

// convertValue maps driver values onto neotype handles and primitives.
func convertValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return neotype.Node{
			ElementID: v.ElementId,
			Labels:    v.Labels,
			Props:     v.Props,
		}

	case dbtype.Relationship:
		return neotype.Rel{
			ElementID:      v.ElementId,
			Type:           v.Type,
			StartElementID: v.StartElementId,
			EndElementID:   v.EndElementId,
			Props:          v.Props,
		}

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = convertValue(elem)
		}

		return out

	default:
		return v
	}
}

// Compile-time interface checks.
var (
	_ neotype.Store              = (*Store)(nil)
	_ neotype.TransactionalStore = (*Store)(nil)
	_ neotype.StoreTransaction   = (*Transaction)(nil)
)
