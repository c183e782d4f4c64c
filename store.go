package neotype

import (
	"context"
	"fmt"
)

// Store is the query interface to the underlying property graph database.
// The core emits parameterized clause requests through it and receives back
// rows of primitives and node/relationship handles; everything else about
// the transport (pooling, retries, the wire protocol) lives behind it.
type Store interface {
	// Name returns the store backend identifier (e.g., "neo4j").
	Name() string

	// Execute runs a query with parameters and returns the result rows.
	// Values in a row are primitives (string, int64, float64, bool, nested
	// []any) or Node/Rel handles.
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	// Close releases any resources held by the store.
	Close() error
}

// StoreTransaction represents an active transaction. Queries executed
// through it are isolated until Commit or Rollback.
type StoreTransaction interface {
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionalStore is an optional interface for stores that support
// explicit transactions.
type TransactionalStore interface {
	Store

	Begin(ctx context.Context) (StoreTransaction, error)
}

// Node is a handle to a persisted graph node.
type Node struct {
	ElementID string
	Labels    []string
	Props     map[string]any
}

// Rel is a handle to a persisted graph relationship.
type Rel struct {
	ElementID      string
	Type           string
	StartElementID string
	EndElementID   string
	Props          map[string]any
}

// StoreFactory creates a Store from backend-specific configuration.
type StoreFactory func(cfg any) (Store, error)

var stores = make(map[string]StoreFactory)

// RegisterStore registers a store factory by name. Store adapters call this
// from an init function so that importing the adapter package is enough to
// make the backend available.
func RegisterStore(name string, factory StoreFactory) {
	stores[name] = factory
}

// NewStore creates a store instance by backend name.
func NewStore(name string, cfg any) (Store, error) {
	factory, ok := stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}

	return factory(cfg)
}

// RegisteredStores returns the names of all registered store backends.
func RegisteredStores() []string {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}

	return names
}
