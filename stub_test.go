package neotype_test

import (
	"context"
	"sync"

	"github.com/rlch/neotype"
)

// stubStore is an in-memory Store that records every query and replays
// scripted responses in order. Tests use the call log to assert round-trip
// counts and emitted clauses.
type stubStore struct {
	mu    sync.Mutex
	calls []stubCall
	queue []stubResponse

	// respond, when set, overrides the queue.
	respond func(query string, params map[string]any) ([]map[string]any, error)
}

type stubCall struct {
	query  string
	params map[string]any
}

type stubResponse struct {
	rows []map[string]any
	err  error
}

func (s *stubStore) Name() string { return "stub" }

func (s *stubStore) Close() error { return nil }

func (s *stubStore) Execute(_ context.Context, query string, params map[string]any) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, stubCall{query: query, params: params})

	if s.respond != nil {
		return s.respond(query, params)
	}

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]

		return next.rows, next.err
	}

	return nil, nil
}

func (s *stubStore) enqueue(rows []map[string]any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, stubResponse{rows: rows, err: err})
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

func (s *stubStore) queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.calls))
	for i, call := range s.calls {
		out[i] = call.query
	}

	return out
}

func (s *stubStore) lastCall() stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[len(s.calls)-1]
}

var _ neotype.Store = (*stubStore)(nil)

// animalRegistry builds the registry used across tests: Animal with a
// unique name, and Pet deriving from it with a defaulted owner.
func animalRegistry() *neotype.TypeRegistry {
	registry := neotype.NewTypeRegistry()

	_ = registry.Register(&neotype.TypeDescriptor{
		Name: "Animal",
		Attributes: []neotype.Attribute{
			{Name: "name", Type: neotype.TypeString, Unique: true},
			{Name: "legs", Type: neotype.TypeInt, Indexed: true},
			{Name: "nickname", Type: neotype.TypeString},
		},
	})

	_ = registry.Register(&neotype.TypeDescriptor{
		Name:  "Pet",
		Bases: []string{"Animal"},
		Attributes: []neotype.Attribute{
			{Name: "owner", Type: neotype.TypeString, Default: ""},
		},
	})

	return registry
}

// animalNode fakes a stored Animal node handle.
func animalNode(elementID, name string) neotype.Node {
	return neotype.Node{
		ElementID: elementID,
		Labels:    []string{"Animal"},
		Props: map[string]any{
			"__type__": "Animal",
			"name":     name,
		},
	}
}
