package neotype

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// schemaWriteAttempts bounds the transparent retry of idempotent
// create-if-absent schema writes.
const schemaWriteAttempts = 3

// TypeRegistry is the catalog of all registered type descriptors. It owns
// the name->descriptor mapping for the process lifetime, caches the
// inheritance-flattened attribute set per type, drives schema persistence
// against the store, and resolves a node's runtime type from its labels.
//
// Register, SetBases and SetPersisted mutate shared state and are serialized
// behind a single writer lock; readers never observe a half-updated cache
// because caches are rebuilt into fresh values and swapped, not mutated in
// place. A registry is constructed explicitly and owned by its Manager; no
// process-wide singleton exists, so tests can hold several isolated
// registries.
type TypeRegistry struct {
	mu          sync.RWMutex
	descriptors map[string]*TypeDescriptor
	persisted   map[string]bool

	// version counts hierarchy edits; cache entries are keyed by it so a
	// stale flattening is never served after a base change.
	version   uint64
	effective map[string]effectiveEntry
	labels    map[string]labelEntry

	log *zap.Logger
}

type effectiveEntry struct {
	version uint64
	attrs   []Attribute
}

type labelEntry struct {
	version uint64
	labels  []string
}

// RegistryOption configures a TypeRegistry.
type RegistryOption func(*TypeRegistry)

// WithRegistryLogger sets the logger used for schema writes.
func WithRegistryLogger(log *zap.Logger) RegistryOption {
	return func(r *TypeRegistry) {
		r.log = log
	}
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry(opts ...RegistryOption) *TypeRegistry {
	r := &TypeRegistry{
		descriptors: make(map[string]*TypeDescriptor),
		persisted:   make(map[string]bool),
		effective:   make(map[string]effectiveEntry),
		labels:      make(map[string]labelEntry),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a descriptor to the catalog. It does not touch the store;
// schema must be persisted separately before instances of the type can be
// saved. Bases must already be registered, which keeps the hierarchy acyclic
// by construction.
func (r *TypeRegistry) Register(desc *TypeDescriptor) error {
	if desc == nil || desc.Name == "" {
		return ErrNotPersistable
	}

	if !isValidName(desc.Name) {
		return &StructuralError{Type: desc.Name, Reason: "type name is not a valid identifier"}
	}

	for _, attr := range desc.Attributes {
		if !isValidName(attr.Name) {
			return &StructuralError{
				Type:   desc.Name,
				Reason: fmt.Sprintf("attribute name %q is not a valid identifier", attr.Name),
			}
		}

		if attr.Type == nil {
			return &StructuralError{
				Type:   desc.Name,
				Reason: fmt.Sprintf("attribute %q has no type", attr.Name),
			}
		}

		if desc.Relationship && attr.Unique {
			return &StructuralError{
				Type:   desc.Name,
				Reason: fmt.Sprintf("relationships may not have unique attributes (%q)", attr.Name),
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[desc.Name]; exists {
		return &DuplicateTypeError{Name: desc.Name}
	}

	for _, base := range desc.Bases {
		parent, ok := r.descriptors[base]
		if !ok {
			return fmt.Errorf("%w: base %q of %q", ErrUnknownType, base, desc.Name)
		}

		if parent.Relationship != desc.Relationship {
			return &StructuralError{
				Type:   desc.Name,
				Reason: fmt.Sprintf("base %q mixes entity and relationship kinds", base),
			}
		}
	}

	r.descriptors[desc.Name] = copyDescriptor(desc)
	r.bumpVersionLocked()

	return nil
}

// Resolve returns the descriptor registered under name.
func (r *TypeRegistry) Resolve(name string) (*TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolveLocked(name)
}

func (r *TypeRegistry) resolveLocked(name string) (*TypeDescriptor, error) {
	desc, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	return desc, nil
}

// ResolvePersisted returns the descriptor registered under name, failing
// with TypeNotPersistedError if its schema has never been written to the
// store. Operations that produce instances in the store go through this.
func (r *TypeRegistry) ResolvePersisted(name string) (*TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, err := r.resolveLocked(name)
	if err != nil {
		return nil, err
	}

	if !r.persisted[name] {
		return nil, &TypeNotPersistedError{Name: name}
	}

	return desc, nil
}

// Persisted reports whether PersistSchema has been run for name.
func (r *TypeRegistry) Persisted(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.persisted[name]
}

// SetPersisted marks types as already provisioned in the store without
// issuing schema writes. This backs the skip-setup fast start against a
// store whose schema is known to exist.
func (r *TypeRegistry) SetPersisted(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if _, ok := r.descriptors[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
	}

	for _, name := range names {
		r.persisted[name] = true
	}

	return nil
}

// Names returns all registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// LabelSet returns the graph labels for a type: its own name followed by all
// transitive base names, deduplicated, in breadth-first declaration order.
func (r *TypeRegistry) LabelSet(name string) ([]string, error) {
	r.mu.RLock()
	if entry, ok := r.labels[name]; ok && entry.version == r.version {
		r.mu.RUnlock()
		return entry.labels, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.labels[name]; ok && entry.version == r.version {
		return entry.labels, nil
	}

	labels, err := flattenLabels(r.descriptors, name)
	if err != nil {
		return nil, err
	}

	r.labels[name] = labelEntry{version: r.version, labels: labels}

	return labels, nil
}

// EffectiveAttributes returns the inheritance-flattened attribute set of a
// type: its own attributes, overridden-by-name over inherited ones, with the
// closest ancestor winning on a name collision. The result is cached per
// hierarchy version.
func (r *TypeRegistry) EffectiveAttributes(name string) ([]Attribute, error) {
	r.mu.RLock()
	if entry, ok := r.effective[name]; ok && entry.version == r.version {
		r.mu.RUnlock()
		return entry.attrs, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.effective[name]; ok && entry.version == r.version {
		return entry.attrs, nil
	}

	attrs, err := flattenAttributes(r.descriptors, name)
	if err != nil {
		return nil, err
	}

	r.effective[name] = effectiveEntry{version: r.version, attrs: attrs}

	return attrs, nil
}

// EffectiveAttribute returns one attribute from the flattened set.
func (r *TypeRegistry) EffectiveAttribute(typeName, attrName string) (Attribute, error) {
	attrs, err := r.EffectiveAttributes(typeName)
	if err != nil {
		return Attribute{}, err
	}

	for _, attr := range attrs {
		if attr.Name == attrName {
			return attr, nil
		}
	}

	return Attribute{}, &ValidationError{
		Type:   typeName,
		Attr:   attrName,
		Reason: "attribute not defined on type",
	}
}

// UniqueAttributes returns the effective attributes marked unique.
func (r *TypeRegistry) UniqueAttributes(typeName string) ([]Attribute, error) {
	attrs, err := r.EffectiveAttributes(typeName)
	if err != nil {
		return nil, err
	}

	var unique []Attribute
	for _, attr := range attrs {
		if attr.Unique {
			unique = append(unique, attr)
		}
	}

	return unique, nil
}

// AddAttribute declares a new attribute on an already-registered type. The
// flattened attribute sets of the type and of every descendant are
// invalidated; a unique attribute added to a persisted type requires a
// fresh PersistSchema run to create its constraint.
func (r *TypeRegistry) AddAttribute(typeName string, attr Attribute) error {
	if !isValidName(attr.Name) {
		return &StructuralError{
			Type:   typeName,
			Reason: fmt.Sprintf("attribute name %q is not a valid identifier", attr.Name),
		}
	}

	if attr.Type == nil {
		return &StructuralError{
			Type:   typeName,
			Reason: fmt.Sprintf("attribute %q has no type", attr.Name),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc, err := r.resolveLocked(typeName)
	if err != nil {
		return err
	}

	if desc.Relationship && attr.Unique {
		return &StructuralError{
			Type:   typeName,
			Reason: fmt.Sprintf("relationships may not have unique attributes (%q)", attr.Name),
		}
	}

	if _, exists := desc.Attribute(attr.Name); exists {
		return &StructuralError{
			Type:   typeName,
			Reason: fmt.Sprintf("attribute %q already declared", attr.Name),
		}
	}

	next := copyDescriptor(desc)
	next.Attributes = append(next.Attributes, attr)
	r.descriptors[typeName] = next

	if attr.Unique {
		r.persisted[typeName] = false
	}

	r.bumpVersionLocked()

	return nil
}

// SetBases replaces a type's declared bases. The change is validated first
// (see ValidateBaseChange); a reported violation leaves the hierarchy
// untouched and queryable unchanged.
func (r *TypeRegistry) SetBases(name string, bases []string) error {
	violations, err := ValidateBaseChange(r, name, bases)
	if err != nil {
		return err
	}

	if len(violations) > 0 {
		return &StructuralError{Type: name, Reason: violations[0].Reason}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc, err := r.resolveLocked(name)
	if err != nil {
		return err
	}

	next := copyDescriptor(desc)
	next.Bases = append([]string(nil), bases...)
	r.descriptors[name] = next
	r.bumpVersionLocked()

	return nil
}

// TypeOfInstance determines the most specific registered type for a node's
// full label set: the registered type whose label set is the largest subset
// of the node's labels. Multiple maximal candidates are an ambiguity and are
// reported as a StructuralError rather than silently tie-broken.
func (r *TypeRegistry) TypeOfInstance(nodeLabels []string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	have := make(map[string]bool, len(nodeLabels))
	for _, label := range nodeLabels {
		if !reservedLabels[label] {
			have[label] = true
		}
	}

	var candidates []string

	for name := range r.descriptors {
		labels, err := flattenLabels(r.descriptors, name)
		if err != nil {
			return "", err
		}

		subset := true
		for _, label := range labels {
			if !have[label] {
				subset = false
				break
			}
		}

		if subset {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no registered type matches labels %v", ErrUnknownType, nodeLabels)
	}

	// Keep only maximal candidates: drop any type that is an ancestor of
	// another candidate.
	maximal := make([]string, 0, len(candidates))

	for _, name := range candidates {
		ancestorOfOther := false

		for _, other := range candidates {
			if other == name {
				continue
			}

			otherLabels, _ := flattenLabels(r.descriptors, other)
			for _, label := range otherLabels[1:] {
				if label == name {
					ancestorOfOther = true
					break
				}
			}

			if ancestorOfOther {
				break
			}
		}

		if !ancestorOfOther {
			maximal = append(maximal, name)
		}
	}

	if len(maximal) > 1 {
		sort.Strings(maximal)

		return "", &StructuralError{
			Type:       maximal[0],
			Reason:     "ambiguous runtime type for labels",
			Candidates: maximal,
		}
	}

	return maximal[0], nil
}

// PersistSchema idempotently ensures the store holds the schema for a type:
// its catalog node, ISA edges to its bases, and a uniqueness constraint for
// every unique attribute it declares. Bases are persisted first. All writes
// are create-if-absent, so a retried or concurrent call cannot raise a
// spurious conflict; transport failures on this path are retried
// transparently.
func (r *TypeRegistry) PersistSchema(ctx context.Context, store Store, name string) error {
	r.mu.RLock()
	desc, err := r.resolveLocked(name)
	if err != nil {
		r.mu.RUnlock()
		return err
	}

	bases := append([]string(nil), desc.Bases...)
	queries := schemaQueries(desc)
	r.mu.RUnlock()

	for _, base := range bases {
		if err := r.PersistSchema(ctx, store, base); err != nil {
			return err
		}
	}

	for _, q := range queries {
		if err := r.executeSchemaWrite(ctx, store, q.query, q.params); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.persisted[name] = true
	r.mu.Unlock()

	r.log.Debug("schema persisted", zap.String("type", name))

	return nil
}

type schemaQuery struct {
	query  string
	params map[string]any
}

// schemaQueries builds the create-if-absent statements for one type.
func schemaQueries(desc *TypeDescriptor) []schemaQuery {
	queries := []schemaQuery{{
		query:  fmt.Sprintf("MERGE (t:%s {name: $name})", TypeCatalogLabel),
		params: map[string]any{"name": desc.Name},
	}}

	for _, base := range desc.Bases {
		queries = append(queries, schemaQuery{
			query: fmt.Sprintf(
				"MATCH (t:%s {name: $name}) MATCH (b:%s {name: $base}) MERGE (t)-[:%s]->(b)",
				TypeCatalogLabel, TypeCatalogLabel, RelIsA),
			params: map[string]any{"name": desc.Name, "base": base},
		})
	}

	// Relationships carry no node label, so no constraints apply; they also
	// may not declare unique attributes (enforced at registration).
	if desc.Relationship {
		return queries
	}

	for _, attr := range desc.Attributes {
		if !attr.Unique {
			continue
		}

		constraint := fmt.Sprintf("neotype_%s_%s_unique",
			strings.ToLower(desc.Name), strings.ToLower(attr.Name))
		queries = append(queries, schemaQuery{
			query: fmt.Sprintf(
				"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
				constraint, desc.Name, attr.Name),
		})
	}

	return queries
}

// executeSchemaWrite runs one idempotent schema statement, retrying
// transport failures up to schemaWriteAttempts times.
func (r *TypeRegistry) executeSchemaWrite(ctx context.Context, store Store, query string, params map[string]any) error {
	var lastErr error

	for attempt := 1; attempt <= schemaWriteAttempts; attempt++ {
		_, err := store.Execute(ctx, query, params)
		if err == nil {
			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}

		r.log.Warn("schema write failed, retrying",
			zap.Int("attempt", attempt),
			zap.String("query", query),
			zap.Error(err))
	}

	return &TransportError{Op: "schema write", Err: lastErr}
}

// Clone returns a snapshot of the registry: an independent copy of the
// catalog and persistence marks that shares nothing with the original.
// Migration helpers validate hypothetical hierarchy edits against clones.
func (r *TypeRegistry) Clone() *TypeRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewTypeRegistry(WithRegistryLogger(r.log))
	for name, desc := range r.descriptors {
		clone.descriptors[name] = copyDescriptor(desc)
	}

	for name, ok := range r.persisted {
		clone.persisted[name] = ok
	}

	return clone
}

func (r *TypeRegistry) bumpVersionLocked() {
	r.version++
	// Swap in fresh cache maps rather than clearing in place; a concurrent
	// reader holding the old map still sees a consistent flattening.
	r.effective = make(map[string]effectiveEntry)
	r.labels = make(map[string]labelEntry)
}

func copyDescriptor(desc *TypeDescriptor) *TypeDescriptor {
	out := &TypeDescriptor{
		Name:         desc.Name,
		Bases:        append([]string(nil), desc.Bases...),
		Attributes:   append([]Attribute(nil), desc.Attributes...),
		Relationship: desc.Relationship,
	}

	return out
}

// flattenLabels computes the label set of a type over a descriptor map:
// the type itself, then its ancestors breadth-first in declaration order.
func flattenLabels(descriptors map[string]*TypeDescriptor, name string) ([]string, error) {
	desc, ok := descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	labels := []string{desc.Name}
	seen := map[string]bool{desc.Name: true}
	queue := append([]string(nil), desc.Bases...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}

		seen[current] = true

		parent, ok := descriptors[current]
		if !ok {
			return nil, fmt.Errorf("%w: base %q of %q", ErrUnknownType, current, name)
		}

		labels = append(labels, current)
		queue = append(queue, parent.Bases...)
	}

	return labels, nil
}

// flattenAttributes computes the effective attribute set of a type over a
// descriptor map. Own attributes come first; inherited ones follow in
// breadth-first base order, and the first declaration of a name wins, so the
// closest ancestor takes precedence on collisions.
func flattenAttributes(descriptors map[string]*TypeDescriptor, name string) ([]Attribute, error) {
	labels, err := flattenLabels(descriptors, name)
	if err != nil {
		return nil, err
	}

	var attrs []Attribute

	seen := make(map[string]bool)

	for _, typeName := range labels {
		desc := descriptors[typeName]
		for _, attr := range desc.Attributes {
			if seen[attr.Name] {
				continue
			}

			seen[attr.Name] = true

			attr.DeclaredBy = typeName
			attrs = append(attrs, attr)
		}
	}

	return attrs, nil
}
