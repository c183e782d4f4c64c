package neotype

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the public entry point of the object-graph mapping layer. It
// composes the type registry, the attribute codec and the lookup resolver
// over a store, and exposes the create/get/query/serialize/retype/delete
// surface. It holds no logic of its own beyond argument validation and
// delegation.
type Manager struct {
	store    Store
	registry *TypeRegistry
	log      *zap.Logger

	skipSetup      bool
	allowDeleteAll bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithSkipSetup makes PersistSchema mark types as provisioned without
// issuing schema writes, for fast startup against an already-provisioned
// store.
func WithSkipSetup(skip bool) ManagerOption {
	return func(m *Manager) {
		m.skipSetup = skip
	}
}

// WithAllowDeleteAll arms DeleteAllData.
func WithAllowDeleteAll(allow bool) ManagerOption {
	return func(m *Manager) {
		m.allowDeleteAll = allow
	}
}

// NewManager creates a Manager over an existing store and registry.
func NewManager(store Store, registry *TypeRegistry, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Open connects to the store described by cfg and returns a Manager with a
// fresh registry. The config's skip_setup flag carries over.
func Open(cfg *Config, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil || cfg.Neo4j == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrUnknownStore)
	}

	store, err := NewStore(StoreNeo4j, cfg.Neo4j)
	if err != nil {
		return nil, err
	}

	registry := NewTypeRegistry()
	opts = append([]ManagerOption{WithSkipSetup(cfg.SkipSetup)}, opts...)

	m := NewManager(store, registry, opts...)
	m.registry.log = m.log

	return m, nil
}

// Registry returns the manager's type registry.
func (m *Manager) Registry() *TypeRegistry { return m.registry }

// Close releases the underlying store.
func (m *Manager) Close() error { return m.store.Close() }

// PersistSchema ensures the store holds the schema for the named types (or
// for every registered type when none are named). Under skip-setup the
// types are only marked provisioned; no schema writes are issued.
func (m *Manager) PersistSchema(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = m.registry.Names()
	}

	if m.skipSetup {
		m.log.Debug("skip-setup: marking types persisted", zap.Strings("types", names))

		return m.registry.SetPersisted(names...)
	}

	for _, name := range names {
		if err := m.registry.PersistSchema(ctx, m.store, name); err != nil {
			return err
		}
	}

	return nil
}

// Save stores an entity instance. A new instance (no element ID and no
// existing node sharing its unique attribute values) is created together
// with its instance-of linkage; an existing one is updated by writing only
// the changed properties. Changing the value of a unique attribute on an
// existing instance is rejected. The instance's type must have had its
// schema persisted.
func (m *Manager) Save(ctx context.Context, inst *Instance) error {
	desc, err := m.registry.ResolvePersisted(inst.TypeName)
	if err != nil {
		return err
	}

	if desc.Relationship {
		return fmt.Errorf("%w: %q is a relationship type, use SaveRelationship", ErrNotPersistable, inst.TypeName)
	}

	props, err := SerializeInstance(m.registry, inst, true)
	if err != nil {
		return err
	}

	if inst.ElementID == "" {
		existing, err := m.findByUniqueAttrs(ctx, inst)
		if err != nil {
			return err
		}

		if existing != nil {
			inst.ElementID = existing.ElementID
		}
	}

	if inst.ElementID == "" {
		return m.createNode(ctx, inst, props)
	}

	return m.updateNode(ctx, inst, props)
}

func (m *Manager) createNode(ctx context.Context, inst *Instance, props map[string]any) error {
	labels, err := m.registry.LabelSet(inst.TypeName)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"CREATE (n:%s $props) WITH n MATCH (t:%s {name: $type}) MERGE (n)-[:%s]->(t) RETURN n",
		strings.Join(labels, ":"), TypeCatalogLabel, RelInstanceOf)

	rows, err := m.store.Execute(ctx, query, map[string]any{
		"props": props,
		"type":  inst.TypeName,
	})
	if err != nil {
		return err
	}

	// The write is CREATE ... WITH n MATCH (t:...) ... RETURN n. A missing
	// catalog node makes the MATCH filter the row, so an empty result means
	// the store was never provisioned for this type (a stale skip-setup
	// mark), not a successful save.
	node, ok := firstNode(rows)
	if !ok {
		return &TypeNotPersistedError{Name: inst.TypeName}
	}

	inst.ElementID = node.ElementID

	m.log.Debug("instance created",
		zap.String("type", inst.TypeName),
		zap.String("elementId", inst.ElementID))

	return nil
}

func (m *Manager) updateNode(ctx context.Context, inst *Instance, props map[string]any) error {
	rows, err := m.store.Execute(ctx,
		"MATCH (n) WHERE elementId(n) = $id RETURN n",
		map[string]any{"id": inst.ElementID})
	if err != nil {
		return err
	}

	node, ok := firstNode(rows)
	if !ok {
		return fmt.Errorf("%w: no node with element id %q", ErrNotPersistable, inst.ElementID)
	}

	changes := diffProps(node.Props, props)
	if len(changes) == 0 {
		return nil
	}

	unique, err := m.registry.UniqueAttributes(inst.TypeName)
	if err != nil {
		return err
	}

	for _, attr := range unique {
		if _, changed := changes[attr.Name]; changed {
			if _, existed := node.Props[attr.Name]; existed {
				return fmt.Errorf("%w: %s.%s", ErrUniqueAttrChanged, inst.TypeName, attr.Name)
			}
		}
	}

	_, err = m.store.Execute(ctx,
		"MATCH (n) WHERE elementId(n) = $id SET n += $changes RETURN n",
		map[string]any{"id": inst.ElementID, "changes": changes})
	if err != nil {
		return err
	}

	m.log.Debug("instance updated",
		zap.String("type", inst.TypeName),
		zap.String("elementId", inst.ElementID),
		zap.Int("changed", len(changes)))

	return nil
}

// findByUniqueAttrs locates an existing node sharing any of the instance's
// set unique attribute values.
func (m *Manager) findByUniqueAttrs(ctx context.Context, inst *Instance) (*Instance, error) {
	unique, err := m.registry.UniqueAttributes(inst.TypeName)
	if err != nil {
		return nil, err
	}

	for _, attr := range unique {
		value, ok := inst.Get(attr.Name)
		if !ok || value == nil {
			continue
		}

		existing, err := m.Get(ctx, inst.TypeName, attr.Name, value)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	return nil, nil
}

// SaveRelationship stores a relationship instance. The endpoints must
// already exist in the graph; explicit endpoint instance references are not
// required when the element IDs are known.
func (m *Manager) SaveRelationship(ctx context.Context, rel *Relationship) error {
	desc, err := m.registry.ResolvePersisted(rel.TypeName)
	if err != nil {
		return err
	}

	if !desc.Relationship {
		return fmt.Errorf("%w: %q is an entity type, use Save", ErrNotPersistable, rel.TypeName)
	}

	startID, endID := rel.startID(), rel.endID()
	if startID == "" || endID == "" {
		return fmt.Errorf("%w: relationship %q endpoints are not persisted", ErrNotPersistable, rel.TypeName)
	}

	props, err := SerializeInstance(m.registry, &rel.Instance, true)
	if err != nil {
		return err
	}

	if rel.ElementID != "" {
		_, err = m.store.Execute(ctx,
			"MATCH ()-[r]->() WHERE elementId(r) = $id SET r += $props RETURN r",
			map[string]any{"id": rel.ElementID, "props": props})

		return err
	}

	query := fmt.Sprintf(
		"MATCH (a) WHERE elementId(a) = $start MATCH (b) WHERE elementId(b) = $end "+
			"CREATE (a)-[r:%s $props]->(b) RETURN r",
		desc.RelType())

	rows, err := m.store.Execute(ctx, query, map[string]any{
		"start": startID,
		"end":   endID,
		"props": props,
	})
	if err != nil {
		return err
	}

	if stored, ok := firstRel(rows); ok {
		rel.ElementID = stored.ElementID
		rel.StartElementID = stored.StartElementID
		rel.EndElementID = stored.EndElementID
	}

	return nil
}

// Get returns the single instance of typeName whose attribute equals value,
// or nil when none matches. The attribute must be indexed; the lookup runs
// through its label-backed index, never a scan. Multiple distinct matches
// for a unique attribute indicate corrupted data and are reported as a
// StructuralError.
func (m *Manager) Get(ctx context.Context, typeName, attrName string, value any) (*Instance, error) {
	lk, err := resolveLookup(m.registry, typeName, attrName, value)
	if err != nil {
		return nil, err
	}

	rows, err := m.store.Execute(ctx, lk.query, lk.params)
	if err != nil {
		return nil, err
	}

	instances, err := m.nodesFromRows(rows)
	if err != nil {
		return nil, err
	}

	switch len(instances) {
	case 0:
		return nil, nil
	case 1:
		return instances[0], nil
	}

	for _, other := range instances[1:] {
		if other.ElementID != instances[0].ElementID {
			return nil, &StructuralError{
				Type:   typeName,
				Reason: fmt.Sprintf("multiple nodes match unique lookup %s=%v", attrName, value),
			}
		}
	}

	return instances[0], nil
}

// GetByUniqueAttr returns the instances of typeName whose unique attribute
// equals any of the given values. All values are satisfied by one query, so
// the cost is a single round trip regardless of how many values are asked
// for. Order of the results is not guaranteed.
func (m *Manager) GetByUniqueAttr(ctx context.Context, typeName, attrName string, values []any) ([]*Instance, error) {
	lk, err := resolveBulkLookup(m.registry, typeName, attrName, values)
	if err != nil {
		return nil, err
	}

	rows, err := m.store.Execute(ctx, lk.query, lk.params)
	if err != nil {
		return nil, err
	}

	return m.nodesFromRows(rows)
}

// Direction selects which end of a relationship an instance occupies when
// traversing to its related nodes.
type Direction int

// Traversal directions.
const (
	Outgoing Direction = iota
	Incoming
)

// GetRelated returns the instances connected to inst through the named
// relationship type. Outgoing follows relationships starting at inst,
// Incoming those ending at it. The instance must be persisted; the
// relationship type decides the traversed graph relationship the same way
// SaveRelationship does when writing it.
func (m *Manager) GetRelated(ctx context.Context, inst *Instance, relTypeName string, dir Direction) ([]*Instance, error) {
	desc, err := m.registry.Resolve(relTypeName)
	if err != nil {
		return nil, err
	}

	if !desc.Relationship {
		return nil, fmt.Errorf("%w: %q is not a relationship type", ErrNotPersistable, relTypeName)
	}

	if inst.ElementID == "" {
		return nil, fmt.Errorf("%w: instance of %q has no element id", ErrNotPersistable, inst.TypeName)
	}

	pattern := fmt.Sprintf("(n)-[:%s]->(related)", desc.RelType())
	if dir == Incoming {
		pattern = fmt.Sprintf("(n)<-[:%s]-(related)", desc.RelType())
	}

	rows, err := m.store.Execute(ctx,
		fmt.Sprintf("MATCH %s WHERE elementId(n) = $id RETURN related", pattern),
		map[string]any{"id": inst.ElementID})
	if err != nil {
		return nil, err
	}

	return m.nodesFromRows(rows)
}

// Query runs a free-form parameterized query. The query executes eagerly at
// the call; the returned sequence decodes rows as the caller consumes it.
// Node and relationship values decode into instances, primitives pass
// through.
func (m *Manager) Query(ctx context.Context, query string, params map[string]any) (*Results, error) {
	rows, err := m.store.Execute(ctx, query, encodeParams(params))
	if err != nil {
		return nil, err
	}

	return &Results{rows: rows, decode: m.decodeRow}, nil
}

// Serialize converts an instance into a plain mapping. See
// SerializeInstance for the forDB contract.
func (m *Manager) Serialize(inst *Instance, forDB bool) (map[string]any, error) {
	return SerializeInstance(m.registry, inst, forDB)
}

// ChangeInstanceType rewrites a persisted instance's label set and
// instance-of linkage so the node becomes an instance of newTypeName,
// without deleting and recreating it. Attribute values that remain valid
// under the new type's effective set are kept; attributes the new type adds
// are filled with their defaults; attributes it does not declare are removed
// from the node.
func (m *Manager) ChangeInstanceType(ctx context.Context, inst *Instance, newTypeName string) error {
	if _, err := m.registry.ResolvePersisted(newTypeName); err != nil {
		return err
	}

	if inst.ElementID == "" {
		return fmt.Errorf("%w: instance of %q has no element id", ErrNotPersistable, inst.TypeName)
	}

	oldLabels, err := m.registry.LabelSet(inst.TypeName)
	if err != nil {
		return err
	}

	newLabels, err := m.registry.LabelSet(newTypeName)
	if err != nil {
		return err
	}

	newAttrs, err := m.registry.EffectiveAttributes(newTypeName)
	if err != nil {
		return err
	}

	reconciled := reconcileAttributes(newAttrs, inst.Props())

	next := NewInstance(newTypeName, reconciled)
	next.ElementID = inst.ElementID

	props, err := SerializeInstance(m.registry, next, true)
	if err != nil {
		return err
	}

	// Attributes the new type does not declare are removed from the node by
	// writing nulls through SET +=.
	oldAttrs, err := m.registry.EffectiveAttributes(inst.TypeName)
	if err == nil {
		known := make(map[string]bool, len(newAttrs))
		for _, attr := range newAttrs {
			known[attr.Name] = true
		}

		for _, attr := range oldAttrs {
			if !known[attr.Name] {
				props[attr.Name] = nil
			}
		}
	}

	inNew := make(map[string]bool, len(newLabels))
	for _, label := range newLabels {
		inNew[label] = true
	}

	var removed []string
	for _, label := range oldLabels {
		if !inNew[label] {
			removed = append(removed, label)
		}
	}

	query := fmt.Sprintf(
		"MATCH (n) WHERE elementId(n) = $id "+
			"MATCH (t:%s {name: $type}) "+
			"OPTIONAL MATCH (n)-[old:%s]->(:%s) DELETE old ",
		TypeCatalogLabel, RelInstanceOf, TypeCatalogLabel)

	if len(removed) > 0 {
		query += "REMOVE n:" + strings.Join(removed, ":") + " "
	}

	query += fmt.Sprintf("SET n:%s SET n += $props MERGE (n)-[:%s]->(t) RETURN n",
		strings.Join(newLabels, ":"), RelInstanceOf)

	_, err = m.store.Execute(ctx, query, map[string]any{
		"id":    inst.ElementID,
		"type":  newTypeName,
		"props": props,
	})
	if err != nil {
		return err
	}

	inst.TypeName = newTypeName
	inst.props = reconciled

	m.log.Info("instance retyped",
		zap.String("elementId", inst.ElementID),
		zap.String("type", newTypeName))

	return nil
}

// Delete removes an instance (and its relationships) from the store.
func (m *Manager) Delete(ctx context.Context, inst *Instance) error {
	if inst.ElementID == "" {
		existing, err := m.findByUniqueAttrs(ctx, inst)
		if err != nil {
			return err
		}

		if existing == nil {
			return fmt.Errorf("%w: instance of %q not found", ErrNotPersistable, inst.TypeName)
		}

		inst.ElementID = existing.ElementID
	}

	_, err := m.store.Execute(ctx,
		"MATCH (n) WHERE elementId(n) = $id DETACH DELETE n",
		map[string]any{"id": inst.ElementID})

	return err
}

// DeleteRelationship removes a relationship from the store.
func (m *Manager) DeleteRelationship(ctx context.Context, rel *Relationship) error {
	if rel.ElementID == "" {
		return fmt.Errorf("%w: relationship of %q has no element id", ErrNotPersistable, rel.TypeName)
	}

	_, err := m.store.Execute(ctx,
		"MATCH ()-[r]->() WHERE elementId(r) = $id DELETE r",
		map[string]any{"id": rel.ElementID})

	return err
}

// DeleteAllData removes every node and relationship in the store, the type
// catalog included. It refuses to run unless the manager was constructed
// with WithAllowDeleteAll.
func (m *Manager) DeleteAllData(ctx context.Context) error {
	if !m.allowDeleteAll {
		return ErrDeleteAllNotAllowed
	}

	m.log.Warn("deleting all data")

	_, err := m.store.Execute(ctx, "MATCH (n) DETACH DELETE n", nil)

	return err
}

// nodesFromRows decodes every node handle in the result rows.
func (m *Manager) nodesFromRows(rows []map[string]any) ([]*Instance, error) {
	var instances []*Instance

	for _, row := range rows {
		for _, value := range row {
			node, ok := value.(Node)
			if !ok {
				continue
			}

			inst, err := decodeNode(m.registry, node)
			if err != nil {
				return nil, err
			}

			instances = append(instances, inst)
		}
	}

	return instances, nil
}

// decodeRow converts node/relationship handles in a free-form query row
// into instances.
func (m *Manager) decodeRow(row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))

	for key, value := range row {
		switch v := value.(type) {
		case Node:
			inst, err := decodeNode(m.registry, v)
			if err != nil {
				return nil, err
			}

			out[key] = inst
		case Rel:
			rel, err := decodeRel(m.registry, v)
			if err != nil {
				return nil, err
			}

			out[key] = rel
		default:
			out[key] = value
		}
	}

	return out, nil
}

// firstNode returns the first node handle in the result rows.
func firstNode(rows []map[string]any) (Node, bool) {
	for _, row := range rows {
		for _, value := range row {
			if node, ok := value.(Node); ok {
				return node, true
			}
		}
	}

	return Node{}, false
}

// firstRel returns the first relationship handle in the result rows.
func firstRel(rows []map[string]any) (Rel, bool) {
	for _, row := range rows {
		for _, value := range row {
			if rel, ok := value.(Rel); ok {
				return rel, true
			}
		}
	}

	return Rel{}, false
}

// diffProps returns the keys in next whose values differ from prev, plus a
// nil for every key that disappeared, which removes the property on write.
// The __type__ discriminator and unique keys are compared like any other
// property.
func diffProps(prev, next map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, value := range next {
		if !equalPrimitive(prev[key], value) {
			changes[key] = value
		}
	}

	for key := range prev {
		if _, ok := next[key]; !ok {
			changes[key] = nil
		}
	}

	return changes
}

// equalPrimitive compares stored primitives, descending into sequences.
func equalPrimitive(a, b any) bool {
	as, aOK := asSequence(a)
	bs, bOK := asSequence(b)

	if aOK && bOK {
		if len(as) != len(bs) {
			return false
		}

		for i := range as {
			if !equalPrimitive(as[i], bs[i]) {
				return false
			}
		}

		return true
	}

	if aOK != bOK {
		return false
	}

	return a == b
}

// encodeParams converts application-level values in free-form query
// parameters to store primitives.
func encodeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = encodeParam(value)
	}

	return out
}

func encodeParam(value any) any {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = encodeParam(elem)
		}

		return out
	default:
		return value
	}
}
