package neotype

import "fmt"

// lookup is a resolved label-indexed match request: a Cypher clause pair
// that finds instances of one type through one indexed attribute.
type lookup struct {
	query  string
	params map[string]any
}

// resolveLookup turns a (type, attribute, value) request into an
// index-backed match. The attribute must be unique or indexed; scans over
// arbitrary attributes are rejected so lookup cost stays bounded. A nil
// value is caller misuse, never "match any".
func resolveLookup(registry *TypeRegistry, typeName, attrName string, value any) (*lookup, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNilLookupValue, typeName, attrName)
	}

	attr, err := registry.EffectiveAttribute(typeName, attrName)
	if err != nil {
		return nil, err
	}

	if !attr.Lookupable() {
		return nil, &NotIndexedError{Type: typeName, Attr: attrName}
	}

	encoded, err := Encode(typeName, attr, value)
	if err != nil {
		return nil, err
	}

	return &lookup{
		query: fmt.Sprintf("MATCH (n:%s {%s: $value}) RETURN n", typeName, attrName),
		params: map[string]any{
			"value": encoded,
		},
	}, nil
}

// resolveBulkLookup turns a (type, unique attribute, values) request into a
// single match satisfying all values in one round trip to the store.
func resolveBulkLookup(registry *TypeRegistry, typeName, attrName string, values []any) (*lookup, error) {
	attr, err := registry.EffectiveAttribute(typeName, attrName)
	if err != nil {
		return nil, err
	}

	if !attr.Lookupable() {
		return nil, &NotIndexedError{Type: typeName, Attr: attrName}
	}

	encoded := make([]any, len(values))

	for i, value := range values {
		if value == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrNilLookupValue, typeName, attrName)
		}

		enc, err := Encode(typeName, attr, value)
		if err != nil {
			return nil, err
		}

		encoded[i] = enc
	}

	return &lookup{
		query: fmt.Sprintf("MATCH (n:%s) WHERE n.%s IN $values RETURN n", typeName, attrName),
		params: map[string]any{
			"values": encoded,
		},
	}, nil
}

// Results is a lazily-consumed sequence of decoded query results. The query
// that produced it has already executed: triggering a query pays its cost
// exactly once, at the call, whether or not the rows are ever iterated.
// Decoding happens per row during consumption.
type Results struct {
	rows   []map[string]any
	decode func(row map[string]any) (map[string]any, error)

	idx     int
	current map[string]any
	err     error
}

// Next advances to the next row, decoding it. It returns false when the
// sequence is exhausted or a row fails to decode; check Err afterwards.
func (r *Results) Next() bool {
	if r.err != nil || r.idx >= len(r.rows) {
		return false
	}

	row := r.rows[r.idx]
	r.idx++

	if r.decode != nil {
		decoded, err := r.decode(row)
		if err != nil {
			r.err = err
			return false
		}

		row = decoded
	}

	r.current = row

	return true
}

// Record returns the current decoded row.
func (r *Results) Record() map[string]any { return r.current }

// Err returns the first decode error encountered, if any.
func (r *Results) Err() error { return r.err }

// Len returns the number of rows the query produced.
func (r *Results) Len() int { return len(r.rows) }
