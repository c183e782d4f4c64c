package neotype

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .neotype.yaml is found.
	ErrConfigNotFound = errors.New("neotype: no .neotype.yaml found")

	// ErrUnknownStore is returned when an unknown store backend is requested.
	ErrUnknownStore = errors.New("neotype: unknown store")

	// ErrNilLookupValue is returned when a lookup is attempted with a nil
	// value. A nil value is always caller misuse, never "match any".
	ErrNilLookupValue = errors.New("neotype: lookup value must not be nil")

	// ErrUnknownType is returned when a type name has never been registered.
	ErrUnknownType = errors.New("neotype: unknown type")

	// ErrNotPersistable is returned when an object cannot be stored, e.g. an
	// instance without a resolvable type.
	ErrNotPersistable = errors.New("neotype: object is not persistable")

	// ErrUniqueAttrChanged is returned when an update would modify the value
	// of a unique attribute on an already-persisted instance.
	ErrUniqueAttrChanged = errors.New("neotype: changing unique attributes is not supported")

	// ErrDeleteAllNotAllowed is returned when DeleteAllData is called without
	// the AllowDeleteAll option.
	ErrDeleteAllNotAllowed = errors.New("neotype: delete-all is not enabled on this manager")
)

// DuplicateTypeError is returned when a type name is registered twice.
type DuplicateTypeError struct {
	Name string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("neotype: type %q already registered", e.Name)
}

// TypeNotPersistedError is returned when an operation requires a type's
// schema to exist in the store but PersistSchema has not been run for it.
type TypeNotPersistedError struct {
	Name string
}

func (e *TypeNotPersistedError) Error() string {
	return fmt.Sprintf("neotype: type %q registered but schema not persisted", e.Name)
}

// CoercionError is returned when an application value cannot be represented
// in an attribute's declared application type.
type CoercionError struct {
	Type  string
	Attr  string
	Value any
	Want  string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("neotype: cannot coerce %v (%T) to %s for %s.%s",
		e.Value, e.Value, e.Want, e.Type, e.Attr)
}

// ValidationError is returned when a stored primitive cannot be reparsed
// into an attribute's declared application type. It guards against legacy
// or foreign data in the store.
type ValidationError struct {
	Type   string
	Attr   string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("neotype: stored value %v for %s.%s failed validation: %s",
		e.Value, e.Type, e.Attr, e.Reason)
}

// NotIndexedError is returned when a lookup targets an attribute that is
// neither unique nor indexed. Arbitrary-attribute scans are disallowed.
type NotIndexedError struct {
	Type string
	Attr string
}

func (e *NotIndexedError) Error() string {
	return fmt.Sprintf("neotype: attribute %s.%s is not indexed", e.Type, e.Attr)
}

// StructuralError is returned for hierarchy inconsistencies: registration
// cycles, ambiguous runtime type resolution, or a failed base-change
// validation.
type StructuralError struct {
	Type       string
	Reason     string
	Candidates []string
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("neotype: structural error on %q: %s", e.Type, e.Reason)
	if len(e.Candidates) > 0 {
		msg += " (candidates: " + strings.Join(e.Candidates, ", ") + ")"
	}

	return msg
}

// TransportError wraps a failure from the underlying store. It is opaque to
// this layer; only the idempotent schema-write path retries it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("neotype: store %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
