package neotype

import (
	"errors"
	"fmt"
	"strings"
)

// Attribute type parsing errors.
var (
	ErrEmptyTypeString  = errors.New("neotype: empty attribute type string")
	ErrUnrecognizedType = errors.New("neotype: unrecognized attribute type")
)

// AttrKind is the category of an attribute type.
type AttrKind string

// Attribute kind constants.
const (
	KindString AttrKind = "string"
	KindInt    AttrKind = "int"
	KindFloat  AttrKind = "float"
	KindBool   AttrKind = "bool"
	KindUUID   AttrKind = "uuid"
	KindList   AttrKind = "list" // []T, nests recursively
)

// AttrType describes the application-level type of an attribute value.
// It is a recursive structure so that nested sequences ([][]int) can be
// represented.
type AttrType struct {
	Kind AttrKind

	// Elem is the element type for lists.
	Elem *AttrType
}

// String returns a Go-style representation of the type, e.g. "[]uuid".
func (t *AttrType) String() string {
	if t == nil {
		return ""
	}

	if t.Kind == KindList {
		return "[]" + t.Elem.String()
	}

	return string(t.Kind)
}

// Primitive returns the db-primitive type this attribute type is stored as.
// Most kinds store as themselves; uuid stores as its canonical string form.
func (t *AttrType) Primitive() *AttrType {
	if t == nil {
		return nil
	}

	switch t.Kind {
	case KindUUID:
		return TypeString
	case KindList:
		return ListOf(t.Elem.Primitive())
	default:
		return t
	}
}

// Equal reports whether two attribute types are structurally identical.
func (t *AttrType) Equal(other *AttrType) bool {
	if t == nil || other == nil {
		return t == other
	}

	if t.Kind != other.Kind {
		return false
	}

	if t.Kind == KindList {
		return t.Elem.Equal(other.Elem)
	}

	return true
}

// ParseAttrType parses an attribute type string into an AttrType.
// Supports: string, int, float, bool, uuid, and nested []T.
//
// Examples:
//
//	"string"    -> KindString
//	"uuid"      -> KindUUID
//	"[]int"     -> list of int
//	"[][]float" -> list of list of float
func ParseAttrType(s string) (*AttrType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyTypeString
	}

	if strings.HasPrefix(s, "[]") {
		elem, err := ParseAttrType(s[2:])
		if err != nil {
			return nil, err
		}

		return ListOf(elem), nil
	}

	switch AttrKind(s) {
	case KindString, KindInt, KindFloat, KindBool, KindUUID:
		return &AttrType{Kind: AttrKind(s)}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedType, s)
}

// Scalar type values for convenience.
var (
	TypeString = &AttrType{Kind: KindString}
	TypeInt    = &AttrType{Kind: KindInt}
	TypeFloat  = &AttrType{Kind: KindFloat}
	TypeBool   = &AttrType{Kind: KindBool}
	TypeUUID   = &AttrType{Kind: KindUUID}
)

// ListOf creates a list type.
func ListOf(elem *AttrType) *AttrType {
	return &AttrType{Kind: KindList, Elem: elem}
}

// Attribute describes one attribute of a registered type: its name, its
// application-level type, whether the store enforces uniqueness over it, and
// whether lookups may use it. Unique implies indexed.
type Attribute struct {
	Name    string
	Type    *AttrType
	Unique  bool
	Indexed bool

	// Default is applied when an instance is missing a value for this
	// attribute, e.g. after retyping onto a type that adds it.
	Default any

	// DeclaredBy is the name of the type that declared this attribute.
	// Filled in when the registry flattens a hierarchy; constraints are
	// created against the declaring type's label.
	DeclaredBy string
}

// Lookupable reports whether this attribute may back a label-indexed lookup.
func (a Attribute) Lookupable() bool {
	return a.Unique || a.Indexed
}

// ContractEqual reports whether two attributes sharing a name agree on their
// coercion contract: same application type, hence same db primitive. Bases
// that disagree on this cannot be combined under one derived type.
func (a Attribute) ContractEqual(other Attribute) bool {
	return a.Type.Equal(other.Type)
}

// TypeDescriptor is the static metadata for one entity or relationship type:
// its name (unique across the registry), its ordered attribute set and its
// declared base type names. Multiple bases are permitted; the full label set
// is derived as the name plus all transitive base names.
type TypeDescriptor struct {
	Name       string
	Bases      []string
	Attributes []Attribute

	// Relationship marks this descriptor as a relationship type. It persists
	// as one graph relationship rather than a node, and may not declare
	// unique attributes.
	Relationship bool
}

// Attribute returns the declared (not inherited) attribute with the given
// name, if any.
func (d *TypeDescriptor) Attribute(name string) (Attribute, bool) {
	for _, attr := range d.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}

	return Attribute{}, false
}

// RelType returns the graph relationship type for a relationship descriptor:
// the upper-cased type name.
func (d *TypeDescriptor) RelType() string {
	return strings.ToUpper(d.Name)
}
