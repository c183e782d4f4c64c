package neotype

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// SchemaFile is a yaml-declared type catalog. It lets a deployment describe
// its entity and relationship types in data and load them into a registry,
// which is what the CLI's schema commands operate on.
//
// Example:
//
//	types:
//	  Animal:
//	    attributes:
//	      name: {type: string, unique: true}
//	  Pet:
//	    bases: [Animal]
//	    attributes:
//	      owner: {type: string, default: ""}
type SchemaFile struct {
	Types map[string]*TypeSchema `yaml:"types"`
}

// TypeSchema declares one type in a schema file.
type TypeSchema struct {
	Bases        []string               `yaml:"bases,omitempty"`
	Relationship bool                   `yaml:"relationship,omitempty"`
	Attributes   map[string]*AttrSchema `yaml:"attributes,omitempty"`
}

// AttrSchema declares one attribute in a schema file.
type AttrSchema struct {
	Type    string `yaml:"type"`
	Unique  bool   `yaml:"unique,omitempty"`
	Indexed bool   `yaml:"indexed,omitempty"`
	Default any    `yaml:"default,omitempty"`
}

// LoadSchemaFile loads a schema file from a path.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return ParseSchema(data)
}

// ParseSchema parses yaml schema data.
func ParseSchema(data []byte) (*SchemaFile, error) {
	var schema SchemaFile

	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

// Apply registers every declared type. Types are registered bases-first so
// the declaration order inside the file does not matter; attributes are
// registered in name order since yaml mappings carry none.
func (s *SchemaFile) Apply(registry *TypeRegistry) error {
	var order []string

	visiting := make(map[string]bool)
	done := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}

		if visiting[name] {
			return &StructuralError{Type: name, Reason: "base cycle in schema file"}
		}

		spec, ok := s.Types[name]
		if !ok {
			return fmt.Errorf("%w: %q named as base but not declared", ErrUnknownType, name)
		}

		visiting[name] = true

		for _, base := range spec.Bases {
			if err := visit(base); err != nil {
				return err
			}
		}

		visiting[name] = false
		done[name] = true
		order = append(order, name)

		return nil
	}

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}

	for _, name := range order {
		desc, err := s.Types[name].descriptor(name)
		if err != nil {
			return err
		}

		if err := registry.Register(desc); err != nil {
			return err
		}
	}

	return nil
}

func (t *TypeSchema) descriptor(name string) (*TypeDescriptor, error) {
	desc := &TypeDescriptor{
		Name:         name,
		Bases:        append([]string(nil), t.Bases...),
		Relationship: t.Relationship,
	}

	attrNames := make([]string, 0, len(t.Attributes))
	for attrName := range t.Attributes {
		attrNames = append(attrNames, attrName)
	}

	sort.Strings(attrNames)

	for _, attrName := range attrNames {
		spec := t.Attributes[attrName]

		attrType, err := ParseAttrType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("attribute %s.%s: %w", name, attrName, err)
		}

		desc.Attributes = append(desc.Attributes, Attribute{
			Name:    attrName,
			Type:    attrType,
			Unique:  spec.Unique,
			Indexed: spec.Indexed,
			Default: normalizeDefault(attrType, spec.Default),
		})
	}

	return desc, nil
}

// normalizeDefault lifts yaml-decoded default values into the attribute's
// application type where the mapping is unambiguous.
func normalizeDefault(t *AttrType, value any) any {
	if value == nil {
		return nil
	}

	if t.Kind == KindInt {
		if n, ok := value.(int); ok {
			return int64(n)
		}
	}

	return value
}
