package neotype

import "fmt"

// SerializeInstance converts an instance into a plain mapping carrying a
// __type__ discriminator. With forDB set the values are encoded to store
// primitives, nil values are omitted, and every encoded value is checked to
// decode back successfully, so non-round-trippable data fails at write time
// rather than when it is next read. Without forDB the mapping holds
// application-level values with defaults applied.
func SerializeInstance(registry *TypeRegistry, inst *Instance, forDB bool) (map[string]any, error) {
	attrs, err := registry.EffectiveAttributes(inst.TypeName)
	if err != nil {
		return nil, err
	}

	out := map[string]any{TypeProperty: inst.TypeName}

	for _, attr := range attrs {
		value, ok := inst.Get(attr.Name)
		if !ok {
			value = attr.Default
		}

		if !forDB {
			out[attr.Name] = value
			continue
		}

		if value == nil {
			continue
		}

		encoded, err := Encode(inst.TypeName, attr, value)
		if err != nil {
			return nil, err
		}

		if _, err := Decode(inst.TypeName, attr, encoded); err != nil {
			return nil, err
		}

		out[attr.Name] = encoded
	}

	return out, nil
}

// decodeProps converts stored primitives back into application values under
// a type's effective attribute set. Properties the type does not declare
// (the discriminator aside) are ignored; declared attributes missing from
// the store get their defaults.
func decodeProps(registry *TypeRegistry, typeName string, props map[string]any) (map[string]any, error) {
	attrs, err := registry.EffectiveAttributes(typeName)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(attrs))

	for _, attr := range attrs {
		value, err := Decode(typeName, attr, props[attr.Name])
		if err != nil {
			return nil, err
		}

		out[attr.Name] = value
	}

	return out, nil
}

// decodeNode converts a node handle into an instance. The stored __type__
// discriminator names the runtime type; when a foreign node lacks it, the
// node's label set is resolved through the registry instead.
func decodeNode(registry *TypeRegistry, node Node) (*Instance, error) {
	typeName, err := nodeTypeName(registry, node)
	if err != nil {
		return nil, err
	}

	props, err := decodeProps(registry, typeName, node.Props)
	if err != nil {
		return nil, err
	}

	inst := NewInstance(typeName, props)
	inst.ElementID = node.ElementID

	return inst, nil
}

func nodeTypeName(registry *TypeRegistry, node Node) (string, error) {
	if name, ok := node.Props[TypeProperty].(string); ok && name != "" {
		if _, err := registry.Resolve(name); err == nil {
			return name, nil
		}
	}

	return registry.TypeOfInstance(node.Labels)
}

// decodeRel converts a relationship handle into a relationship instance.
func decodeRel(registry *TypeRegistry, rel Rel) (*Relationship, error) {
	typeName, ok := rel.Props[TypeProperty].(string)
	if !ok || typeName == "" {
		name, err := relTypeName(registry, rel.Type)
		if err != nil {
			return nil, err
		}

		typeName = name
	}

	props, err := decodeProps(registry, typeName, rel.Props)
	if err != nil {
		return nil, err
	}

	out := NewRelationship(typeName, nil, nil, props)
	out.ElementID = rel.ElementID
	out.StartElementID = rel.StartElementID
	out.EndElementID = rel.EndElementID

	return out, nil
}

// relTypeName maps a graph relationship type (upper-cased) back to the
// registered relationship type name.
func relTypeName(registry *TypeRegistry, relType string) (string, error) {
	for _, name := range registry.Names() {
		desc, err := registry.Resolve(name)
		if err != nil {
			continue
		}

		if desc.Relationship && desc.RelType() == relType {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: no relationship type for %q", ErrUnknownType, relType)
}
