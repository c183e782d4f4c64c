package neotype

import "fmt"

// Violation describes one problem a hypothetical hierarchy change would
// introduce.
type Violation struct {
	Type   string
	Attr   string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s.%s: %s", v.Type, v.Attr, v.Reason)
}

// ValidateBaseChange simulates replacing a type's declared bases and reports
// the violations the new hierarchy would have. It is pure validation: the
// given registry is only read (it is cloned internally), so a caller can
// preview a migration before committing it with SetBases.
//
// Reported violations:
//   - a base cycle through the type itself;
//   - an attribute name declared by two types in the new hierarchy with
//     incompatible coercion contracts;
//   - removal of a base whose unique attributes back already-persisted data
//     (best-effort static check; the store is not scanned).
func ValidateBaseChange(registry *TypeRegistry, typeName string, newBases []string) ([]Violation, error) {
	snapshot := registry.Clone()

	desc, err := snapshot.Resolve(typeName)
	if err != nil {
		return nil, err
	}

	oldAttrs, err := flattenAttributes(snapshot.descriptors, typeName)
	if err != nil {
		return nil, err
	}

	var violations []Violation

	for _, base := range newBases {
		baseDesc, ok := snapshot.descriptors[base]
		if !ok {
			return nil, fmt.Errorf("%w: base %q", ErrUnknownType, base)
		}

		baseLabels, err := flattenLabels(snapshot.descriptors, base)
		if err != nil {
			return nil, err
		}

		for _, label := range baseLabels {
			if label == typeName {
				violations = append(violations, Violation{
					Type:   typeName,
					Reason: fmt.Sprintf("base %q would introduce a cycle", base),
				})
			}
		}

		if baseDesc.Relationship != desc.Relationship {
			violations = append(violations, Violation{
				Type:   typeName,
				Reason: fmt.Sprintf("base %q mixes entity and relationship kinds", base),
			})
		}
	}

	if len(violations) > 0 {
		return violations, nil
	}

	// Apply the hypothetical change on the snapshot and recompute.
	hypothetical := copyDescriptor(desc)
	hypothetical.Bases = append([]string(nil), newBases...)
	snapshot.descriptors[typeName] = hypothetical

	newLabels, err := flattenLabels(snapshot.descriptors, typeName)
	if err != nil {
		return nil, err
	}

	violations = append(violations, contractCollisions(snapshot.descriptors, typeName, newLabels)...)

	// A persisted type's unique attributes carry store-side expectations:
	// dropping the base that declares one orphans the constraint over
	// existing data.
	if registry.Persisted(typeName) {
		inNew := make(map[string]bool, len(newLabels))
		for _, label := range newLabels {
			inNew[label] = true
		}

		for _, attr := range oldAttrs {
			if attr.Unique && attr.DeclaredBy != typeName && !inNew[attr.DeclaredBy] {
				violations = append(violations, Violation{
					Type: typeName,
					Attr: attr.Name,
					Reason: fmt.Sprintf(
						"removing base %q orphans unique attribute backing persisted data",
						attr.DeclaredBy),
				})
			}
		}
	}

	return violations, nil
}

// contractCollisions finds attribute names declared by multiple types in the
// hierarchy with disagreeing coercion contracts.
func contractCollisions(descriptors map[string]*TypeDescriptor, typeName string, labels []string) []Violation {
	var violations []Violation

	declarations := make(map[string]Attribute)

	for _, label := range labels {
		for _, attr := range descriptors[label].Attributes {
			prev, ok := declarations[attr.Name]
			if !ok {
				attr.DeclaredBy = label
				declarations[attr.Name] = attr

				continue
			}

			if !prev.ContractEqual(attr) {
				violations = append(violations, Violation{
					Type: typeName,
					Attr: attr.Name,
					Reason: fmt.Sprintf(
						"declared as %s by %q but as %s by %q",
						prev.Type, prev.DeclaredBy, attr.Type, label),
				})
			}
		}
	}

	return violations
}

// reconcileAttributes produces the property set an instance should carry
// under a new type: values that remain valid under the new effective set are
// kept, attributes the new type adds get their defaults, and attributes the
// new type does not know are dropped from the node's property map.
func reconcileAttributes(attrs []Attribute, props map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))

	for _, attr := range attrs {
		if value, ok := props[attr.Name]; ok {
			out[attr.Name] = value
			continue
		}

		out[attr.Name] = attr.Default
	}

	return out
}
