package neotype

import "unicode"

// Store backend names.
const (
	StoreNeo4j = "neo4j"
)

// Reserved schema vocabulary. These labels and relationship types implement
// the type catalog inside the graph and may not be used as registered type
// names.
const (
	// TypeCatalogLabel marks the catalog node that represents a registered
	// type inside the store.
	TypeCatalogLabel = "NeotypeType"

	// RelInstanceOf links an instance node to its type's catalog node. It is
	// how an instance's runtime type is determined and altered without
	// deleting the node.
	RelInstanceOf = "INSTANCE_OF"

	// RelIsA links a type's catalog node to the catalog nodes of its bases.
	RelIsA = "ISA"

	// TypeProperty is the discriminator property stored on every persisted
	// node and relationship.
	TypeProperty = "__type__"
)

// reservedLabels are labels stripped before runtime type resolution.
var reservedLabels = map[string]bool{
	TypeCatalogLabel: true,
}

// isValidName reports whether s can be used as a type or attribute name.
// Names become Cypher labels and property keys, so they are restricted to
// identifier characters.
func isValidName(s string) bool {
	if s == "" || reservedLabels[s] {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
		} else {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return false
			}
		}
	}

	return true
}
