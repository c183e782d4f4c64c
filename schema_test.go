package neotype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neotype"
)

const animalSchema = `
types:
  Pet:
    bases: [Animal]
    attributes:
      owner: {type: string, default: ""}
  Animal:
    attributes:
      name: {type: string, unique: true}
      legs: {type: int, indexed: true, default: 4}
      tags: {type: "[]string"}
  Owns:
    relationship: true
    attributes:
      since: {type: int}
`

func TestSchemaFile_Apply(t *testing.T) {
	t.Parallel()

	schema, err := neotype.ParseSchema([]byte(animalSchema))
	require.NoError(t, err)

	registry := neotype.NewTypeRegistry()
	require.NoError(t, schema.Apply(registry))

	// Pet is declared before its base in the file; Apply orders bases first.
	assert.Equal(t, []string{"Animal", "Owns", "Pet"}, registry.Names())

	labels, err := registry.LabelSet("Pet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pet", "Animal"}, labels)

	name, err := registry.EffectiveAttribute("Animal", "name")
	require.NoError(t, err)
	assert.True(t, name.Unique)
	assert.True(t, name.Type.Equal(neotype.TypeString))

	// yaml decodes integers as int; defaults are lifted to the attribute's
	// application type.
	legs, err := registry.EffectiveAttribute("Animal", "legs")
	require.NoError(t, err)
	assert.Equal(t, int64(4), legs.Default)

	tags, err := registry.EffectiveAttribute("Animal", "tags")
	require.NoError(t, err)
	assert.True(t, tags.Type.Equal(neotype.ListOf(neotype.TypeString)))

	owns, err := registry.Resolve("Owns")
	require.NoError(t, err)
	assert.True(t, owns.Relationship)
}

func TestSchemaFile_Apply_UndeclaredBase(t *testing.T) {
	t.Parallel()

	schema, err := neotype.ParseSchema([]byte(`
types:
  Pet:
    bases: [Animal]
`))
	require.NoError(t, err)

	err = schema.Apply(neotype.NewTypeRegistry())
	require.ErrorIs(t, err, neotype.ErrUnknownType)
}

func TestSchemaFile_Apply_BaseCycle(t *testing.T) {
	t.Parallel()

	schema, err := neotype.ParseSchema([]byte(`
types:
  A:
    bases: [B]
  B:
    bases: [A]
`))
	require.NoError(t, err)

	err = schema.Apply(neotype.NewTypeRegistry())

	var structural *neotype.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Contains(t, structural.Reason, "cycle")
}

func TestSchemaFile_Apply_BadAttrType(t *testing.T) {
	t.Parallel()

	schema, err := neotype.ParseSchema([]byte(`
types:
  Animal:
    attributes:
      name: {type: varchar}
`))
	require.NoError(t, err)

	err = schema.Apply(neotype.NewTypeRegistry())
	require.ErrorIs(t, err, neotype.ErrUnrecognizedType)
}
