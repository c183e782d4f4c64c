package neotype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neotype"
)

func TestValidateBaseChange_Cycle(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()

	// Pet derives from Animal; pointing Animal back at Pet closes a cycle.
	violations, err := neotype.ValidateBaseChange(registry, "Animal", []string{"Pet"})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Reason, "cycle")
}

func TestValidateBaseChange_ContractCollision(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()
	mustRegister(t, registry, &neotype.TypeDescriptor{
		Name: "Inventory",
		Attributes: []neotype.Attribute{
			{Name: "name", Type: neotype.TypeInt},
		},
	})

	// Pet would inherit "name" as a string from Animal and as an int from
	// Inventory.
	violations, err := neotype.ValidateBaseChange(registry, "Pet", []string{"Animal", "Inventory"})
	require.NoError(t, err)
	require.Len(t, violations, 1)

	assert.Equal(t, "Pet", violations[0].Type)
	assert.Equal(t, "name", violations[0].Attr)
}

func TestValidateBaseChange_KindMix(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()
	mustRegister(t, registry, &neotype.TypeDescriptor{
		Name:         "Owns",
		Relationship: true,
	})

	violations, err := neotype.ValidateBaseChange(registry, "Pet", []string{"Owns"})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Reason, "kinds")
}

func TestValidateBaseChange_PersistedUniqueRemoval(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()
	require.NoError(t, registry.SetPersisted("Animal", "Pet"))

	// Dropping Animal removes the base that declares Pet's unique name, which
	// backs data already written under the constraint.
	violations, err := neotype.ValidateBaseChange(registry, "Pet", nil)
	require.NoError(t, err)
	require.Len(t, violations, 1)

	assert.Equal(t, "name", violations[0].Attr)
	assert.Contains(t, violations[0].Reason, "Animal")
}

func TestValidateBaseChange_UnpersistedRemovalAllowed(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()

	// Nothing is persisted, so no store-side expectation exists yet.
	violations, err := neotype.ValidateBaseChange(registry, "Pet", nil)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateBaseChange_DoesNotMutate(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()

	_, err := neotype.ValidateBaseChange(registry, "Animal", []string{"Pet"})
	require.NoError(t, err)

	// The original hierarchy is untouched and still queryable.
	labels, err := registry.LabelSet("Animal")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal"}, labels)
}

func TestValidateBaseChange_UnknownType(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()

	_, err := neotype.ValidateBaseChange(registry, "Ghost", nil)
	require.ErrorIs(t, err, neotype.ErrUnknownType)
}

func TestSetBases(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()
	mustRegister(t, registry, &neotype.TypeDescriptor{
		Name: "Domestic",
		Attributes: []neotype.Attribute{
			{Name: "household", Type: neotype.TypeString},
		},
	})

	require.NoError(t, registry.SetBases("Pet", []string{"Animal", "Domestic"}))

	labels, err := registry.LabelSet("Pet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pet", "Animal", "Domestic"}, labels)

	attrs, err := registry.EffectiveAttributes("Pet")
	require.NoError(t, err)

	_, ok := findAttr(attrs, "household")
	assert.True(t, ok, "effective set should pick up the new base's attribute")
}

func TestSetBases_ViolationLeavesHierarchyUnchanged(t *testing.T) {
	t.Parallel()

	registry := animalRegistry()

	err := registry.SetBases("Animal", []string{"Pet"})

	var structural *neotype.StructuralError
	require.ErrorAs(t, err, &structural)

	labels, err := registry.LabelSet("Animal")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal"}, labels)
}
