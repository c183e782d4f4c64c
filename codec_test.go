package neotype_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neotype"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("c5b07e1e-676e-4e4f-8e6e-0d1c0f3a2b4d")

	tests := []struct {
		name  string
		attr  neotype.Attribute
		value any
	}{
		{
			name:  "string",
			attr:  neotype.Attribute{Name: "title", Type: neotype.TypeString},
			value: "héllo wörld", // non-ASCII survives
		},
		{
			name:  "int",
			attr:  neotype.Attribute{Name: "count", Type: neotype.TypeInt},
			value: int64(42),
		},
		{
			name:  "float",
			attr:  neotype.Attribute{Name: "weight", Type: neotype.TypeFloat},
			value: 3.25,
		},
		{
			name:  "bool",
			attr:  neotype.Attribute{Name: "active", Type: neotype.TypeBool},
			value: true,
		},
		{
			name:  "uuid",
			attr:  neotype.Attribute{Name: "id", Type: neotype.TypeUUID},
			value: id,
		},
		{
			name:  "list of strings",
			attr:  neotype.Attribute{Name: "tags", Type: neotype.ListOf(neotype.TypeString)},
			value: []any{"a", "b", "c"},
		},
		{
			name:  "nested lists preserve order",
			attr:  neotype.Attribute{Name: "grid", Type: neotype.ListOf(neotype.ListOf(neotype.TypeInt))},
			value: []any{[]any{int64(1), int64(2)}, []any{int64(3)}},
		},
		{
			name:  "list of uuids",
			attr:  neotype.Attribute{Name: "ids", Type: neotype.ListOf(neotype.TypeUUID)},
			value: []any{id},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := neotype.Encode("T", tt.attr, tt.value)
			require.NoError(t, err)

			decoded, err := neotype.Decode("T", tt.attr, encoded)
			require.NoError(t, err)

			assert.Equal(t, tt.value, decoded)
		})
	}
}

func TestEncode_UUIDStoresAsString(t *testing.T) {
	t.Parallel()

	attr := neotype.Attribute{Name: "id", Type: neotype.TypeUUID}
	id := uuid.New()

	encoded, err := neotype.Encode("T", attr, id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), encoded)
}

func TestEncode_CoercionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attr  neotype.Attribute
		value any
	}{
		{
			name:  "string attr rejects int",
			attr:  neotype.Attribute{Name: "title", Type: neotype.TypeString},
			value: 42,
		},
		{
			name:  "int attr rejects string",
			attr:  neotype.Attribute{Name: "count", Type: neotype.TypeInt},
			value: "42",
		},
		{
			name:  "uuid attr rejects malformed string",
			attr:  neotype.Attribute{Name: "id", Type: neotype.TypeUUID},
			value: "not-a-uuid",
		},
		{
			name:  "list attr rejects scalar",
			attr:  neotype.Attribute{Name: "tags", Type: neotype.ListOf(neotype.TypeString)},
			value: "solo",
		},
		{
			name:  "nested element of wrong type",
			attr:  neotype.Attribute{Name: "grid", Type: neotype.ListOf(neotype.ListOf(neotype.TypeInt))},
			value: []any{[]any{"oops"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := neotype.Encode("Animal", tt.attr, tt.value)
			require.Error(t, err)

			var coercionErr *neotype.CoercionError
			require.ErrorAs(t, err, &coercionErr)
			assert.Equal(t, "Animal", coercionErr.Type)
			assert.Equal(t, tt.attr.Name, coercionErr.Attr)
		})
	}
}

func TestDecode_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		attr      neotype.Attribute
		primitive any
	}{
		{
			name:      "legacy non-uuid string under uuid attr",
			attr:      neotype.Attribute{Name: "id", Type: neotype.TypeUUID},
			primitive: "legacy-0001",
		},
		{
			name:      "string where int expected",
			attr:      neotype.Attribute{Name: "count", Type: neotype.TypeInt},
			primitive: "forty-two",
		},
		{
			name:      "scalar where sequence expected",
			attr:      neotype.Attribute{Name: "tags", Type: neotype.ListOf(neotype.TypeString)},
			primitive: int64(7),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := neotype.Decode("Animal", tt.attr, tt.primitive)
			require.Error(t, err)

			var validationErr *neotype.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "Animal", validationErr.Type)
			assert.Equal(t, tt.attr.Name, validationErr.Attr)
		})
	}
}

func TestDecode_NilUsesDefault(t *testing.T) {
	t.Parallel()

	attr := neotype.Attribute{Name: "owner", Type: neotype.TypeString, Default: "unowned"}

	decoded, err := neotype.Decode("Pet", attr, nil)
	require.NoError(t, err)
	assert.Equal(t, "unowned", decoded)
}

func TestEncode_NormalizesIntWidths(t *testing.T) {
	t.Parallel()

	attr := neotype.Attribute{Name: "count", Type: neotype.TypeInt}

	for _, value := range []any{int(7), int32(7), int64(7)} {
		encoded, err := neotype.Encode("T", attr, value)
		require.NoError(t, err)
		assert.Equal(t, int64(7), encoded)
	}
}

func TestDecode_DriverSequenceShapes(t *testing.T) {
	t.Parallel()

	attr := neotype.Attribute{Name: "tags", Type: neotype.ListOf(neotype.TypeString)}

	decoded, err := neotype.Decode("T", attr, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, decoded)
}
