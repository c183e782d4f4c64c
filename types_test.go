package neotype_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/neotype"
)

func TestParseAttrType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  *neotype.AttrType
	}{
		{"string", neotype.TypeString},
		{"int", neotype.TypeInt},
		{"float", neotype.TypeFloat},
		{"bool", neotype.TypeBool},
		{"uuid", neotype.TypeUUID},
		{"[]string", neotype.ListOf(neotype.TypeString)},
		{"[][]int", neotype.ListOf(neotype.ListOf(neotype.TypeInt))},
		{" uuid ", neotype.TypeUUID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := neotype.ParseAttrType(tt.input)
			if err != nil {
				t.Fatalf("ParseAttrType(%q) error: %v", tt.input, err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAttrType(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseAttrType_Errors(t *testing.T) {
	t.Parallel()

	if _, err := neotype.ParseAttrType(""); !errors.Is(err, neotype.ErrEmptyTypeString) {
		t.Errorf("empty input: got %v, want ErrEmptyTypeString", err)
	}

	if _, err := neotype.ParseAttrType("decimal"); !errors.Is(err, neotype.ErrUnrecognizedType) {
		t.Errorf("unknown type: got %v, want ErrUnrecognizedType", err)
	}

	if _, err := neotype.ParseAttrType("[]"); !errors.Is(err, neotype.ErrEmptyTypeString) {
		t.Errorf("bare list: got %v, want ErrEmptyTypeString", err)
	}
}

func TestAttrType_Primitive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *neotype.AttrType
		want *neotype.AttrType
	}{
		{"uuid stores as string", neotype.TypeUUID, neotype.TypeString},
		{"string stores as itself", neotype.TypeString, neotype.TypeString},
		{"list of uuid stores as list of string",
			neotype.ListOf(neotype.TypeUUID), neotype.ListOf(neotype.TypeString)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.in.Primitive()
			if !got.Equal(tt.want) {
				t.Errorf("Primitive() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAttrType_String(t *testing.T) {
	t.Parallel()

	nested := neotype.ListOf(neotype.ListOf(neotype.TypeFloat))
	if got := nested.String(); got != "[][]float" {
		t.Errorf("String() = %q, want %q", got, "[][]float")
	}
}
