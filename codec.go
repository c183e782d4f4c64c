package neotype

import (
	"fmt"

	"github.com/google/uuid"
)

// Encode coerces an application-level value into the db-primitive form for
// the given attribute. The coercion is type-driven: the attribute's declared
// application type decides the conversion, not the runtime shape of the
// value. A nil value encodes to nil.
//
// Encode and Decode obey the round-trip law: for every value valid under the
// attribute's application type, Decode(Encode(v)) == v.
func Encode(typeName string, attr Attribute, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	return encodeValue(typeName, attr, attr.Type, value)
}

// Decode coerces a stored db primitive back into the application-level form
// for the given attribute. A nil primitive decodes to the attribute's
// default. A primitive that cannot be reparsed into the declared application
// type is a ValidationError: it means the store holds legacy or foreign data
// for this attribute.
func Decode(typeName string, attr Attribute, primitive any) (any, error) {
	if primitive == nil {
		return attr.Default, nil
	}

	return decodeValue(typeName, attr, attr.Type, primitive)
}

func encodeValue(typeName string, attr Attribute, t *AttrType, value any) (any, error) {
	switch t.Kind {
	case KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}

	case KindInt:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		}

	case KindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}

	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}

	case KindUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			// Accept canonical string input, but reject anything that would
			// not survive the decode reparse.
			parsed, err := uuid.Parse(v)
			if err != nil {
				break
			}

			return parsed.String(), nil
		}

	case KindList:
		seq, ok := asSequence(value)
		if !ok {
			break
		}

		out := make([]any, len(seq))
		for i, elem := range seq {
			if elem == nil {
				out[i] = nil
				continue
			}

			enc, err := encodeValue(typeName, attr, t.Elem, elem)
			if err != nil {
				return nil, err
			}

			out[i] = enc
		}

		return out, nil
	}

	return nil, &CoercionError{Type: typeName, Attr: attr.Name, Value: value, Want: t.String()}
}

func decodeValue(typeName string, attr Attribute, t *AttrType, primitive any) (any, error) {
	fail := func(reason string) (any, error) {
		return nil, &ValidationError{Type: typeName, Attr: attr.Name, Value: primitive, Reason: reason}
	}

	switch t.Kind {
	case KindString:
		if s, ok := primitive.(string); ok {
			return s, nil
		}

		return fail(fmt.Sprintf("expected string primitive, got %T", primitive))

	case KindInt:
		switch v := primitive.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		}

		return fail(fmt.Sprintf("expected integer primitive, got %T", primitive))

	case KindFloat:
		switch v := primitive.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}

		return fail(fmt.Sprintf("expected float primitive, got %T", primitive))

	case KindBool:
		if b, ok := primitive.(bool); ok {
			return b, nil
		}

		return fail(fmt.Sprintf("expected bool primitive, got %T", primitive))

	case KindUUID:
		s, ok := primitive.(string)
		if !ok {
			return fail(fmt.Sprintf("expected uuid string primitive, got %T", primitive))
		}

		parsed, err := uuid.Parse(s)
		if err != nil {
			return fail(err.Error())
		}

		return parsed, nil

	case KindList:
		seq, ok := asSequence(primitive)
		if !ok {
			return fail(fmt.Sprintf("expected sequence primitive, got %T", primitive))
		}

		out := make([]any, len(seq))
		for i, elem := range seq {
			if elem == nil {
				out[i] = nil
				continue
			}

			dec, err := decodeValue(typeName, attr, t.Elem, elem)
			if err != nil {
				return nil, err
			}

			out[i] = dec
		}

		return out, nil
	}

	return fail(fmt.Sprintf("unsupported attribute kind %q", t.Kind))
}

// asSequence normalizes the sequence shapes the driver and callers hand us.
func asSequence(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}

		return out, true
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}

		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}

		return out, true
	case []bool:
		out := make([]any, len(v))
		for i, b := range v {
			out[i] = b
		}

		return out, true
	}

	return nil, false
}
