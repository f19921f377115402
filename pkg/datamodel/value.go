package datamodel

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindAbsent marks a value that was never configured. It is the zero Kind.
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindStruct
	KindList
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "Absent"
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindUint:
		return "Uint"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindStruct:
		return "Struct"
	case KindList:
		return "List"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged attribute or command field value.
//
// Enumerations and bitmaps are carried as KindUint. Struct fields are keyed
// by their context tag. The zero Value is the absent sentinel.
type Value struct {
	Kind   Kind             `cbor:"1,keyasint"`
	Bool   bool             `cbor:"2,keyasint,omitempty"`
	Int    int64            `cbor:"3,keyasint,omitempty"`
	Uint   uint64           `cbor:"4,keyasint,omitempty"`
	Float  float64          `cbor:"5,keyasint,omitempty"`
	Str    string           `cbor:"6,keyasint,omitempty"`
	Bytes  []byte           `cbor:"7,keyasint,omitempty"`
	Fields map[uint32]Value `cbor:"8,keyasint,omitempty"`
	Items  []Value          `cbor:"9,keyasint,omitempty"`
}

// Absent returns the absent sentinel.
func Absent() Value { return Value{} }

// Null returns an explicit null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Int returns a signed integer value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Uint returns an unsigned integer value. Enums and bitmaps use this kind.
func Uint(v uint64) Value { return Value{Kind: KindUint, Uint: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// Text returns a UTF-8 string value.
func Text(v string) Value { return Value{Kind: KindString, Str: v} }

// Octets returns an octet string value. The slice is copied.
func Octets(v []byte) Value {
	return Value{Kind: KindBytes, Bytes: append([]byte(nil), v...)}
}

// Struct returns a struct value. Absent fields are dropped.
func Struct(fields map[uint32]Value) Value {
	out := make(map[uint32]Value, len(fields))
	for tag, f := range fields {
		if f.IsAbsent() {
			continue
		}
		out[tag] = f.Clone()
	}
	return Value{Kind: KindStruct, Fields: out}
}

// List returns a list value.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return Value{Kind: KindList, Items: out}
}

// IsAbsent returns true if the value was never configured.
func (v Value) IsAbsent() bool {
	return v.Kind == KindAbsent
}

// IsNull returns true for an explicit null.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("%w: have %s, want Bool", ErrWrongKind, v.Kind)
	}
	return v.Bool, nil
}

// AsUint returns v as an unsigned integer. Non-negative Int values are
// accepted as well.
func (v Value) AsUint() (uint64, error) {
	switch v.Kind {
	case KindUint:
		return v.Uint, nil
	case KindInt:
		if v.Int < 0 {
			return 0, fmt.Errorf("%w: %d is negative", ErrOutOfRange, v.Int)
		}
		return uint64(v.Int), nil
	default:
		return 0, fmt.Errorf("%w: have %s, want Uint", ErrWrongKind, v.Kind)
	}
}

// AsInt returns v as a signed integer. Uint values that fit are accepted.
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindUint:
		if v.Uint > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrOutOfRange, v.Uint)
		}
		return int64(v.Uint), nil
	default:
		return 0, fmt.Errorf("%w: have %s, want Int", ErrWrongKind, v.Kind)
	}
}

// AsFloat returns v as a float. Integer kinds are converted.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.Float, nil
	case KindInt:
		return float64(v.Int), nil
	case KindUint:
		return float64(v.Uint), nil
	default:
		return 0, fmt.Errorf("%w: have %s, want Float", ErrWrongKind, v.Kind)
	}
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("%w: have %s, want String", ErrWrongKind, v.Kind)
	}
	return v.Str, nil
}

// AsBytes returns a copy of the octet string held by v.
func (v Value) AsBytes() ([]byte, error) {
	if v.Kind != KindBytes {
		return nil, fmt.Errorf("%w: have %s, want Bytes", ErrWrongKind, v.Kind)
	}
	return append([]byte(nil), v.Bytes...), nil
}

// AsList returns the items of a list value.
func (v Value) AsList() ([]Value, error) {
	if v.Kind != KindList {
		return nil, fmt.Errorf("%w: have %s, want List", ErrWrongKind, v.Kind)
	}
	return v.Items, nil
}

// Field returns the struct field with the given tag, or the absent sentinel.
func (v Value) Field(tag uint32) Value {
	if v.Kind != KindStruct {
		return Value{}
	}
	return v.Fields[tag]
}

// RequireField returns the struct field with the given tag or ErrMissingField.
func (v Value) RequireField(tag uint32) (Value, error) {
	if v.Kind != KindStruct {
		return Value{}, fmt.Errorf("%w: have %s, want Struct", ErrWrongKind, v.Kind)
	}
	f, ok := v.Fields[tag]
	if !ok || f.IsAbsent() {
		return Value{}, fmt.Errorf("%w: tag %d", ErrMissingField, tag)
	}
	return f, nil
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	if v.Bytes != nil {
		out.Bytes = append([]byte(nil), v.Bytes...)
	}
	if v.Fields != nil {
		out.Fields = make(map[uint32]Value, len(v.Fields))
		for tag, f := range v.Fields {
			out.Fields[tag] = f.Clone()
		}
	}
	if v.Items != nil {
		out.Items = make([]Value, len(v.Items))
		for i, item := range v.Items {
			out.Items[i] = item.Clone()
		}
	}
	return out
}

// Equal reports whether v and o hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindUint:
		return v.Uint == o.Uint
	case KindFloat:
		return v.Float == o.Float
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindStruct:
		if len(v.Fields) != len(o.Fields) {
			return false
		}
		for tag, f := range v.Fields {
			of, ok := o.Fields[tag]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Interface converts v into plain Go values suitable for JSON encoding.
// Struct fields become map[string]any keyed by the decimal tag.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindUint:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindStruct:
		m := make(map[string]any, len(v.Fields))
		for tag, f := range v.Fields {
			m[fmt.Sprintf("%d", tag)] = f.Interface()
		}
		return m
	case KindList:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.Interface()
		}
		return items
	default:
		return nil
	}
}

// String returns a compact human-readable rendering of v.
func (v Value) String() string {
	switch v.Kind {
	case KindAbsent:
		return "<absent>"
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case KindStruct:
		tags := make([]uint32, 0, len(v.Fields))
		for tag := range v.Fields {
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
		parts := make([]string, len(tags))
		for i, tag := range tags {
			parts[i] = fmt.Sprintf("%d: %s", tag, v.Fields[tag])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindList:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Kind.String()
	}
}
