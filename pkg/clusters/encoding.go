package clusters

import (
	"errors"
	"fmt"

	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Command field errors.
var (
	ErrInvalidRequest  = errors.New("clusters: invalid command request")
	ErrInvalidResponse = errors.New("clusters: invalid command response")
)

// Fields collects struct fields by context tag.
type Fields map[uint32]datamodel.Value

// Value returns the fields as a struct value. Absent entries are dropped,
// so optional fields can be set unconditionally.
func (f Fields) Value() datamodel.Value {
	return datamodel.Struct(f)
}

// OptionalText returns a string value, or absent for "".
func OptionalText(s string) datamodel.Value {
	if s == "" {
		return datamodel.Absent()
	}
	return datamodel.Text(s)
}

// OptionalOctets returns an octet string value, or absent for an empty
// slice.
func OptionalOctets(b []byte) datamodel.Value {
	if len(b) == 0 {
		return datamodel.Absent()
	}
	return datamodel.Octets(b)
}

// Decoder reads typed fields from a struct value. The first failure is
// kept and later reads return zero values; check Err after the last read.
type Decoder struct {
	v    datamodel.Value
	kind error
	err  error
}

// NewRequestDecoder decodes command request fields. Failures wrap
// ErrInvalidRequest. An absent value is read as an empty struct.
func NewRequestDecoder(v datamodel.Value) *Decoder {
	return newDecoder(v, ErrInvalidRequest)
}

// NewResponseDecoder decodes command response fields. Failures wrap
// ErrInvalidResponse.
func NewResponseDecoder(v datamodel.Value) *Decoder {
	return newDecoder(v, ErrInvalidResponse)
}

// NewValueDecoder decodes a struct-valued attribute. Failures wrap
// datamodel.ErrWrongKind or datamodel.ErrMissingField only.
func NewValueDecoder(v datamodel.Value) *Decoder {
	return newDecoder(v, nil)
}

func newDecoder(v datamodel.Value, kind error) *Decoder {
	d := &Decoder{v: v, kind: kind}
	switch v.Kind {
	case datamodel.KindStruct:
	case datamodel.KindAbsent:
		d.v = datamodel.Struct(nil)
	default:
		d.fail(fmt.Errorf("%w: have %s, want Struct", datamodel.ErrWrongKind, v.Kind))
	}
	return d
}

func (d *Decoder) fail(err error) {
	if d.err != nil {
		return
	}
	if d.kind != nil {
		err = fmt.Errorf("%w: %w", d.kind, err)
	}
	d.err = err
}

// Err returns the first decode failure.
func (d *Decoder) Err() error {
	return d.err
}

// Has reports whether the field with tag is present.
func (d *Decoder) Has(tag uint32) bool {
	return !d.v.Field(tag).IsAbsent()
}

// Field returns the raw field, or absent.
func (d *Decoder) Field(tag uint32) datamodel.Value {
	return d.v.Field(tag)
}

func (d *Decoder) require(tag uint32) (datamodel.Value, bool) {
	if d.err != nil {
		return datamodel.Value{}, false
	}
	f, err := d.v.RequireField(tag)
	if err != nil {
		d.fail(err)
		return datamodel.Value{}, false
	}
	return f, true
}

func (d *Decoder) optional(tag uint32) (datamodel.Value, bool) {
	if d.err != nil {
		return datamodel.Value{}, false
	}
	f := d.v.Field(tag)
	if f.IsAbsent() || f.IsNull() {
		return datamodel.Value{}, false
	}
	return f, true
}

func (d *Decoder) check(tag uint32, err error) {
	if err != nil {
		d.fail(fmt.Errorf("tag %d: %w", tag, err))
	}
}

// Uint reads a required unsigned field.
func (d *Decoder) Uint(tag uint32) uint64 {
	f, ok := d.require(tag)
	if !ok {
		return 0
	}
	n, err := f.AsUint()
	d.check(tag, err)
	return n
}

// OptUint reads an optional unsigned field.
func (d *Decoder) OptUint(tag uint32) (uint64, bool) {
	f, ok := d.optional(tag)
	if !ok {
		return 0, false
	}
	n, err := f.AsUint()
	d.check(tag, err)
	return n, err == nil
}

// Int reads a required signed field.
func (d *Decoder) Int(tag uint32) int64 {
	f, ok := d.require(tag)
	if !ok {
		return 0
	}
	n, err := f.AsInt()
	d.check(tag, err)
	return n
}

// Float reads a required floating point field.
func (d *Decoder) Float(tag uint32) float64 {
	f, ok := d.require(tag)
	if !ok {
		return 0
	}
	n, err := f.AsFloat()
	d.check(tag, err)
	return n
}

// OptFloat reads an optional floating point field.
func (d *Decoder) OptFloat(tag uint32) (float64, bool) {
	f, ok := d.optional(tag)
	if !ok {
		return 0, false
	}
	n, err := f.AsFloat()
	d.check(tag, err)
	return n, err == nil
}

// Bool reads a required boolean field.
func (d *Decoder) Bool(tag uint32) bool {
	f, ok := d.require(tag)
	if !ok {
		return false
	}
	b, err := f.AsBool()
	d.check(tag, err)
	return b
}

// OptBool reads an optional boolean field.
func (d *Decoder) OptBool(tag uint32) (bool, bool) {
	f, ok := d.optional(tag)
	if !ok {
		return false, false
	}
	b, err := f.AsBool()
	d.check(tag, err)
	return b, err == nil
}

// String reads a required string field.
func (d *Decoder) String(tag uint32) string {
	f, ok := d.require(tag)
	if !ok {
		return ""
	}
	s, err := f.AsString()
	d.check(tag, err)
	return s
}

// OptString reads an optional string field. A missing field reads as "".
func (d *Decoder) OptString(tag uint32) string {
	f, ok := d.optional(tag)
	if !ok {
		return ""
	}
	s, err := f.AsString()
	d.check(tag, err)
	return s
}

// OptBytes reads an optional octet string field.
func (d *Decoder) OptBytes(tag uint32) []byte {
	f, ok := d.optional(tag)
	if !ok {
		return nil
	}
	b, err := f.AsBytes()
	d.check(tag, err)
	return b
}

// OptStruct reads an optional struct field. ok is false when it is missing
// or null.
func (d *Decoder) OptStruct(tag uint32) (datamodel.Value, bool) {
	f, ok := d.optional(tag)
	if !ok {
		return datamodel.Value{}, false
	}
	if f.Kind != datamodel.KindStruct {
		d.check(tag, fmt.Errorf("%w: have %s, want Struct", datamodel.ErrWrongKind, f.Kind))
		return datamodel.Value{}, false
	}
	return f, true
}

// Struct reads a required struct field.
func (d *Decoder) Struct(tag uint32) datamodel.Value {
	f, ok := d.require(tag)
	if !ok {
		return datamodel.Value{}
	}
	if f.Kind != datamodel.KindStruct {
		d.check(tag, fmt.Errorf("%w: have %s, want Struct", datamodel.ErrWrongKind, f.Kind))
		return datamodel.Value{}
	}
	return f
}

// List reads a list field. A missing field reads as an empty list.
func (d *Decoder) List(tag uint32) []datamodel.Value {
	f, ok := d.optional(tag)
	if !ok {
		return nil
	}
	items, err := f.AsList()
	d.check(tag, err)
	return items
}
