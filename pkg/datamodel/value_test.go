package datamodel

import (
	"errors"
	"testing"
)

func TestValue_ZeroIsAbsent(t *testing.T) {
	var v Value
	if !v.IsAbsent() {
		t.Error("zero Value should be absent")
	}
	if !Absent().Equal(v) {
		t.Error("Absent() should equal the zero Value")
	}
	if Null().IsAbsent() {
		t.Error("Null() should not be absent")
	}
}

func TestValue_Accessors(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		wantU   uint64
		wantErr error
	}{
		{"uint", Uint(3), 3, nil},
		{"positive int", Int(7), 7, nil},
		{"negative int", Int(-1), 0, ErrOutOfRange},
		{"string", Text("x"), 0, ErrWrongKind},
		{"absent", Absent(), 0, ErrWrongKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.AsUint()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AsUint() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsUint() error = %v", err)
			}
			if got != tt.wantU {
				t.Errorf("AsUint() = %d, want %d", got, tt.wantU)
			}
		})
	}
}

func TestValue_AsFloatConvertsIntegers(t *testing.T) {
	f, err := Uint(2).AsFloat()
	if err != nil || f != 2 {
		t.Errorf("Uint(2).AsFloat() = %v, %v", f, err)
	}
	f, err = Float(0.5).AsFloat()
	if err != nil || f != 0.5 {
		t.Errorf("Float(0.5).AsFloat() = %v, %v", f, err)
	}
}

func TestValue_StructFields(t *testing.T) {
	v := Struct(map[uint32]Value{
		0: Uint(10),
		1: Text("hello"),
		2: Absent(),
	})

	if len(v.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2 (absent dropped)", len(v.Fields))
	}
	if s, _ := v.Field(1).AsString(); s != "hello" {
		t.Errorf("Field(1) = %q, want %q", s, "hello")
	}
	if !v.Field(9).IsAbsent() {
		t.Error("Field(9) should be absent")
	}
	if _, err := v.RequireField(2); !errors.Is(err, ErrMissingField) {
		t.Errorf("RequireField(2) error = %v, want ErrMissingField", err)
	}
	if _, err := Uint(1).RequireField(0); !errors.Is(err, ErrWrongKind) {
		t.Errorf("RequireField on Uint error = %v, want ErrWrongKind", err)
	}
}

func TestValue_CloneIsDeep(t *testing.T) {
	orig := List(
		Struct(map[uint32]Value{0: Octets([]byte{1, 2})}),
		Text("b"),
	)
	c := orig.Clone()

	c.Items[0].Fields[0].Bytes[0] = 0xFF
	c.Items[1] = Text("changed")

	if orig.Items[0].Fields[0].Bytes[0] != 1 {
		t.Error("Clone shares byte storage with the original")
	}
	if s, _ := orig.Items[1].AsString(); s != "b" {
		t.Error("Clone shares list storage with the original")
	}
}

func TestValue_Equal(t *testing.T) {
	a := Struct(map[uint32]Value{0: Uint(1), 1: List(Text("x"))})
	b := Struct(map[uint32]Value{0: Uint(1), 1: List(Text("x"))})
	c := Struct(map[uint32]Value{0: Uint(1), 1: List(Text("y"))})

	if !a.Equal(b) {
		t.Error("equal structs reported unequal")
	}
	if a.Equal(c) {
		t.Error("different structs reported equal")
	}
	if Uint(1).Equal(Int(1)) {
		t.Error("values of different kinds reported equal")
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Absent(), "<absent>"},
		{Uint(2), "2"},
		{Text("a"), `"a"`},
		{List(Uint(1), Uint(2)), "[1, 2]"},
		{Struct(map[uint32]Value{1: Bool(true), 0: Null()}), "{0: null, 1: true}"},
	}
	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	if StatusSuccess.String() != "Success" {
		t.Errorf("StatusSuccess.String() = %q", StatusSuccess.String())
	}
	if !StatusSuccess.IsSuccess() || StatusFailure.IsSuccess() {
		t.Error("IsSuccess mismatch")
	}
	if Status(0x42).String() != "Unknown" {
		t.Errorf("Status(0x42).String() = %q, want Unknown", Status(0x42).String())
	}
}

func TestIsGlobalAttribute(t *testing.T) {
	if !IsGlobalAttribute(GlobalAttrFeatureMap) {
		t.Error("FeatureMap should be global")
	}
	if IsGlobalAttribute(0x0000) {
		t.Error("0x0000 should not be global")
	}
	if GlobalAttributeName(GlobalAttrAttributeList) != "AttributeList" {
		t.Errorf("GlobalAttributeName = %q", GlobalAttributeName(GlobalAttrAttributeList))
	}
}
