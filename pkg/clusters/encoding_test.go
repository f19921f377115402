package clusters

import (
	"context"
	"errors"
	"testing"

	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

func TestDecoder(t *testing.T) {
	v := Fields{
		0: datamodel.Uint(7),
		1: datamodel.Text("hello"),
		2: datamodel.Bool(true),
		3: datamodel.Float(1.5),
		4: datamodel.List(datamodel.Uint(1), datamodel.Uint(2)),
		5: datamodel.Int(-3),
	}.Value()

	d := NewRequestDecoder(v)
	if got := d.Uint(0); got != 7 {
		t.Errorf("Uint(0) = %d, want 7", got)
	}
	if got := d.String(1); got != "hello" {
		t.Errorf("String(1) = %q, want hello", got)
	}
	if got := d.Bool(2); !got {
		t.Error("Bool(2) = false, want true")
	}
	if got := d.Float(3); got != 1.5 {
		t.Errorf("Float(3) = %v, want 1.5", got)
	}
	if got := d.List(4); len(got) != 2 {
		t.Errorf("List(4) has %d items, want 2", len(got))
	}
	if got := d.Int(5); got != -3 {
		t.Errorf("Int(5) = %d, want -3", got)
	}
	if _, ok := d.OptUint(9); ok {
		t.Error("OptUint(9) ok = true for a missing field")
	}
	if got := d.OptString(9); got != "" {
		t.Errorf("OptString(9) = %q, want empty", got)
	}
	if err := d.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestDecoder_StickyError(t *testing.T) {
	d := NewRequestDecoder(Fields{1: datamodel.Text("x")}.Value())

	_ = d.Uint(0)
	if got := d.String(1); got != "" {
		t.Errorf("String(1) after failure = %q, want empty", got)
	}

	err := d.Err()
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Err() = %v, want ErrInvalidRequest", err)
	}
	if !errors.Is(err, datamodel.ErrMissingField) {
		t.Errorf("Err() = %v, want ErrMissingField", err)
	}
}

func TestDecoder_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		v       datamodel.Value
		read    func(d *Decoder)
		wantErr error
	}{
		{"absent is empty struct", datamodel.Absent(), func(d *Decoder) { d.OptUint(0) }, nil},
		{"not a struct", datamodel.Uint(1), func(d *Decoder) {}, datamodel.ErrWrongKind},
		{"wrong field kind", Fields{0: datamodel.Text("1")}.Value(), func(d *Decoder) { d.Uint(0) }, datamodel.ErrWrongKind},
		{"negative uint", Fields{0: datamodel.Int(-1)}.Value(), func(d *Decoder) { d.Uint(0) }, datamodel.ErrOutOfRange},
		{"null optional", Fields{0: datamodel.Null()}.Value(), func(d *Decoder) { d.OptBool(0) }, nil},
		{"struct field", Fields{0: datamodel.Uint(1)}.Value(), func(d *Decoder) { d.Struct(0) }, datamodel.ErrWrongKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewResponseDecoder(tt.v)
			tt.read(d)
			if !errors.Is(d.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", d.Err(), tt.wantErr)
			}
			if tt.wantErr != nil && !errors.Is(d.Err(), ErrInvalidResponse) {
				t.Errorf("Err() = %v, want ErrInvalidResponse", d.Err())
			}
		})
	}
}

func TestFields_DropsAbsent(t *testing.T) {
	v := Fields{0: datamodel.Uint(1), 1: OptionalText("")}.Value()
	if len(v.Fields) != 1 {
		t.Errorf("Fields = %v, want only tag 0", v.Fields)
	}
}

func TestRouter(t *testing.T) {
	var got datamodel.CommandID
	r := NewRouter().
		Handle(0x01, func(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
			got = req.Path.Command
			return Respond(Fields{0: datamodel.Uint(0)}.Value())
		}).
		Handle(0x00, func(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
			return InvalidCommand(errors.New("bad"))
		}).
		Generates(0x0A)

	resp, err := r.HandleCommand(context.Background(), contentapp.CommandRequest{Path: datamodel.CommandPath{Command: 0x01}})
	if err != nil || resp.Status != datamodel.StatusSuccess || got != 0x01 {
		t.Errorf("HandleCommand(0x01) = %+v, %v", resp, err)
	}

	resp, err = r.HandleCommand(context.Background(), contentapp.CommandRequest{Path: datamodel.CommandPath{Command: 0x00}})
	if err == nil || resp.Status != datamodel.StatusInvalidCommand {
		t.Errorf("HandleCommand(0x00) = %+v, %v, want InvalidCommand", resp, err)
	}

	resp, err = r.HandleCommand(context.Background(), contentapp.CommandRequest{Path: datamodel.CommandPath{Command: 0x07}})
	if !errors.Is(err, contentapp.ErrUnsupportedCommand) || resp.Status != datamodel.StatusUnsupportedCommand {
		t.Errorf("HandleCommand(0x07) = %+v, %v, want UnsupportedCommand", resp, err)
	}

	accepted := r.AcceptedCommands()
	if len(accepted) != 2 || accepted[0] != 0x00 || accepted[1] != 0x01 {
		t.Errorf("AcceptedCommands() = %v, want [0 1]", accepted)
	}
	if gen := r.GeneratedCommands(); len(gen) != 1 || gen[0] != 0x0A {
		t.Errorf("GeneratedCommands() = %v, want [10]", gen)
	}
}
