package link

import (
	"fmt"

	"github.com/backkem/matter-tv/pkg/transport"
	"github.com/fxamacker/cbor/v2"
)

// encMode encodes frames deterministically with integer keys.
var encMode cbor.EncMode

// decMode tolerates unknown keys so newer peers can add fields.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create link CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create link CBOR decoder mode: %v", err))
	}
}

// Encode validates f and encodes it for the wire.
func Encode(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("link: encode %v: %w", f.Op, err)
	}
	if len(data) > transport.MaxPacketSize {
		return nil, fmt.Errorf("%w: %v is %d bytes", transport.ErrPacketTooLarge, f.Op, len(data))
	}
	return data, nil
}

// Decode parses and validates a frame.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}
