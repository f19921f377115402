package link

import (
	"fmt"
	"time"

	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Op identifies the kind of a Frame.
type Op uint8

// Frame ops. Every request op is followed by its response op.
const (
	OpHello Op = iota + 1
	OpHelloResponse
	OpInvoke
	OpInvokeResponse
	OpRead
	OpReadResponse
	OpSubscribe
	OpSubscribeResponse
	OpReport
	OpUnsubscribe
	OpUnsubscribeResponse
	OpBye
)

// String returns the name of the op.
func (o Op) String() string {
	switch o {
	case OpHello:
		return "Hello"
	case OpHelloResponse:
		return "HelloResponse"
	case OpInvoke:
		return "Invoke"
	case OpInvokeResponse:
		return "InvokeResponse"
	case OpRead:
		return "Read"
	case OpReadResponse:
		return "ReadResponse"
	case OpSubscribe:
		return "Subscribe"
	case OpSubscribeResponse:
		return "SubscribeResponse"
	case OpReport:
		return "Report"
	case OpUnsubscribe:
		return "Unsubscribe"
	case OpUnsubscribeResponse:
		return "UnsubscribeResponse"
	case OpBye:
		return "Bye"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// IsValid reports whether o is a known op.
func (o Op) IsValid() bool {
	return o >= OpHello && o <= OpBye
}

// IsResponse reports whether o answers a request.
func (o Op) IsResponse() bool {
	switch o {
	case OpHelloResponse, OpInvokeResponse, OpReadResponse, OpSubscribeResponse, OpUnsubscribeResponse:
		return true
	}
	return false
}

// EndpointInfo describes one hosted endpoint in a HelloResponse.
type EndpointInfo struct {
	ID          uint16   `cbor:"1,keyasint"`
	VendorID    uint16   `cbor:"2,keyasint,omitempty"`
	ProductID   uint16   `cbor:"3,keyasint,omitempty"`
	DeviceTypes []uint32 `cbor:"4,keyasint,omitempty"`
	Clusters    []uint32 `cbor:"5,keyasint,omitempty"`
}

// Frame is the single message type of the protocol. Fields not used by an
// op are left zero and omitted on the wire.
type Frame struct {
	Op Op `cbor:"1,keyasint"`

	// ID correlates a response with its request.
	ID uint32 `cbor:"2,keyasint,omitempty"`

	Endpoint  uint16 `cbor:"3,keyasint,omitempty"`
	Cluster   uint32 `cbor:"4,keyasint,omitempty"`
	Attribute uint32 `cbor:"5,keyasint,omitempty"`
	Command   uint32 `cbor:"6,keyasint,omitempty"`

	// SubscriptionID is chosen by the client when it subscribes.
	SubscriptionID uint32 `cbor:"7,keyasint,omitempty"`

	// Report intervals in milliseconds.
	MinIntervalMs uint32 `cbor:"8,keyasint,omitempty"`
	MaxIntervalMs uint32 `cbor:"9,keyasint,omitempty"`

	Status datamodel.Status `cbor:"10,keyasint,omitempty"`

	// Value carries command fields, read results and reported values. An
	// absent value in a Report is a heartbeat without data.
	Value datamodel.Value `cbor:"11,keyasint"`

	// Payload carries a pre-serialized command response.
	Payload []byte `cbor:"12,keyasint,omitempty"`

	Endpoints []EndpointInfo `cbor:"13,keyasint,omitempty"`

	// Error is a human readable reason for a non-success Status.
	Error string `cbor:"14,keyasint,omitempty"`

	// Seq numbers the reports of one subscription, starting at 1.
	Seq uint32 `cbor:"15,keyasint,omitempty"`

	// Session identifies the server-side session created by Hello.
	Session string `cbor:"16,keyasint,omitempty"`
}

// AttributePath returns the attribute path addressed by the frame.
func (f *Frame) AttributePath() datamodel.AttributePath {
	return datamodel.AttributePath{
		Endpoint:  datamodel.EndpointID(f.Endpoint),
		Cluster:   datamodel.ClusterID(f.Cluster),
		Attribute: datamodel.AttributeID(f.Attribute),
	}
}

// CommandPath returns the command path addressed by the frame.
func (f *Frame) CommandPath() datamodel.CommandPath {
	return datamodel.CommandPath{
		Endpoint: datamodel.EndpointID(f.Endpoint),
		Cluster:  datamodel.ClusterID(f.Cluster),
		Command:  datamodel.CommandID(f.Command),
	}
}

// SetAttributePath addresses the frame to p.
func (f *Frame) SetAttributePath(p datamodel.AttributePath) {
	f.Endpoint = uint16(p.Endpoint)
	f.Cluster = uint32(p.Cluster)
	f.Attribute = uint32(p.Attribute)
}

// SetCommandPath addresses the frame to p.
func (f *Frame) SetCommandPath(p datamodel.CommandPath) {
	f.Endpoint = uint16(p.Endpoint)
	f.Cluster = uint32(p.Cluster)
	f.Command = uint32(p.Command)
}

// MinInterval returns the minimum report interval.
func (f *Frame) MinInterval() time.Duration {
	return time.Duration(f.MinIntervalMs) * time.Millisecond
}

// MaxInterval returns the maximum report interval.
func (f *Frame) MaxInterval() time.Duration {
	return time.Duration(f.MaxIntervalMs) * time.Millisecond
}

// Validate checks the fields required by the frame's op.
func (f *Frame) Validate() error {
	if !f.Op.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidOp, f.Op)
	}
	switch f.Op {
	case OpSubscribe, OpUnsubscribe, OpReport:
		if f.SubscriptionID == 0 {
			return fmt.Errorf("%w: %v without subscription ID", ErrInvalidFrame, f.Op)
		}
	}
	if f.Op.IsResponse() || f.Op == OpHello || f.Op == OpInvoke || f.Op == OpRead || f.Op == OpSubscribe || f.Op == OpUnsubscribe {
		if f.ID == 0 {
			return fmt.Errorf("%w: %v without request ID", ErrInvalidFrame, f.Op)
		}
	}
	return nil
}

func durationMs(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
