// Package datamodel provides the identifiers, paths, status codes and the
// tagged attribute value shared by content apps and casting clients.
//
// A Value is deliberately schema-free: stores keep whatever a cluster writes
// and never validate domain ranges. Cluster packages convert between Values
// and their typed structs.
package datamodel

// Status is an interaction status code returned with command responses.
type Status uint8

// Status codes.
const (
	StatusSuccess              Status = 0x00
	StatusFailure              Status = 0x01
	StatusUnsupportedAccess    Status = 0x7e
	StatusUnsupportedEndpoint  Status = 0x7f
	StatusUnsupportedCommand   Status = 0x81
	StatusInvalidCommand       Status = 0x85
	StatusUnsupportedAttribute Status = 0x86
	StatusConstraintError      Status = 0x87
	StatusNotFound             Status = 0x8b
	StatusInvalidDataType      Status = 0x8d
	StatusTimeout              Status = 0x94
	StatusBusy                 Status = 0x9c
	StatusUnsupportedCluster   Status = 0xc3
	StatusInvalidInState       Status = 0xcb
)

// String returns the name of the status code.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusUnsupportedAccess:
		return "UnsupportedAccess"
	case StatusUnsupportedEndpoint:
		return "UnsupportedEndpoint"
	case StatusUnsupportedCommand:
		return "UnsupportedCommand"
	case StatusInvalidCommand:
		return "InvalidCommand"
	case StatusUnsupportedAttribute:
		return "UnsupportedAttribute"
	case StatusConstraintError:
		return "ConstraintError"
	case StatusNotFound:
		return "NotFound"
	case StatusInvalidDataType:
		return "InvalidDataType"
	case StatusTimeout:
		return "Timeout"
	case StatusBusy:
		return "Busy"
	case StatusUnsupportedCluster:
		return "UnsupportedCluster"
	case StatusInvalidInState:
		return "InvalidInState"
	default:
		return "Unknown"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
