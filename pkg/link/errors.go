package link

import (
	"errors"
	"fmt"

	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Link errors.
var (
	// ErrInvalidFrame is returned for frames that cannot be decoded or lack
	// required fields.
	ErrInvalidFrame = errors.New("link: invalid frame")

	// ErrInvalidOp is returned for frames with an unknown op.
	ErrInvalidOp = errors.New("link: invalid op")

	// ErrTimeout is returned when a request is not answered in time.
	ErrTimeout = errors.New("link: request timed out")

	// ErrHeartbeatMissed is delivered to a subscription when no report
	// arrived within its maximum interval plus grace.
	ErrHeartbeatMissed = errors.New("link: subscription heartbeat missed")

	// ErrClosed is returned by operations on a closed client or server.
	ErrClosed = errors.New("link: closed")

	// ErrNoPeer is returned when a client is configured without a peer.
	ErrNoPeer = errors.New("link: peer address required")

	// ErrEndpointExists is returned when two apps use the same endpoint.
	ErrEndpointExists = errors.New("link: endpoint already hosted")
)

// StatusError is a non-success status returned by the player.
type StatusError struct {
	Op      Op
	Status  datamodel.Status
	Message string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("link: %v: %v: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("link: %v: %v", e.Op, e.Status)
}
