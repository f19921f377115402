package casting

import (
	"context"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// CommandResult is the outcome of a delivered command. A non-success Status
// is a remote failure, not an error.
type CommandResult struct {
	Status datamodel.Status

	// Fields holds typed response fields, when the player returned them.
	Fields datamodel.Value

	// Payload holds a pre-serialized response, when the player returned one.
	Payload []byte
}

// OK reports whether the remote side accepted the command.
func (r CommandResult) OK() bool {
	return r.Status.IsSuccess()
}

// SubscribeRequest describes an attribute subscription.
// Intervals are passed to the player unmodified.
type SubscribeRequest struct {
	Path        datamodel.AttributePath
	MinInterval time.Duration
	MaxInterval time.Duration
}

// SubscriptionHandle is the transport side of an established subscription.
type SubscriptionHandle interface {
	ID() datamodel.SubscriptionID

	// Cancel releases the subscription on the player. It is safe to call
	// more than once.
	Cancel() error
}

// Transport carries requests to a casting player.
//
// Invoke, Read and Subscribe send their request before returning; the
// returned future completes when the player answers. Reports for an
// established subscription are delivered to sink in arrival order; a
// delivery fault (for example a missed heartbeat) goes to sink.OnError and
// does not end the subscription.
type Transport interface {
	Endpoints(ctx context.Context) ([]Endpoint, error)
	Invoke(ctx context.Context, path datamodel.CommandPath, fields datamodel.Value) *async.Future[CommandResult]
	Read(ctx context.Context, path datamodel.AttributePath) *async.Future[datamodel.Value]
	Subscribe(ctx context.Context, req SubscribeRequest, sink async.Callback[datamodel.Value]) *async.Future[SubscriptionHandle]
	Close() error
}
