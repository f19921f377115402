package clusters

import (
	"context"
	"fmt"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// StatusError is a command the player answered with a non-success status.
type StatusError struct {
	Path   datamodel.CommandPath
	Status datamodel.Status
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("clusters: %s: %v", e.Path, e.Status)
}

// Binding addresses one cluster on one endpoint of a casting session.
// Typed cluster clients are built on it.
type Binding struct {
	Cluster       datamodel.ClusterID
	Endpoint      *casting.Endpoint
	Dispatcher    *casting.Dispatcher
	Subscriptions *casting.SubscriptionManager
}

// Bind returns the binding of cluster on ep within session s.
func Bind(s *casting.Session, ep *casting.Endpoint, cluster datamodel.ClusterID) Binding {
	return Binding{
		Cluster:       cluster,
		Endpoint:      ep,
		Dispatcher:    s.Dispatcher(),
		Subscriptions: s.Subscriptions(),
	}
}

// Supported reports whether the endpoint hosts the cluster.
func (b Binding) Supported() bool {
	return b.Endpoint.HasCluster(b.Cluster)
}

// Invoke sends a raw command. Non-success statuses are left to the caller.
func (b Binding) Invoke(ctx context.Context, command datamodel.CommandID, fields datamodel.Value) *async.Future[casting.CommandResult] {
	return b.Dispatcher.Invoke(ctx, b.Endpoint, b.Cluster, command, fields)
}

// Read reads one attribute of the cluster.
func (b Binding) Read(ctx context.Context, attribute datamodel.AttributeID) *async.Future[datamodel.Value] {
	return b.Dispatcher.ReadAttribute(ctx, b.Endpoint, b.Cluster, attribute)
}

// Subscribe subscribes to one attribute of the cluster.
func (b Binding) Subscribe(ctx context.Context, attribute datamodel.AttributeID, minInterval, maxInterval time.Duration, cb async.Callback[datamodel.Value]) (*casting.Subscription, error) {
	return b.Subscriptions.Subscribe(ctx, b.Endpoint, b.Cluster, attribute, minInterval, maxInterval, cb)
}

func (b Binding) commandPath(command datamodel.CommandID) datamodel.CommandPath {
	var ep datamodel.EndpointID
	if b.Endpoint != nil {
		ep = b.Endpoint.ID
	}
	return datamodel.CommandPath{Endpoint: ep, Cluster: b.Cluster, Command: command}
}

// InvokeDecode sends a command and decodes a successful result with
// decode. A non-success status fails with *StatusError.
func InvokeDecode[T any](ctx context.Context, b Binding, command datamodel.CommandID, fields datamodel.Value, decode func(casting.CommandResult) (T, error)) *async.Future[T] {
	path := b.commandPath(command)
	return async.Map(b.Invoke(ctx, command, fields), func(r casting.CommandResult) (T, error) {
		if !r.OK() {
			var zero T
			return zero, &StatusError{Path: path, Status: r.Status}
		}
		return decode(r)
	})
}

// InvokeStatus sends a command whose only result is its status.
func InvokeStatus(ctx context.Context, b Binding, command datamodel.CommandID, fields datamodel.Value) *async.Future[struct{}] {
	return InvokeDecode(ctx, b, command, fields, func(casting.CommandResult) (struct{}, error) {
		return struct{}{}, nil
	})
}

// ReadDecode reads an attribute and converts it with decode.
func ReadDecode[T any](ctx context.Context, b Binding, attribute datamodel.AttributeID, decode func(datamodel.Value) (T, error)) *async.Future[T] {
	return async.Map(b.Read(ctx, attribute), decode)
}

// SubscribeDecode subscribes to an attribute and converts each report with
// decode. A report that fails to convert goes to cb.OnError.
func SubscribeDecode[T any](ctx context.Context, b Binding, attribute datamodel.AttributeID, minInterval, maxInterval time.Duration, cb async.Callback[T], decode func(datamodel.Value) (T, error)) (*casting.Subscription, error) {
	var sink async.Callback[datamodel.Value]
	if cb != nil {
		sink = async.MapCallback(cb, decode)
	}
	return b.Subscribe(ctx, attribute, minInterval, maxInterval, sink)
}
