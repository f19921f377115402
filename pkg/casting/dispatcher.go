package casting

import (
	"context"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/pion/logging"
)

// Dispatcher issues cluster commands and attribute reads against an
// endpoint of a connected player. Requests are sent from the session
// worker in call order; results come back through futures.
type Dispatcher struct {
	transport Transport
	queue     *worker.Queue
	log       logging.LeveledLogger
}

func newDispatcher(transport Transport, queue *worker.Queue, log logging.LeveledLogger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		queue:     queue,
		log:       log,
	}
}

// Invoke sends command to cluster on ep.
//
// If ep does not host cluster the returned future is already failed with
// ErrCapabilityNotFound and nothing is sent. Otherwise it completes exactly
// once with the player's response or a *TransportError. There is no retry.
func (d *Dispatcher) Invoke(ctx context.Context, ep *Endpoint, cluster datamodel.ClusterID, command datamodel.CommandID, fields datamodel.Value) *async.Future[CommandResult] {
	if ep == nil {
		return async.Failed[CommandResult](ErrEndpointNotFound)
	}
	if !ep.HasCluster(cluster) {
		if d.log != nil {
			d.log.Debugf("endpoint %d lacks cluster 0x%04X", ep.ID, uint32(cluster))
		}
		return async.Failed[CommandResult](ErrCapabilityNotFound)
	}

	path := datamodel.CommandPath{Endpoint: ep.ID, Cluster: cluster, Command: command}
	out := async.New[CommandResult]()

	err := d.queue.Enqueue(func() {
		if d.log != nil {
			d.log.Debugf("invoke %s", path)
		}
		d.transport.Invoke(ctx, path, fields).Then(func(r CommandResult, err error) {
			out.Complete(r, wrapTransportError("invoke", err))
		})
	})
	if err != nil {
		out.Reject(ErrSessionClosed)
	}
	return out
}

// InvokeFunc is the callback form of Invoke. fn is called exactly once, on
// an arbitrary goroutine.
func (d *Dispatcher) InvokeFunc(ctx context.Context, ep *Endpoint, cluster datamodel.ClusterID, command datamodel.CommandID, fields datamodel.Value, fn func(CommandResult, error)) {
	d.Invoke(ctx, ep, cluster, command, fields).Then(fn)
}

// ReadAttribute reads one attribute of cluster on ep. The capability check
// is the same as for Invoke.
func (d *Dispatcher) ReadAttribute(ctx context.Context, ep *Endpoint, cluster datamodel.ClusterID, attribute datamodel.AttributeID) *async.Future[datamodel.Value] {
	if ep == nil {
		return async.Failed[datamodel.Value](ErrEndpointNotFound)
	}
	if !ep.HasCluster(cluster) {
		return async.Failed[datamodel.Value](ErrCapabilityNotFound)
	}

	path := datamodel.AttributePath{Endpoint: ep.ID, Cluster: cluster, Attribute: attribute}
	out := async.New[datamodel.Value]()

	err := d.queue.Enqueue(func() {
		if d.log != nil {
			d.log.Debugf("read %s", path)
		}
		d.transport.Read(ctx, path).Then(func(v datamodel.Value, err error) {
			out.Complete(v, wrapTransportError("read", err))
		})
	})
	if err != nil {
		out.Reject(ErrSessionClosed)
	}
	return out
}

// AttributeReading is one entry of a ReadAll result.
type AttributeReading struct {
	Path  datamodel.AttributePath
	Value datamodel.Value
	Err   error
}

// ReadAll reads the global attributes of every cluster on ep. Failures are
// recorded per attribute; the returned future fails only if ctx ends first.
func (d *Dispatcher) ReadAll(ctx context.Context, ep *Endpoint) *async.Future[[]AttributeReading] {
	if ep == nil {
		return async.Failed[[]AttributeReading](ErrEndpointNotFound)
	}

	type pending struct {
		path datamodel.AttributePath
		f    *async.Future[datamodel.Value]
	}
	var reads []pending
	for _, c := range ep.Clusters {
		for _, a := range datamodel.GlobalAttributes {
			reads = append(reads, pending{
				path: datamodel.AttributePath{Endpoint: ep.ID, Cluster: c, Attribute: a},
				f:    d.ReadAttribute(ctx, ep, c, a),
			})
		}
	}

	out := async.New[[]AttributeReading]()
	go func() {
		results := make([]AttributeReading, 0, len(reads))
		for _, r := range reads {
			v, err := r.f.Await(ctx)
			if ctx.Err() != nil {
				out.Reject(ctx.Err())
				return
			}
			results = append(results, AttributeReading{Path: r.path, Value: v, Err: err})
		}
		out.Resolve(results)
	}()
	return out
}
