package casting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/pion/logging"
)

// SubscriptionState is the lifecycle state of a Subscription.
type SubscriptionState int

const (
	// SubscriptionRequested means the request is sent but not acknowledged.
	SubscriptionRequested SubscriptionState = iota

	// SubscriptionActive means the player accepted the subscription.
	SubscriptionActive

	// SubscriptionCancelled is terminal. No callback is made afterwards.
	SubscriptionCancelled
)

// String returns the name of the state.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionRequested:
		return "Requested"
	case SubscriptionActive:
		return "Active"
	case SubscriptionCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Subscription is a live attribute subscription owned by a
// SubscriptionManager.
type Subscription struct {
	id          uint64
	path        datamodel.AttributePath
	minInterval time.Duration
	maxInterval time.Duration
	cb          async.Callback[datamodel.Value]

	// deliver serializes callbacks so OnUpdate and OnError never overlap.
	deliver sync.Mutex

	mu     sync.Mutex
	state  SubscriptionState
	handle SubscriptionHandle
}

// ID returns the manager-local identifier of the subscription.
func (s *Subscription) ID() uint64 { return s.id }

// Path returns the subscribed attribute path.
func (s *Subscription) Path() datamodel.AttributePath { return s.path }

// MinInterval returns the requested minimum reporting interval.
func (s *Subscription) MinInterval() time.Duration { return s.minInterval }

// MaxInterval returns the requested maximum reporting interval.
func (s *Subscription) MaxInterval() time.Duration { return s.maxInterval }

// State returns the current lifecycle state.
func (s *Subscription) State() SubscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnUpdate implements async.Callback for the transport. A report received
// while the acknowledgement is still in flight activates the subscription.
func (s *Subscription) OnUpdate(v datamodel.Value) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if s.state == SubscriptionCancelled {
		s.mu.Unlock()
		return
	}
	s.state = SubscriptionActive
	s.mu.Unlock()

	s.cb.OnUpdate(v)
}

// OnError implements async.Callback for the transport. The subscription
// stays in its current state.
func (s *Subscription) OnError(err error) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if s.State() == SubscriptionCancelled {
		return
	}
	s.cb.OnError(wrapTransportError("subscription report", err))
}

// acknowledge records the transport handle. It reports false if the
// subscription was cancelled in the meantime.
func (s *Subscription) acknowledge(h SubscriptionHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SubscriptionCancelled {
		return false
	}
	s.state = SubscriptionActive
	s.handle = h
	return true
}

// markCancelled moves the subscription to Cancelled. It reports false if it
// was already there.
func (s *Subscription) markCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SubscriptionCancelled {
		return false
	}
	s.state = SubscriptionCancelled
	return true
}

// cancel marks the subscription cancelled and returns the handle to release.
func (s *Subscription) cancel() SubscriptionHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SubscriptionCancelled
	h := s.handle
	s.handle = nil
	return h
}

// SubscriptionManager owns the set of subscriptions of a session.
// ShutdownAll is the only way to cancel them.
type SubscriptionManager struct {
	transport Transport
	queue     *worker.Queue
	log       logging.LeveledLogger

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func newSubscriptionManager(transport Transport, queue *worker.Queue, log logging.LeveledLogger) *SubscriptionManager {
	return &SubscriptionManager{
		transport: transport,
		queue:     queue,
		log:       log,
		subs:      make(map[uint64]*Subscription),
	}
}

// Subscribe requests reports of attribute on ep.
//
// A missing cluster fails synchronously with ErrCapabilityNotFound. The
// returned subscription starts Requested and becomes Active when the player
// acknowledges it. A rejected request is reported once through cb.OnError
// and leaves the subscription Cancelled. cb may be nil.
func (m *SubscriptionManager) Subscribe(
	ctx context.Context,
	ep *Endpoint,
	cluster datamodel.ClusterID,
	attribute datamodel.AttributeID,
	minInterval, maxInterval time.Duration,
	cb async.Callback[datamodel.Value],
) (*Subscription, error) {
	if ep == nil {
		return nil, ErrEndpointNotFound
	}
	if !ep.HasCluster(cluster) {
		return nil, ErrCapabilityNotFound
	}
	if cb == nil {
		cb = async.CallbackFuncs[datamodel.Value]{}
	}

	sub := &Subscription{
		path:        datamodel.AttributePath{Endpoint: ep.ID, Cluster: cluster, Attribute: attribute},
		minInterval: minInterval,
		maxInterval: maxInterval,
		cb:          cb,
		state:       SubscriptionRequested,
	}

	m.mu.Lock()
	m.nextID++
	sub.id = m.nextID
	m.subs[sub.id] = sub
	m.mu.Unlock()

	req := SubscribeRequest{Path: sub.path, MinInterval: minInterval, MaxInterval: maxInterval}
	err := m.queue.Enqueue(func() {
		if m.log != nil {
			m.log.Debugf("subscribe %s min=%v max=%v", req.Path, minInterval, maxInterval)
		}
		m.transport.Subscribe(ctx, req, sub).Then(func(h SubscriptionHandle, err error) {
			if err != nil {
				sub.deliver.Lock()
				defer sub.deliver.Unlock()
				if !sub.markCancelled() {
					// Already shut down; the caller's scope is gone.
					return
				}
				m.remove(sub)
				cb.OnError(wrapTransportError("subscribe", err))
				return
			}
			if !sub.acknowledge(h) {
				// Shut down while the request was in flight.
				h.Cancel()
			}
		})
	})
	if err != nil {
		m.remove(sub)
		sub.cancel()
		return nil, ErrSessionClosed
	}

	return sub, nil
}

func (m *SubscriptionManager) remove(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, sub.id)
}

// Len returns the number of subscriptions in the set.
func (m *SubscriptionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Subscriptions returns the subscriptions in creation order.
func (m *SubscriptionManager) Subscriptions() []*Subscription {
	m.mu.Lock()
	out := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ShutdownAll cancels every subscription and releases their transport
// handles. It is idempotent and a no-op on an empty set. After it returns
// no callback of a cancelled subscription is invoked, so it waits for
// callbacks in progress and must not be called from inside one. Callbacks
// use ShutdownAllAsync instead.
func (m *SubscriptionManager) ShutdownAll() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[uint64]*Subscription)
	m.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	if m.log != nil {
		m.log.Infof("shutting down %d subscriptions", len(subs))
	}

	var handles []SubscriptionHandle
	for _, s := range subs {
		// Wait for an in-progress callback so none runs after we return.
		s.deliver.Lock()
		if h := s.cancel(); h != nil {
			handles = append(handles, h)
		}
		s.deliver.Unlock()
	}

	release := func() {
		for _, h := range handles {
			if err := h.Cancel(); err != nil && m.log != nil {
				m.log.Debugf("release subscription %d: %v", h.ID(), err)
			}
		}
	}
	if err := m.queue.Enqueue(release); err != nil {
		release()
	}
}

// ShutdownAllAsync runs ShutdownAll on the session worker and returns at
// once, so it is safe to call from a subscription callback. The future
// completes when the shutdown is done; a callback must not wait for it.
func (m *SubscriptionManager) ShutdownAllAsync() *async.Future[struct{}] {
	done := async.New[struct{}]()
	err := m.queue.Enqueue(func() {
		m.ShutdownAll()
		done.Resolve(struct{}{})
	})
	if err != nil {
		// The worker only stops after Session.Close emptied the set.
		m.ShutdownAll()
		done.Resolve(struct{}{})
	}
	return done
}
