package link

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/transport"
	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/pion/logging"
)

const (
	// DefaultRequestTimeout bounds the wait for a response.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultHeartbeatGrace is added to a subscription's maximum interval
	// before a missing report counts as a missed heartbeat.
	DefaultHeartbeatGrace = 2 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Peer is the player's address. Required.
	Peer net.Addr

	// Conn is an optional packet connection, for example one end of a
	// transport.Pipe. If nil, an ephemeral UDP socket is opened on
	// LocalAddr.
	Conn net.PacketConn

	// LocalAddr is the local UDP address. Defaults to ":0".
	LocalAddr string

	// RequestTimeout bounds each request.
	// Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration

	// HeartbeatGrace is the slack allowed past a subscription's maximum
	// interval. Defaults to DefaultHeartbeatGrace.
	HeartbeatGrace time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *ClientConfig) Validate() error {
	if c.Peer == nil {
		return ErrNoPeer
	}
	return nil
}

func (c *ClientConfig) applyDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HeartbeatGrace <= 0 {
		c.HeartbeatGrace = DefaultHeartbeatGrace
	}
	if c.LocalAddr == "" {
		c.LocalAddr = ":0"
	}
}

// Client talks to one player. It implements casting.Transport.
//
// Requests are sent before the call returns and answered through futures.
// Reports are delivered to subscription sinks on a dedicated goroutine, in
// arrival order.
type Client struct {
	config ClientConfig
	udp    *transport.UDP
	log    logging.LeveledLogger

	// deliveries runs sink callbacks off the read loop.
	deliveries *worker.Queue

	nextID    atomic.Uint32
	nextSubID atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]*async.Future[*Frame]
	subs    map[uint32]*clientSubscription
	session string
	closed  bool
}

// Dial creates a client for config.Peer and starts receiving.
// No packet is sent until the first request.
func Dial(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	c := &Client{
		config:  config,
		pending: make(map[uint32]*async.Future[*Frame]),
		subs:    make(map[uint32]*clientSubscription),
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("link-client")
	}

	udp, err := transport.NewUDP(transport.UDPConfig{
		Conn:          config.Conn,
		ListenAddr:    config.LocalAddr,
		Handler:       c.handlePacket,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	c.udp = udp

	c.deliveries = worker.New(worker.Config{
		Name:          "link-client-reports",
		LoggerFactory: config.LoggerFactory,
	})

	if err := udp.Start(); err != nil {
		c.deliveries.Close()
		return nil, err
	}
	return c, nil
}

// Session returns the server session ID learned from the last Hello.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// request sends f with a fresh ID and returns the future of the response.
func (c *Client) request(ctx context.Context, f *Frame) *async.Future[*Frame] {
	out := async.New[*Frame]()

	f.ID = c.nextID.Add(1)
	if f.ID == 0 {
		f.ID = c.nextID.Add(1)
	}

	data, err := Encode(f)
	if err != nil {
		out.Reject(err)
		return out
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		out.Reject(ErrClosed)
		return out
	}
	c.pending[f.ID] = out
	c.mu.Unlock()

	if c.log != nil {
		c.log.Tracef("%v id=%d", f.Op, f.ID)
	}

	if err := c.udp.Send(data, c.config.Peer); err != nil {
		c.complete(f.ID, nil, err)
		return out
	}

	id := f.ID
	go func() {
		timer := time.NewTimer(c.config.RequestTimeout)
		defer timer.Stop()
		select {
		case <-out.Done():
		case <-timer.C:
			c.complete(id, nil, ErrTimeout)
		case <-ctx.Done():
			c.complete(id, nil, ctx.Err())
		}
	}()
	return out
}

func (c *Client) complete(id uint32, f *Frame, err error) {
	c.mu.Lock()
	fut := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if fut != nil {
		fut.Complete(f, err)
	}
}

func (c *Client) send(f *Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	return c.udp.Send(data, c.config.Peer)
}

func (c *Client) handlePacket(p transport.Packet) {
	f, err := Decode(p.Data)
	if err != nil {
		if c.log != nil {
			c.log.Debugf("drop packet from %v: %v", p.Addr, err)
		}
		return
	}

	if f.Op.IsResponse() {
		c.complete(f.ID, f, nil)
		return
	}
	if f.Op != OpReport {
		if c.log != nil {
			c.log.Debugf("unexpected %v from %v", f.Op, p.Addr)
		}
		return
	}

	c.mu.Lock()
	sub := c.subs[f.SubscriptionID]
	c.mu.Unlock()
	if sub == nil {
		if c.log != nil {
			c.log.Tracef("report for unknown subscription %d", f.SubscriptionID)
		}
		return
	}
	sub.report(f)
}

// Endpoints greets the player and returns its endpoint list.
func (c *Client) Endpoints(ctx context.Context) ([]casting.Endpoint, error) {
	resp, err := c.request(ctx, &Frame{Op: OpHello}).Await(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = resp.Session
	c.mu.Unlock()

	endpoints := make([]casting.Endpoint, len(resp.Endpoints))
	for i, info := range resp.Endpoints {
		e := casting.Endpoint{
			ID:        datamodel.EndpointID(info.ID),
			VendorID:  datamodel.VendorID(info.VendorID),
			ProductID: datamodel.ProductID(info.ProductID),
		}
		for _, dt := range info.DeviceTypes {
			e.DeviceTypes = append(e.DeviceTypes, datamodel.DeviceTypeID(dt))
		}
		for _, cl := range info.Clusters {
			e.Clusters = append(e.Clusters, datamodel.ClusterID(cl))
		}
		endpoints[i] = e
	}
	return endpoints, nil
}

// Invoke sends a command. A non-success status from the player is part of
// the result, not an error.
func (c *Client) Invoke(ctx context.Context, path datamodel.CommandPath, fields datamodel.Value) *async.Future[casting.CommandResult] {
	f := &Frame{Op: OpInvoke, Value: fields}
	f.SetCommandPath(path)

	return async.Map(c.request(ctx, f), func(resp *Frame) (casting.CommandResult, error) {
		return casting.CommandResult{
			Status:  resp.Status,
			Fields:  resp.Value,
			Payload: resp.Payload,
		}, nil
	})
}

// Read reads one attribute. An attribute without a value fails with
// casting.ErrNotConfigured.
func (c *Client) Read(ctx context.Context, path datamodel.AttributePath) *async.Future[datamodel.Value] {
	f := &Frame{Op: OpRead}
	f.SetAttributePath(path)

	return async.Map(c.request(ctx, f), func(resp *Frame) (datamodel.Value, error) {
		switch {
		case resp.Status.IsSuccess():
			return resp.Value, nil
		case resp.Status == datamodel.StatusNotFound:
			return datamodel.Value{}, casting.ErrNotConfigured
		default:
			return datamodel.Value{}, &StatusError{Op: OpRead, Status: resp.Status, Message: resp.Error}
		}
	})
}

// Subscribe establishes a subscription whose reports go to sink.
func (c *Client) Subscribe(ctx context.Context, req casting.SubscribeRequest, sink async.Callback[datamodel.Value]) *async.Future[casting.SubscriptionHandle] {
	id := c.nextSubID.Add(1)
	sub := &clientSubscription{
		client: c,
		id:     id,
		sink:   sink,
		path:   req.Path,
		maxInterval: func() time.Duration {
			if req.MaxInterval <= 0 {
				return 0
			}
			return req.MaxInterval + c.config.HeartbeatGrace
		}(),
	}

	// Register before sending so a priming report that overtakes the
	// response is not lost.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return async.Failed[casting.SubscriptionHandle](ErrClosed)
	}
	c.subs[id] = sub
	c.mu.Unlock()

	f := &Frame{
		Op:             OpSubscribe,
		SubscriptionID: id,
		MinIntervalMs:  durationMs(req.MinInterval),
		MaxIntervalMs:  durationMs(req.MaxInterval),
	}
	f.SetAttributePath(req.Path)

	out := async.New[casting.SubscriptionHandle]()
	c.request(ctx, f).Then(func(resp *Frame, err error) {
		switch {
		case err != nil:
			// The player may have accepted it before the answer was lost.
			sub.Cancel()
			out.Reject(err)
		case !resp.Status.IsSuccess():
			c.removeSubscription(id)
			out.Reject(&StatusError{Op: OpSubscribe, Status: resp.Status, Message: resp.Error})
		default:
			sub.startWatchdog()
			out.Resolve(sub)
		}
	})
	return out
}

// removeSubscription forgets a subscription locally. It reports whether
// the subscription was known.
func (c *Client) removeSubscription(id uint32) bool {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()

	if ok {
		sub.stopWatchdog()
	}
	return ok
}

// SubscriptionCount returns the number of live subscriptions.
func (c *Client) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close tells the player goodbye, fails pending requests and stops the
// client. Subscriptions end without further callbacks.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint32]*async.Future[*Frame])
	subs := c.subs
	c.subs = make(map[uint32]*clientSubscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.stopWatchdog()
	}
	for _, fut := range pending {
		fut.Reject(ErrClosed)
	}

	if err := c.send(&Frame{Op: OpBye}); err != nil && c.log != nil {
		c.log.Debugf("bye: %v", err)
	}

	err := c.udp.Stop()
	c.deliveries.Close()
	return err
}

var _ casting.Transport = (*Client)(nil)

// clientSubscription routes reports to a sink and watches for heartbeats.
type clientSubscription struct {
	client      *Client
	id          uint32
	sink        async.Callback[datamodel.Value]
	path        datamodel.AttributePath
	maxInterval time.Duration

	mu       sync.Mutex
	lastSeq  uint32
	watchdog *time.Timer
	stopped  bool
}

// ID implements casting.SubscriptionHandle.
func (s *clientSubscription) ID() datamodel.SubscriptionID {
	return datamodel.SubscriptionID(s.id)
}

// Cancel implements casting.SubscriptionHandle. It forgets the
// subscription and tells the player; the player's answer is not awaited.
func (s *clientSubscription) Cancel() error {
	if !s.client.removeSubscription(s.id) {
		return nil
	}

	f := &Frame{Op: OpUnsubscribe, SubscriptionID: s.id}
	s.client.request(context.Background(), f)
	return nil
}

func (s *clientSubscription) report(f *Frame) {
	s.mu.Lock()
	if s.stopped || f.Seq <= s.lastSeq {
		// Duplicate or stale.
		s.mu.Unlock()
		return
	}
	s.lastSeq = f.Seq
	s.resetWatchdogLocked()
	s.mu.Unlock()

	if f.Value.IsAbsent() {
		return
	}

	v := f.Value
	s.client.deliveries.Enqueue(func() {
		if s.isStopped() {
			return
		}
		s.sink.OnUpdate(v)
	})
}

func (s *clientSubscription) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *clientSubscription) startWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped && s.watchdog == nil {
		s.resetWatchdogLocked()
	}
}

func (s *clientSubscription) resetWatchdogLocked() {
	if s.maxInterval <= 0 {
		return
	}
	if s.watchdog == nil {
		s.watchdog = time.AfterFunc(s.maxInterval, s.heartbeatMissed)
		return
	}
	s.watchdog.Reset(s.maxInterval)
}

func (s *clientSubscription) heartbeatMissed() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	// Keep watching; the subscription stays alive.
	s.watchdog.Reset(s.maxInterval)
	s.mu.Unlock()

	if s.client.log != nil {
		s.client.log.Warnf("subscription %d on %s missed its heartbeat", s.id, s.path)
	}
	s.client.deliveries.Enqueue(func() {
		if s.isStopped() {
			return
		}
		s.sink.OnError(&casting.TransportError{Op: "subscription heartbeat", Err: ErrHeartbeatMissed})
	})
}

func (s *clientSubscription) stopWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
}

