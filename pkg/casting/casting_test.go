package casting

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/discovery"
	"github.com/backkem/matter-tv/pkg/storage"
)

const (
	clusterMediaPlayback   datamodel.ClusterID = 0x0506
	clusterTargetNavigator datamodel.ClusterID = 0x0505
	clusterAccountLogin    datamodel.ClusterID = 0x050E
)

// fakeHandle is a SubscriptionHandle that counts cancellations.
type fakeHandle struct {
	id        datamodel.SubscriptionID
	cancelled atomic.Int32
}

func (h *fakeHandle) ID() datamodel.SubscriptionID { return h.id }

func (h *fakeHandle) Cancel() error {
	h.cancelled.Add(1)
	return nil
}

type fakeSubscription struct {
	req     SubscribeRequest
	sink    async.Callback[datamodel.Value]
	handle  *fakeHandle
	pending *async.Future[SubscriptionHandle]
}

// fakeTransport records requests and answers them from canned values.
type fakeTransport struct {
	mu sync.Mutex

	endpoints    []Endpoint
	endpointsErr error

	invokes      []datamodel.CommandPath
	invokeResult CommandResult
	invokeErr    error

	reads map[datamodel.AttributePath]datamodel.Value

	subs          []*fakeSubscription
	subscribeErr  error
	holdSubscribe bool

	closed int
}

func newFakeTransport(endpoints ...Endpoint) *fakeTransport {
	return &fakeTransport{
		endpoints:    endpoints,
		invokeResult: CommandResult{Status: datamodel.StatusSuccess},
		reads:        make(map[datamodel.AttributePath]datamodel.Value),
	}
}

func (f *fakeTransport) Endpoints(ctx context.Context) ([]Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoints, f.endpointsErr
}

func (f *fakeTransport) Invoke(ctx context.Context, path datamodel.CommandPath, fields datamodel.Value) *async.Future[CommandResult] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invokes = append(f.invokes, path)
	if f.invokeErr != nil {
		return async.Failed[CommandResult](f.invokeErr)
	}
	return async.Resolved(f.invokeResult)
}

func (f *fakeTransport) Read(ctx context.Context, path datamodel.AttributePath) *async.Future[datamodel.Value] {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.reads[path]
	if !ok {
		return async.Failed[datamodel.Value](ErrNotConfigured)
	}
	return async.Resolved(v)
}

func (f *fakeTransport) Subscribe(ctx context.Context, req SubscribeRequest, sink async.Callback[datamodel.Value]) *async.Future[SubscriptionHandle] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribeErr != nil {
		return async.Failed[SubscriptionHandle](f.subscribeErr)
	}
	s := &fakeSubscription{
		req:     req,
		sink:    sink,
		handle:  &fakeHandle{id: datamodel.SubscriptionID(len(f.subs) + 1)},
		pending: async.New[SubscriptionHandle](),
	}
	f.subs = append(f.subs, s)
	if !f.holdSubscribe {
		s.pending.Resolve(s.handle)
	}
	return s.pending
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) subscription(i int) *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.subs) {
		return nil
	}
	return f.subs[i]
}

func (f *fakeTransport) invokeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invokes)
}

// recorder is an async.Callback that records what it receives.
type recorder struct {
	mu      sync.Mutex
	updates []datamodel.Value
	errs    []error
}

func (r *recorder) OnUpdate(v datamodel.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, v)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates), len(r.errs)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testEndpoints() []Endpoint {
	return []Endpoint{
		{ID: 1, VendorID: 5, Clusters: []datamodel.ClusterID{clusterMediaPlayback}},
		{ID: 4, VendorID: 65521, ProductID: 1, Clusters: []datamodel.ClusterID{clusterMediaPlayback, clusterTargetNavigator, clusterAccountLogin}},
		{ID: 5, VendorID: 65521, ProductID: 2, Clusters: []datamodel.ClusterID{clusterTargetNavigator}},
	}
}

func newTestSession(t *testing.T, ft *fakeTransport) *Session {
	t.Helper()
	s, err := Connect(context.Background(), SessionConfig{
		Player:    &Player{ID: "tv", DeviceName: "Test TV", Port: 5540},
		Transport: ft,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func flush(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.queue.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestSelectFirstByVendorID(t *testing.T) {
	player := (&Player{ID: "tv"}).WithEndpoints(testEndpoints())

	tests := []struct {
		name   string
		player *Player
		vid    datamodel.VendorID
		wantID datamodel.EndpointID
		wantOK bool
	}{
		{"first of two matches", player, 65521, 4, true},
		{"single match", player, 5, 1, true},
		{"no match", player, 7, 0, false},
		{"nil player", nil, 65521, 0, false},
		{"not enumerated", &Player{ID: "tv"}, 65521, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectFirstByVendorID(tt.player, tt.vid)
			if (got != nil) != tt.wantOK {
				t.Fatalf("SelectFirstByVendorID() = %v, want found=%v", got, tt.wantOK)
			}
			if got != nil && got.ID != tt.wantID {
				t.Errorf("SelectFirstByVendorID().ID = %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestSelectByID(t *testing.T) {
	player := (&Player{ID: "tv"}).WithEndpoints(testEndpoints())

	if got := SelectByID(player, 5); got == nil || got.ProductID != 2 {
		t.Errorf("SelectByID(5) = %v, want endpoint 5", got)
	}
	if got := SelectByID(player, 9); got != nil {
		t.Errorf("SelectByID(9) = %v, want nil", got)
	}
	if got := SelectByID(nil, 1); got != nil {
		t.Errorf("SelectByID(nil, 1) = %v, want nil", got)
	}
}

func TestSelectors(t *testing.T) {
	player := (&Player{ID: "tv"}).WithEndpoints(testEndpoints())

	tests := []struct {
		name   string
		sel    Selector
		wantID datamodel.EndpointID
		err    error
	}{
		{"by vendor", ByVendorID(65521), 4, nil},
		{"by id", ByID(5), 5, nil},
		{"by id miss", ByID(42), 0, ErrEndpointNotFound},
		{"by clusters", ByClusters(clusterTargetNavigator), 4, nil},
		{"by clusters all", ByClusters(clusterMediaPlayback, clusterAccountLogin), 4, nil},
		{"by clusters miss", ByClusters(0x9999), 0, ErrEndpointNotFound},
		{"first of falls through", FirstOf(nil, ByID(42), ByVendorID(5)), 1, nil},
		{"nil selector", nil, 0, ErrEndpointNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(player, tt.sel)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.err)
			}
			if err == nil && got.ID != tt.wantID {
				t.Errorf("Resolve().ID = %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestEndpointsAreCopies(t *testing.T) {
	player := (&Player{ID: "tv"}).WithEndpoints(testEndpoints())

	ep := SelectByID(player, 4)
	ep.Clusters[0] = 0xFFFF
	ep.VendorID = 1

	again := SelectByID(player, 4)
	if again.VendorID != 65521 || again.Clusters[0] != clusterMediaPlayback {
		t.Errorf("endpoint mutated through returned copy: %v", again)
	}
}

func TestPlayerFromService(t *testing.T) {
	svc := &discovery.ResolvedService{
		InstanceName: "ABCDEF0123456789",
		HostName:     "tv.local.",
		Port:         5540,
		IPs:          []net.IP{net.ParseIP("192.168.1.20")},
		Text:         map[string]string{"VP": "65521+32769", "DT": "35", "DN": "Living Room TV"},
	}

	p, err := PlayerFromService(svc)
	if err != nil {
		t.Fatalf("PlayerFromService() error = %v", err)
	}
	if p.VendorID != 65521 || p.ProductID != 32769 {
		t.Errorf("vid/pid = %d/%d, want 65521/32769", p.VendorID, p.ProductID)
	}
	if p.DeviceType != datamodel.DeviceTypeCastingVideoPlayer {
		t.Errorf("DeviceType = %d, want %d", p.DeviceType, datamodel.DeviceTypeCastingVideoPlayer)
	}
	if got, want := p.Address(), "192.168.1.20:5540"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
	if p.Endpoints() != nil {
		t.Error("Endpoints() before enumeration should be nil")
	}

	svc.Text = map[string]string{"VP": "vendor"}
	if _, err := PlayerFromService(svc); !errors.Is(err, discovery.ErrInvalidTXTRecord) {
		t.Errorf("PlayerFromService() error = %v, want %v", err, discovery.ErrInvalidTXTRecord)
	}
}

func TestPlayer_Address(t *testing.T) {
	tests := []struct {
		name string
		host string
		ips  []string
		want string
	}{
		{"ipv4", "tv.local.", []string{"192.168.1.5"}, "192.168.1.5:5540"},
		{"skips link-local", "tv.local.", []string{"fe80::1", "192.168.1.5"}, "192.168.1.5:5540"},
		{"routable ipv6", "tv.local.", []string{"fe80::1", "2001:db8::5"}, "[2001:db8::5]:5540"},
		{"link-local only uses host", "tv.local.", []string{"fe80::1"}, "tv.local:5540"},
		{"link-local without host", "", []string{"fe80::1"}, "[fe80::1]:5540"},
		{"no ips", "tv.local", nil, "tv.local:5540"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &discovery.ResolvedService{
				InstanceName: "TV",
				HostName:     tt.host,
				Port:         5540,
				Text:         map[string]string{"VP": "65521+1", "DT": "35"},
			}
			for _, ip := range tt.ips {
				svc.IPs = append(svc.IPs, net.ParseIP(ip))
			}
			p, err := PlayerFromService(svc)
			if err != nil {
				t.Fatalf("PlayerFromService() error = %v", err)
			}
			if got := p.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect(t *testing.T) {
	t.Run("missing player", func(t *testing.T) {
		_, err := Connect(context.Background(), SessionConfig{Transport: newFakeTransport()})
		if !errors.Is(err, ErrNoPlayer) {
			t.Errorf("Connect() error = %v, want %v", err, ErrNoPlayer)
		}
	})

	t.Run("missing transport", func(t *testing.T) {
		_, err := Connect(context.Background(), SessionConfig{Player: &Player{ID: "tv"}})
		if !errors.Is(err, ErrNoTransport) {
			t.Errorf("Connect() error = %v, want %v", err, ErrNoTransport)
		}
	})

	t.Run("enumeration fails", func(t *testing.T) {
		ft := newFakeTransport()
		ft.endpointsErr = errors.New("link down")
		_, err := Connect(context.Background(), SessionConfig{Player: &Player{ID: "tv"}, Transport: ft})
		if !errors.Is(err, ErrTransport) {
			t.Errorf("Connect() error = %v, want %v", err, ErrTransport)
		}
		if ft.closed != 1 {
			t.Errorf("transport closed %d times, want 1", ft.closed)
		}
	})

	t.Run("enumerates endpoints", func(t *testing.T) {
		s := newTestSession(t, newFakeTransport(testEndpoints()...))
		if s.ID() == "" {
			t.Error("ID() is empty")
		}
		if n := len(s.Player().Endpoints()); n != 3 {
			t.Errorf("len(Endpoints()) = %d, want 3", n)
		}
		ep, err := s.Endpoint(ByVendorID(65521))
		if err != nil || ep.ID != 4 {
			t.Errorf("Endpoint(ByVendorID(65521)) = %v, %v; want endpoint 4", ep, err)
		}
	})
}

func TestDispatcherCapabilityNotFound(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s := newTestSession(t, ft)

	ep, _ := s.Endpoint(ByID(5))
	f := s.Dispatcher().Invoke(context.Background(), ep, clusterMediaPlayback, 0x00, datamodel.Struct(nil))

	// The failure is synchronous: the future is complete on return.
	_, err := f.Result()
	if !errors.Is(err, ErrCapabilityNotFound) {
		t.Fatalf("Invoke() error = %v, want %v", err, ErrCapabilityNotFound)
	}

	flush(t, s)
	if n := ft.invokeCount(); n != 0 {
		t.Errorf("transport saw %d invokes, want 0", n)
	}

	if _, err := s.Dispatcher().ReadAttribute(context.Background(), ep, clusterMediaPlayback, 0).Result(); !errors.Is(err, ErrCapabilityNotFound) {
		t.Errorf("ReadAttribute() error = %v, want %v", err, ErrCapabilityNotFound)
	}
	if _, err := s.Dispatcher().Invoke(context.Background(), nil, clusterMediaPlayback, 0, datamodel.Value{}).Result(); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("Invoke(nil endpoint) error = %v, want %v", err, ErrEndpointNotFound)
	}
}

func TestDispatcherInvoke(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	ctx := context.Background()

	var futures []*async.Future[CommandResult]
	for cmd := datamodel.CommandID(0); cmd < 5; cmd++ {
		futures = append(futures, s.Dispatcher().Invoke(ctx, ep, clusterMediaPlayback, cmd, datamodel.Struct(nil)))
	}
	for i, f := range futures {
		res, err := f.Await(ctx)
		if err != nil {
			t.Fatalf("Invoke(%d) error = %v", i, err)
		}
		if !res.OK() {
			t.Errorf("Invoke(%d).Status = %v, want Success", i, res.Status)
		}
	}

	ft.mu.Lock()
	defer ft.mu.Unlock()
	for i, p := range ft.invokes {
		if p.Command != datamodel.CommandID(i) || p.Endpoint != 4 {
			t.Errorf("invoke %d = %s, want command %d on endpoint 4", i, p, i)
		}
	}
}

func TestDispatcherInvokeFunc(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.invokeResult = CommandResult{Status: datamodel.StatusInvalidInState}
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))

	done := make(chan CommandResult, 1)
	s.Dispatcher().InvokeFunc(context.Background(), ep, clusterMediaPlayback, 1, datamodel.Struct(nil), func(r CommandResult, err error) {
		if err != nil {
			t.Errorf("InvokeFunc() error = %v", err)
		}
		done <- r
	})

	select {
	case r := <-done:
		if r.OK() {
			t.Error("OK() = true for a remote failure status")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("InvokeFunc callback not called")
	}
}

func TestDispatcherTransportError(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.invokeErr = errors.New("no route")
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))

	_, err := s.Dispatcher().Invoke(context.Background(), ep, clusterMediaPlayback, 0, datamodel.Struct(nil)).Await(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Invoke() error = %v, want %v", err, ErrTransport)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "invoke" {
		t.Errorf("Invoke() error = %#v, want *TransportError with Op invoke", err)
	}
}

func TestDispatcherReadAll(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.reads[datamodel.AttributePath{Endpoint: 5, Cluster: clusterTargetNavigator, Attribute: datamodel.GlobalAttrClusterRevision}] = datamodel.Uint(2)
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(5))

	readings, err := s.Dispatcher().ReadAll(context.Background(), ep).Await(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(readings) != len(datamodel.GlobalAttributes) {
		t.Fatalf("len(ReadAll()) = %d, want %d", len(readings), len(datamodel.GlobalAttributes))
	}
	for _, r := range readings {
		if r.Path.Attribute == datamodel.GlobalAttrClusterRevision {
			if v, _ := r.Value.AsUint(); v != 2 || r.Err != nil {
				t.Errorf("ClusterRevision = %v, %v; want 2", r.Value, r.Err)
			}
			continue
		}
		if !errors.Is(r.Err, ErrNotConfigured) {
			t.Errorf("%s error = %v, want %v", r.Path, r.Err, ErrNotConfigured)
		}
	}
}

func TestSubscribeLifecycle(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.holdSubscribe = true
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	rec := &recorder{}

	sub, err := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0x0000, 0, time.Second, rec)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if got := sub.State(); got != SubscriptionRequested {
		t.Errorf("State() = %v, want %v", got, SubscriptionRequested)
	}

	waitFor(t, "subscribe request", func() bool { return ft.subscription(0) != nil })
	fs := ft.subscription(0)
	if fs.req.MaxInterval != time.Second || fs.req.Path.Endpoint != 4 {
		t.Errorf("request = %+v", fs.req)
	}

	fs.pending.Resolve(fs.handle)
	waitFor(t, "Active", func() bool { return sub.State() == SubscriptionActive })

	fs.sink.OnUpdate(datamodel.Uint(1))
	fs.sink.OnError(errors.New("missed heartbeat"))
	if u, e := rec.counts(); u != 1 || e != 1 {
		t.Fatalf("updates/errors = %d/%d, want 1/1", u, e)
	}
	if !errors.Is(rec.errs[0], ErrTransport) {
		t.Errorf("OnError() = %v, want %v", rec.errs[0], ErrTransport)
	}
	if got := sub.State(); got != SubscriptionActive {
		t.Errorf("State() after delivery error = %v, want %v", got, SubscriptionActive)
	}

	s.Subscriptions().ShutdownAll()
	if got := sub.State(); got != SubscriptionCancelled {
		t.Errorf("State() after ShutdownAll = %v, want %v", got, SubscriptionCancelled)
	}
	flush(t, s)
	if n := fs.handle.cancelled.Load(); n != 1 {
		t.Errorf("handle cancelled %d times, want 1", n)
	}

	fs.sink.OnUpdate(datamodel.Uint(2))
	fs.sink.OnError(errors.New("late"))
	if u, e := rec.counts(); u != 1 || e != 1 {
		t.Errorf("callbacks after cancel: updates/errors = %d/%d, want 1/1", u, e)
	}
}

func TestSubscribeReportBeforeAck(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.holdSubscribe = true
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	rec := &recorder{}

	sub, _ := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, time.Second, rec)
	waitFor(t, "subscribe request", func() bool { return ft.subscription(0) != nil })

	ft.subscription(0).sink.OnUpdate(datamodel.Uint(0))
	if got := sub.State(); got != SubscriptionActive {
		t.Errorf("State() after priming report = %v, want %v", got, SubscriptionActive)
	}
}

func TestShutdownAllIdempotent(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	m := s.Subscriptions()

	// Empty set.
	m.ShutdownAll()

	var subs []*Subscription
	for _, c := range []datamodel.ClusterID{clusterMediaPlayback, clusterTargetNavigator, clusterAccountLogin} {
		sub, err := m.Subscribe(context.Background(), ep, c, 0, 0, time.Second, nil)
		if err != nil {
			t.Fatalf("Subscribe(0x%04X) error = %v", uint32(c), err)
		}
		subs = append(subs, sub)
	}
	for _, sub := range subs {
		waitFor(t, "Active", func() bool { return sub.State() == SubscriptionActive })
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	m.ShutdownAll()
	m.ShutdownAll()
	flush(t, s)

	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	for i := 0; i < 3; i++ {
		if n := ft.subscription(i).handle.cancelled.Load(); n != 1 {
			t.Errorf("subscription %d cancelled %d times, want 1", i, n)
		}
		if subs[i].State() != SubscriptionCancelled {
			t.Errorf("subscription %d State() = %v, want Cancelled", i, subs[i].State())
		}
	}
}

func TestSubscribeCapabilityNotFound(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(1))

	_, err := s.Subscriptions().Subscribe(context.Background(), ep, clusterTargetNavigator, 0, 0, time.Second, nil)
	if !errors.Is(err, ErrCapabilityNotFound) {
		t.Errorf("Subscribe() error = %v, want %v", err, ErrCapabilityNotFound)
	}
	if s.Subscriptions().Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Subscriptions().Len())
	}
}

func TestSubscribeRejected(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.subscribeErr = errors.New("unsupported attribute")
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	rec := &recorder{}

	sub, err := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0x99, 0, time.Second, rec)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	waitFor(t, "OnError", func() bool { _, e := rec.counts(); return e == 1 })
	if sub.State() != SubscriptionCancelled {
		t.Errorf("State() = %v, want %v", sub.State(), SubscriptionCancelled)
	}
	if s.Subscriptions().Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Subscriptions().Len())
	}
}

func TestShutdownDuringRequest(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.holdSubscribe = true
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))

	sub, _ := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, time.Second, nil)
	waitFor(t, "subscribe request", func() bool { return ft.subscription(0) != nil })

	s.Subscriptions().ShutdownAll()
	fs := ft.subscription(0)
	fs.pending.Resolve(fs.handle)

	waitFor(t, "late handle release", func() bool { return fs.handle.cancelled.Load() == 1 })
	if sub.State() != SubscriptionCancelled {
		t.Errorf("State() = %v, want %v", sub.State(), SubscriptionCancelled)
	}
}

func TestRejectAfterShutdown(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	ft.holdSubscribe = true
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	rec := &recorder{}

	sub, _ := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, time.Second, rec)
	waitFor(t, "subscribe request", func() bool { return ft.subscription(0) != nil })

	s.Subscriptions().ShutdownAll()
	ft.subscription(0).pending.Reject(errors.New("unsupported attribute"))
	// The rejection is handled on its own goroutine.
	time.Sleep(50 * time.Millisecond)

	if u, e := rec.counts(); u != 0 || e != 0 {
		t.Errorf("callbacks after ShutdownAll: updates/errors = %d/%d, want 0/0", u, e)
	}
	if sub.State() != SubscriptionCancelled {
		t.Errorf("State() = %v, want %v", sub.State(), SubscriptionCancelled)
	}
}

func TestShutdownAllAsyncFromCallback(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s := newTestSession(t, ft)
	ep, _ := s.Endpoint(ByID(4))
	m := s.Subscriptions()

	var done *async.Future[struct{}]
	cb := async.CallbackFuncs[datamodel.Value]{
		Update: func(datamodel.Value) { done = m.ShutdownAllAsync() },
	}
	sub, err := m.Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, time.Second, cb)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitFor(t, "Active", func() bool { return sub.State() == SubscriptionActive })

	// Returns without waiting for itself.
	ft.subscription(0).sink.OnUpdate(datamodel.Uint(1))
	if done == nil {
		t.Fatal("callback did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := done.Await(ctx); err != nil {
		t.Fatalf("ShutdownAllAsync() error = %v", err)
	}
	if sub.State() != SubscriptionCancelled {
		t.Errorf("State() = %v, want %v", sub.State(), SubscriptionCancelled)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestSessionClose(t *testing.T) {
	ft := newFakeTransport(testEndpoints()...)
	s, err := Connect(context.Background(), SessionConfig{Player: &Player{ID: "tv"}, Transport: ft})
	if err != nil {
		t.Fatal(err)
	}
	ep, _ := s.Endpoint(ByID(4))
	sub, _ := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, time.Second, nil)
	waitFor(t, "Active", func() bool { return sub.State() == SubscriptionActive })

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Close() error = %v, want %v", err, ErrSessionClosed)
	}
	if ft.closed != 1 {
		t.Errorf("transport closed %d times, want 1", ft.closed)
	}
	if n := ft.subscription(0).handle.cancelled.Load(); n != 1 {
		t.Errorf("handle cancelled %d times, want 1", n)
	}

	_, err = s.Dispatcher().Invoke(context.Background(), ep, clusterMediaPlayback, 0, datamodel.Struct(nil)).Result()
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Invoke() after Close error = %v, want %v", err, ErrSessionClosed)
	}
	if _, err := s.Subscriptions().Subscribe(context.Background(), ep, clusterMediaPlayback, 0, 0, 0, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Subscribe() after Close error = %v, want %v", err, ErrSessionClosed)
	}
}

func TestKnownPlayers(t *testing.T) {
	st := storage.NewMemoryStorage()
	ft := newFakeTransport(testEndpoints()...)
	s, err := Connect(context.Background(), SessionConfig{
		Player: &Player{
			ID:         "tv",
			DeviceName: "Living Room TV",
			VendorID:   0xFFF1,
			Port:       5540,
			IPs:        []net.IP{net.ParseIP("fd00::1")},
		},
		Transport: ft,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.RememberPlayer(st); err != nil {
		t.Fatalf("RememberPlayer() error = %v", err)
	}

	players, err := KnownPlayers(st)
	if err != nil {
		t.Fatalf("KnownPlayers() error = %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("len(KnownPlayers()) = %d, want 1", len(players))
	}
	p := players[0]
	if p.DeviceName != "Living Room TV" || p.VendorID != 0xFFF1 {
		t.Errorf("player = %v", p)
	}
	if got, want := p.Address(), "[fd00::1]:5540"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
	if ep := SelectFirstByVendorID(p, 65521); ep == nil || ep.ID != 4 || len(ep.Clusters) != 3 {
		t.Errorf("restored endpoint = %v, want endpoint 4 with 3 clusters", ep)
	}
}
