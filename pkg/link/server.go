package link

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/transport"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Conn is an optional packet connection to serve on, for example one
	// end of a transport.Pipe. If nil, ListenAddr is opened.
	Conn net.PacketConn

	// ListenAddr is the UDP address to listen on. Defaults to ":5540".
	ListenAddr string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Server answers link requests for the content apps hosted on a player.
// Each hosted app is one endpoint. The server attaches itself to each app's
// Notifier and turns attribute changes into subscription reports.
type Server struct {
	udp *transport.UDP
	log logging.LeveledLogger

	mu       sync.RWMutex
	apps     map[datamodel.EndpointID]*hostedApp
	peers    map[string]*peer
	subs     map[subKey]*serverSubscription
	closed   bool
	stopOnce sync.Once
}

type hostedApp struct {
	app    *contentapp.App
	remove func()
}

// peer is a client that said Hello.
type peer struct {
	session  string
	addr     net.Addr
	lastSeen time.Time
}

type subKey struct {
	peer string
	id   uint32
}

// NewServer creates a server. Call Start to begin serving.
func NewServer(config ServerConfig) (*Server, error) {
	s := &Server{
		apps:  make(map[datamodel.EndpointID]*hostedApp),
		peers: make(map[string]*peer),
		subs:  make(map[subKey]*serverSubscription),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("link-server")
	}

	listen := config.ListenAddr
	if listen == "" && config.Conn == nil {
		listen = ":5540"
	}

	udp, err := transport.NewUDP(transport.UDPConfig{
		Conn:          config.Conn,
		ListenAddr:    listen,
		Handler:       s.handlePacket,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	s.udp = udp
	return s, nil
}

// AddApp hosts app on its endpoint.
func (s *Server) AddApp(app *contentapp.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.apps[app.Endpoint()]; ok {
		return ErrEndpointExists
	}

	remove := app.Notifier().AddReporter(contentapp.ReporterFunc(s.reportAttribute))
	s.apps[app.Endpoint()] = &hostedApp{app: app, remove: remove}

	if s.log != nil {
		s.log.Infof("hosting %q on endpoint %d", app.Config().ApplicationName, app.Endpoint())
	}
	return nil
}

// Endpoints returns the descriptors of the hosted apps, ordered by ID.
func (s *Server) Endpoints() []EndpointInfo {
	s.mu.RLock()
	apps := make([]*contentapp.App, 0, len(s.apps))
	for _, h := range s.apps {
		apps = append(apps, h.app)
	}
	s.mu.RUnlock()

	sort.Slice(apps, func(i, j int) bool { return apps[i].Endpoint() < apps[j].Endpoint() })

	infos := make([]EndpointInfo, len(apps))
	for i, app := range apps {
		cfg := app.Config()
		info := EndpointInfo{
			ID:          uint16(app.Endpoint()),
			VendorID:    uint16(cfg.VendorID),
			ProductID:   uint16(cfg.ProductID),
			DeviceTypes: []uint32{uint32(datamodel.DeviceTypeContentApp)},
		}
		for _, c := range app.Clusters() {
			info.Clusters = append(info.Clusters, uint32(c))
		}
		infos[i] = info
	}
	return infos
}

// Start begins serving.
func (s *Server) Start() error {
	return s.udp.Start()
}

// LocalAddr returns the address the server listens on.
func (s *Server) LocalAddr() net.Addr {
	return s.udp.LocalAddr()
}

// SubscriptionCount returns the number of live subscriptions.
func (s *Server) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close stops serving, ends all subscriptions and detaches from the apps.
// The apps themselves stay open.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[subKey]*serverSubscription)
	apps := s.apps
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	for _, h := range apps {
		h.remove()
	}
	return s.udp.Stop()
}

func (s *Server) app(ep datamodel.EndpointID) *contentapp.App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.apps[ep]; ok {
		return h.app
	}
	return nil
}

func (s *Server) send(f *Frame, addr net.Addr) {
	data, err := Encode(f)
	if err != nil {
		if s.log != nil {
			s.log.Errorf("encode %v: %v", f.Op, err)
		}
		return
	}
	if err := s.udp.Send(data, addr); err != nil && s.log != nil {
		s.log.Debugf("send %v to %v: %v", f.Op, addr, err)
	}
}

func (s *Server) handlePacket(p transport.Packet) {
	f, err := Decode(p.Data)
	if err != nil {
		if s.log != nil {
			s.log.Debugf("drop packet from %v: %v", p.Addr, err)
		}
		return
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	if s.log != nil {
		s.log.Tracef("%v id=%d from %v", f.Op, f.ID, p.Addr)
	}

	switch f.Op {
	case OpHello:
		s.handleHello(f, p.Addr)
	case OpInvoke:
		s.handleInvoke(f, p.Addr)
	case OpRead:
		s.handleRead(f, p.Addr)
	case OpSubscribe:
		s.handleSubscribe(f, p.Addr)
	case OpUnsubscribe:
		s.handleUnsubscribe(f, p.Addr)
	case OpBye:
		s.dropPeer(p.Addr.String())
	default:
		if s.log != nil {
			s.log.Debugf("unexpected %v from %v", f.Op, p.Addr)
		}
	}
}

func (s *Server) handleHello(f *Frame, addr net.Addr) {
	// A repeated Hello means the client restarted; its old subscriptions
	// are gone.
	s.dropPeer(addr.String())

	pr := &peer{
		session:  uuid.New().String(),
		addr:     addr,
		lastSeen: time.Now(),
	}
	s.mu.Lock()
	s.peers[addr.String()] = pr
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("session %s from %v", pr.session, addr)
	}

	s.send(&Frame{
		Op:        OpHelloResponse,
		ID:        f.ID,
		Session:   pr.session,
		Endpoints: s.Endpoints(),
	}, addr)
}

func (s *Server) dropPeer(key string) {
	s.mu.Lock()
	delete(s.peers, key)
	var dropped []*serverSubscription
	for k, sub := range s.subs {
		if k.peer == key {
			dropped = append(dropped, sub)
			delete(s.subs, k)
		}
	}
	s.mu.Unlock()

	for _, sub := range dropped {
		sub.stop()
	}
	if len(dropped) > 0 && s.log != nil {
		s.log.Debugf("dropped %d subscriptions of %s", len(dropped), key)
	}
}

// Peers returns the number of clients that said Hello and not Bye.
func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *Server) handleInvoke(f *Frame, addr net.Addr) {
	resp := &Frame{Op: OpInvokeResponse, ID: f.ID}

	app := s.app(datamodel.EndpointID(f.Endpoint))
	if app == nil {
		resp.Status = datamodel.StatusUnsupportedEndpoint
		s.send(resp, addr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	r, err := app.HandleCommand(ctx, contentapp.CommandRequest{
		Path:   f.CommandPath(),
		Fields: f.Value,
	})
	resp.Status = r.Status
	resp.Value = r.Fields
	resp.Payload = r.Payload
	if err != nil {
		if resp.Status.IsSuccess() {
			resp.Status = datamodel.StatusFailure
		}
		resp.Error = err.Error()
		if s.log != nil {
			s.log.Debugf("invoke %s: %v", f.CommandPath(), err)
		}
	}
	s.send(resp, addr)
}

// readStatus maps an App.ReadAttribute error to a status.
func readStatus(err error) datamodel.Status {
	switch {
	case err == nil:
		return datamodel.StatusSuccess
	case errors.Is(err, contentapp.ErrNotConfigured):
		return datamodel.StatusNotFound
	case errors.Is(err, contentapp.ErrUnsupportedCluster):
		return datamodel.StatusUnsupportedCluster
	default:
		return datamodel.StatusFailure
	}
}

func (s *Server) handleRead(f *Frame, addr net.Addr) {
	resp := &Frame{Op: OpReadResponse, ID: f.ID}
	resp.SetAttributePath(f.AttributePath())

	app := s.app(datamodel.EndpointID(f.Endpoint))
	if app == nil {
		resp.Status = datamodel.StatusUnsupportedEndpoint
		s.send(resp, addr)
		return
	}

	v, err := app.ReadAttribute(datamodel.ClusterID(f.Cluster), datamodel.AttributeID(f.Attribute))
	resp.Status = readStatus(err)
	resp.Value = v
	s.send(resp, addr)
}

func (s *Server) handleSubscribe(f *Frame, addr net.Addr) {
	resp := &Frame{Op: OpSubscribeResponse, ID: f.ID, SubscriptionID: f.SubscriptionID}
	path := f.AttributePath()

	app := s.app(path.Endpoint)
	switch {
	case app == nil:
		resp.Status = datamodel.StatusUnsupportedEndpoint
	case !app.HasCluster(path.Cluster):
		resp.Status = datamodel.StatusUnsupportedCluster
	}
	if !resp.Status.IsSuccess() {
		s.send(resp, addr)
		return
	}

	key := subKey{peer: addr.String(), id: f.SubscriptionID}
	sub := newServerSubscription(s, app, f.SubscriptionID, addr, path, f.MinInterval(), f.MaxInterval())

	s.mu.Lock()
	old := s.subs[key]
	s.subs[key] = sub
	s.mu.Unlock()
	if old != nil {
		old.stop()
	}

	if s.log != nil {
		s.log.Debugf("subscription %d from %v on %s min=%v max=%v",
			f.SubscriptionID, addr, path, f.MinInterval(), f.MaxInterval())
	}

	s.send(resp, addr)

	// Priming report.
	if v, err := app.ReadAttribute(path.Cluster, path.Attribute); err == nil {
		sub.sendNow(v)
	} else {
		sub.armHeartbeat()
	}
}

func (s *Server) handleUnsubscribe(f *Frame, addr net.Addr) {
	key := subKey{peer: addr.String(), id: f.SubscriptionID}

	s.mu.Lock()
	sub := s.subs[key]
	delete(s.subs, key)
	s.mu.Unlock()

	resp := &Frame{Op: OpUnsubscribeResponse, ID: f.ID, SubscriptionID: f.SubscriptionID}
	if sub == nil {
		resp.Status = datamodel.StatusNotFound
	} else {
		sub.stop()
	}
	s.send(resp, addr)
}

// reportAttribute is the contentapp.Reporter of every hosted app. It runs
// on the app's worker.
func (s *Server) reportAttribute(path datamodel.AttributePath, value datamodel.Value) {
	s.mu.RLock()
	var matched []*serverSubscription
	for _, sub := range s.subs {
		if sub.path == path {
			matched = append(matched, sub)
		}
	}
	s.mu.RUnlock()

	for _, sub := range matched {
		sub.offer(value)
	}
}
