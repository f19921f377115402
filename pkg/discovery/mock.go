package discovery

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

type mockEntry struct {
	entry    *zeroconf.ServiceEntry
	subtypes []string
}

// MockMDNSResolver provides a mock mDNS resolver for testing without real
// network I/O. Browse and Lookup send the matching registered entries and
// then close the channel, like a browse whose window has elapsed.
type MockMDNSResolver struct {
	mu      sync.RWMutex
	entries []mockEntry
}

// NewMockMDNSResolver creates a new mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{}
}

// RegisterService registers an entry that Browse and Lookup will return.
// The entry is also found by browses filtered on one of subtypes.
func (m *MockMDNSResolver) RegisterService(entry *zeroconf.ServiceEntry, subtypes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, mockEntry{entry: entry, subtypes: subtypes})
}

// ClearServices removes all registered entries.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

func (m *MockMDNSResolver) match(service string) []*zeroconf.ServiceEntry {
	base, subtype, _ := strings.Cut(service, ",")

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*zeroconf.ServiceEntry
	for _, e := range m.entries {
		if e.entry.Service != base {
			continue
		}
		if subtype != "" && !containsString(e.subtypes, subtype) {
			continue
		}
		out = append(out, e.entry)
	}
	return out
}

// Browse implements MDNSResolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	defer close(entries)
	for _, entry := range m.match(service) {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Lookup implements MDNSResolver.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	defer close(entries)
	for _, entry := range m.match(service) {
		if entry.Instance != instance {
			continue
		}
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
	return nil
}

// MockPlayerService creates a casting player service entry for testing.
func MockPlayerService(instanceName string, port int, ip net.IP, txt PlayerTXT) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceCommissioner,
			Domain:   DefaultDomain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text:     txt.Encode(),
	}
}

// MockMDNSServer is a registration returned by MockServerFactory.
type MockMDNSServer struct {
	Instance string
	Service  string
	Port     int
	TXT      []string

	mu       sync.Mutex
	shutdown bool
}

// Shutdown implements MDNSServer.
func (s *MockMDNSServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

// IsShutdown reports whether Shutdown was called.
func (s *MockMDNSServer) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// MockServerFactory records registrations instead of touching the network.
// When Resolver is set, registrations are also published to it so a
// resolver backed by the same mock can find them.
type MockServerFactory struct {
	Resolver *MockMDNSResolver

	mu      sync.Mutex
	servers []*MockMDNSServer
	err     error
}

// SetError makes subsequent Register calls fail with err.
func (f *MockServerFactory) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Servers returns the registrations made so far.
func (f *MockServerFactory) Servers() []*MockMDNSServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockMDNSServer(nil), f.servers...)
}

// Register implements MDNSServerFactory.
func (f *MockServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	s := &MockMDNSServer{Instance: instance, Service: service, Port: port, TXT: txt}
	f.servers = append(f.servers, s)

	if f.Resolver != nil {
		base, rest, _ := strings.Cut(service, ",")
		var subtypes []string
		if rest != "" {
			subtypes = strings.Split(rest, ",")
		}
		f.Resolver.RegisterService(&zeroconf.ServiceEntry{
			ServiceRecord: zeroconf.ServiceRecord{
				Instance: instance,
				Service:  base,
				Domain:   domain,
			},
			HostName: instance + ".local.",
			Port:     port,
			AddrIPv4: []net.IP{net.IPv4(127, 0, 0, 1)},
			Text:     txt,
		}, subtypes...)
	}
	return s, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var (
	_ MDNSResolver      = (*MockMDNSResolver)(nil)
	_ MDNSServerFactory = (*MockServerFactory)(nil)
)
