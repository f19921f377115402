// Package integration provides end-to-end tests that run a video player
// and a casting client against each other over an in-memory pipe.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pion/logging"

	"github.com/backkem/matter-tv/examples/castingapp"
	"github.com/backkem/matter-tv/examples/common"
	"github.com/backkem/matter-tv/examples/videoplayer"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/discovery"
	"github.com/backkem/matter-tv/pkg/link"
	"github.com/backkem/matter-tv/pkg/storage"
	"github.com/backkem/matter-tv/pkg/transport"
)

// TestPair holds a started video player and a casting client connected to
// it.
//
// Example usage:
//
//	pair := NewTestPair(t, DefaultTestPairConfig())
//	s, ep := pair.Session()
//	mediaplayback.NewClient(s, ep).Play(ctx)
type TestPair struct {
	// Device is the video player under test.
	Device *videoplayer.Device

	// Controller is the casting client.
	Controller *castingapp.Controller

	// Pipe links the two. Use SetCondition to simulate loss.
	Pipe *transport.Pipe

	// Storage is the client's player cache.
	Storage storage.Storage

	// MQTT records what the player's bridge published.
	MQTT *RecordingMQTT

	// Dials counts transports opened by the client.
	Dials int

	t *testing.T
}

// TestPairConfig configures the test pair creation.
type TestPairConfig struct {
	// Player is the video player configuration.
	Player common.ContentAppFile

	// Casting is the casting client configuration.
	Casting common.CastingAppFile

	// HeartbeatGrace is the client's slack past a subscription's maximum
	// interval. Defaults to link.DefaultHeartbeatGrace.
	HeartbeatGrace time.Duration

	// Connect discovers the player and connects before returning.
	Connect bool

	// LoggerFactory for logging. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// DefaultTestPairConfig returns a connected pair with the built-in
// configurations.
func DefaultTestPairConfig() TestPairConfig {
	client := common.DefaultCastingAppFile()
	client.BrowseTimeout = time.Second
	return TestPairConfig{
		Player:  common.DefaultContentAppFile(),
		Casting: client,
		Connect: true,
	}
}

// NewTestPair starts a player and a client sharing a mock mDNS resolver and
// a pipe. Everything is closed when the test ends.
func NewTestPair(t *testing.T, config TestPairConfig) *TestPair {
	t.Helper()

	pipe := transport.NewPipe()
	serverConn, clientConn := pipe.PacketConns(transport.DefaultPort)
	resolver := discovery.NewMockMDNSResolver()
	mqtt := &RecordingMQTT{}

	p := &TestPair{Pipe: pipe, MQTT: mqtt, Storage: storage.NewMemoryStorage(), t: t}

	device, err := videoplayer.NewDevice(videoplayer.Options{
		File:          config.Player,
		Conn:          serverConn,
		ServerFactory: &discovery.MockServerFactory{Resolver: resolver},
		MQTTClient:    mqtt,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		pipe.Close()
		t.Fatalf("NewDevice() error = %v", err)
	}
	p.Device = device
	if err := device.Start(); err != nil {
		device.Close()
		pipe.Close()
		t.Fatalf("Device.Start() error = %v", err)
	}

	ctrl, err := castingapp.New(castingapp.Options{
		File:         config.Casting,
		Storage:      p.Storage,
		MDNSResolver: resolver,
		Dial: func(ctx context.Context, player *casting.Player) (casting.Transport, error) {
			// A closed client leaves its read deadline behind.
			clientConn.SetReadDeadline(time.Time{})
			c, err := link.Dial(link.ClientConfig{
				Conn:           reusableConn{clientConn},
				Peer:           clientConn.PeerAddr(),
				HeartbeatGrace: config.HeartbeatGrace,
				LoggerFactory:  config.LoggerFactory,
			})
			if err != nil {
				return nil, err
			}
			p.Dials++
			return c, nil
		},
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		device.Close()
		pipe.Close()
		t.Fatalf("castingapp.New() error = %v", err)
	}
	p.Controller = ctrl

	t.Cleanup(p.Close)

	if config.Connect {
		p.Connect()
	}
	return p
}

// Connect discovers the single player and connects to it.
func (p *TestPair) Connect() {
	p.t.Helper()
	ctx := p.Context()
	players, err := p.Controller.Discover(ctx)
	if err != nil {
		p.t.Fatalf("Discover() error = %v", err)
	}
	if len(players) != 1 {
		p.t.Fatalf("Discover() = %d players, want 1", len(players))
	}
	if err := p.Controller.Connect(ctx, players[0]); err != nil {
		p.t.Fatalf("Connect() error = %v", err)
	}
}

// Session returns the client's session and selected endpoint.
func (p *TestPair) Session() (*casting.Session, *casting.Endpoint) {
	p.t.Helper()
	s, ep, err := p.Controller.Session()
	if err != nil {
		p.t.Fatalf("Session() error = %v", err)
	}
	return s, ep
}

// App returns the player's app on the client's selected endpoint.
func (p *TestPair) App() *videoplayer.App {
	p.t.Helper()
	_, ep := p.Session()
	app, err := p.Device.App(ep.ID)
	if err != nil {
		p.t.Fatalf("App(%d) error = %v", ep.ID, err)
	}
	return app
}

// Context returns a context for operations on this pair, cancelled when
// the test ends.
func (p *TestPair) Context() context.Context {
	return p.ContextWithTimeout(10 * time.Second)
}

// ContextWithTimeout returns a context with custom timeout.
func (p *TestPair) ContextWithTimeout(timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	p.t.Cleanup(cancel)
	return ctx
}

// Close cleans up resources used by the pair.
func (p *TestPair) Close() {
	if p.Controller != nil {
		p.Controller.Close()
	}
	if p.Device != nil {
		p.Device.Close()
	}
	p.Pipe.Close()
}

// reusableConn keeps the pipe end open when a client closes, so the
// casting client can dial again.
type reusableConn struct {
	*transport.PipePacketConn
}

func (reusableConn) Close() error { return nil }

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// doneToken is an already completed MQTT token.
type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// RecordingMQTT is an MQTT client that keeps every publication.
type RecordingMQTT struct {
	mu           sync.Mutex
	published    map[string][]byte
	disconnected bool
}

// Publish records payload as the retained value of topic.
func (m *RecordingMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published == nil {
		m.published = make(map[string][]byte)
	}
	m.published[topic] = payload.([]byte)
	return doneToken{}
}

// Disconnect records the disconnect.
func (m *RecordingMQTT) Disconnect(uint) {
	m.mu.Lock()
	m.disconnected = true
	m.mu.Unlock()
}

// Retained returns the last payload published to topic.
func (m *RecordingMQTT) Retained(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.published[topic]
	return b, ok
}

// Disconnected reports whether the bridge disconnected.
func (m *RecordingMQTT) Disconnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}
