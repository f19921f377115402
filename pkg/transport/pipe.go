package transport

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// NetworkCondition configures simulated network behavior on a Pipe.
type NetworkCondition struct {
	// DropRate is the probability of dropping a packet (0.0 - 1.0).
	DropRate float64

	// DelayMin is the minimum delay added to each packet.
	DelayMin time.Duration

	// DelayMax is the maximum delay added to each packet.
	// The delay is uniform between DelayMin and DelayMax.
	DelayMax time.Duration

	// DuplicateRate is the probability of sending a packet twice (0.0 - 1.0).
	DuplicateRate float64
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess delivers packets from a background goroutine.
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers packets.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns a configuration with auto-processing enabled.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe is a bidirectional in-memory packet link between two ends. It wraps
// pion's test.Bridge and adds network condition simulation.
//
// With AutoProcess (the default) packets are delivered in the background.
// Disable it to step delivery with Tick and Process.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.RWMutex
	condition       NetworkCondition
	closed          bool
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}

	if p.processInterval <= 0 {
		p.processInterval = 1 * time.Millisecond
	}

	if p.autoProcess {
		p.startAutoProcess()
	}

	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}(p.stopCh)
}

// SetAutoProcess enables or disables background delivery.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.autoProcess == enabled {
		return
	}
	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// AutoProcess reports whether background delivery is enabled.
func (p *Pipe) AutoProcess() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoProcess
}

// SetCondition configures network simulation for both directions.
func (p *Pipe) SetCondition(cond NetworkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.condition = cond
}

// Condition returns the current network simulation settings.
func (p *Pipe) Condition() NetworkCondition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// Tick delivers at most one packet in each direction and returns the
// number delivered.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued packets and returns the number delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			return count
		}
		count += n
	}
}

// PacketConns returns both ends of the pipe as packet connections bound to
// the given logical port.
func (p *Pipe) PacketConns(port int) (*PipePacketConn, *PipePacketConn) {
	return p.packetConn(0, port), p.packetConn(1, port)
}

func (p *Pipe) packetConn(id, port int) *PipePacketConn {
	conn := p.bridge.GetConn0()
	if id == 1 {
		conn = p.bridge.GetConn1()
	}
	return &PipePacketConn{
		conn:     conn,
		localID:  id,
		port:     port,
		peerAddr: PipeAddr{ID: 1 - id, Port: port},
		pipe:     p,
	}
}

// Close closes both ends and stops background delivery.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	err0 := p.bridge.GetConn0().Close()
	err1 := p.bridge.GetConn1().Close()

	// The bridge releases blocked readers on its next tick.
	p.bridge.Tick()
	if err0 != nil {
		return err0
	}
	return err1
}

// PipeAddr is the address of one end of a Pipe.
type PipeAddr struct {
	ID   int // End of the pipe (0 or 1)
	Port int // Logical port number
}

// Network returns "pipe".
func (a PipeAddr) Network() string { return "pipe" }

// String returns the address as "pipe:<id>:<port>".
func (a PipeAddr) String() string { return fmt.Sprintf("pipe:%d:%d", a.ID, a.Port) }

// PipePacketConn adapts one end of a Pipe to net.PacketConn so it can back
// a UDP transport.
type PipePacketConn struct {
	conn     net.Conn
	localID  int
	port     int
	peerAddr net.Addr
	pipe     *Pipe
}

// ReadFrom reads a packet. The returned address is always the peer.
func (c *PipePacketConn) ReadFrom(b []byte) (n int, addr net.Addr, err error) {
	n, err = c.conn.Read(b)
	return n, c.peerAddr, err
}

// WriteTo writes a packet to the peer, applying the pipe's network
// condition. addr is ignored since a pipe has a single peer.
func (c *PipePacketConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	if c.pipe != nil {
		c.pipe.mu.RLock()
		cond := c.pipe.condition
		rng := c.pipe.rng
		c.pipe.mu.RUnlock()

		if cond.DropRate > 0 && rng.Float64() < cond.DropRate {
			return len(b), nil
		}

		if cond.DelayMax > 0 {
			delay := cond.DelayMin
			if cond.DelayMax > cond.DelayMin {
				delay += time.Duration(rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}

		if cond.DuplicateRate > 0 && rng.Float64() < cond.DuplicateRate {
			if _, err := c.conn.Write(b); err != nil {
				return 0, err
			}
		}
	}

	return c.conn.Write(b)
}

// Close closes this end of the pipe.
func (c *PipePacketConn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the address of this end.
func (c *PipePacketConn) LocalAddr() net.Addr {
	return PipeAddr{ID: c.localID, Port: c.port}
}

// PeerAddr returns the address of the other end.
func (c *PipePacketConn) PeerAddr() net.Addr {
	return c.peerAddr
}

// SetDeadline sets the read and write deadlines.
func (c *PipePacketConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *PipePacketConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *PipePacketConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

var _ net.PacketConn = (*PipePacketConn)(nil)

// PipeFactory hands out one end of a Pipe through the Factory interface,
// so code written against real sockets can run over a pipe.
type PipeFactory struct {
	pipe    *Pipe
	localID int

	mu   sync.Mutex
	conn *PipePacketConn
}

// NewPipeFactoryPair creates two factories joined by a new auto-processing
// pipe.
//
//	f0, f1 := transport.NewPipeFactoryPair()
//	// f0 for the player, f1 for the casting client
func NewPipeFactoryPair() (*PipeFactory, *PipeFactory) {
	return NewPipeFactoryPairWithConfig(DefaultPipeConfig())
}

// NewPipeFactoryPairWithConfig creates two factories joined by a new pipe.
func NewPipeFactoryPairWithConfig(config PipeConfig) (*PipeFactory, *PipeFactory) {
	pipe := NewPipeWithConfig(config)
	return &PipeFactory{pipe: pipe, localID: 0}, &PipeFactory{pipe: pipe, localID: 1}
}

// Pipe returns the underlying pipe.
func (f *PipeFactory) Pipe() *Pipe {
	return f.pipe
}

// LocalAddr returns the address of this factory's end.
func (f *PipeFactory) LocalAddr() net.Addr {
	return PipeAddr{ID: f.localID, Port: DefaultPort}
}

// PeerAddr returns the address of the other end.
func (f *PipeFactory) PeerAddr() net.Addr {
	return PipeAddr{ID: 1 - f.localID, Port: DefaultPort}
}

// CreateUDPConn returns this factory's end of the pipe. Repeated calls
// return the same connection.
func (f *PipeFactory) CreateUDPConn(port int) (net.PacketConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		f.conn = f.pipe.packetConn(f.localID, port)
	}
	return f.conn, nil
}

var _ Factory = (*PipeFactory)(nil)
