// Package transport carries link datagrams between a casting client and a
// player. UDP wraps a net.PacketConn with a read loop; Pipe provides the
// same over an in-memory bridge for tests.
package transport

import (
	"net"
	"strconv"
)

// DefaultPort is the port a player listens on when none is configured.
const DefaultPort = 5540

// MaxPacketSize is the largest datagram the transport sends or receives.
// It is the IPv6 minimum MTU, so packets are never fragmented.
const MaxPacketSize = 1280

// Packet is a datagram received from a peer.
type Packet struct {
	// Data holds the datagram. The handler owns it.
	Data []byte

	// Addr is the sender. Replies are sent to it.
	Addr net.Addr
}

// PacketHandler is called for each received packet, on the read loop
// goroutine. Implementations should return quickly.
type PacketHandler func(p Packet)

// ResolveAddr parses a "host:port" string into a UDP address. A missing
// port defaults to DefaultPort.
func ResolveAddr(addr string) (net.Addr, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return udpAddr, nil
}

// Factory creates packet connections. NetFactory opens real sockets;
// PipeFactory hands out the ends of an in-memory pipe.
type Factory interface {
	CreateUDPConn(port int) (net.PacketConn, error)
}

// NetFactory creates UDP sockets on Host.
type NetFactory struct {
	// Host to bind. Empty binds all interfaces.
	Host string
}

// CreateUDPConn listens on Host:port. Port 0 picks an ephemeral port.
func (f NetFactory) CreateUDPConn(port int) (net.PacketConn, error) {
	return net.ListenPacket("udp", net.JoinHostPort(f.Host, strconv.Itoa(port)))
}

var _ Factory = NetFactory{}
