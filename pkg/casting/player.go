package casting

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/discovery"
)

// Endpoint describes one endpoint of a casting player as enumerated when a
// session connects. Endpoints are treated as immutable.
type Endpoint struct {
	ID          datamodel.EndpointID
	VendorID    datamodel.VendorID
	ProductID   datamodel.ProductID
	DeviceTypes []datamodel.DeviceTypeID
	Clusters    []datamodel.ClusterID
}

// HasCluster reports whether the endpoint hosts cluster.
func (e *Endpoint) HasCluster(cluster datamodel.ClusterID) bool {
	if e == nil {
		return false
	}
	for _, c := range e.Clusters {
		if c == cluster {
			return true
		}
	}
	return false
}

// String returns a short description of the endpoint.
func (e *Endpoint) String() string {
	if e == nil {
		return "<nil endpoint>"
	}
	return fmt.Sprintf("endpoint %d (vid=0x%04X pid=0x%04X, %d clusters)",
		e.ID, uint16(e.VendorID), uint16(e.ProductID), len(e.Clusters))
}

func (e Endpoint) clone() *Endpoint {
	e.DeviceTypes = append([]datamodel.DeviceTypeID(nil), e.DeviceTypes...)
	e.Clusters = append([]datamodel.ClusterID(nil), e.Clusters...)
	return &e
}

// Player is a remote casting video player (a TV). Its endpoint list is nil
// until a session enumerates it; WithEndpoints returns an enumerated copy.
type Player struct {
	ID         string
	DeviceName string
	VendorID   datamodel.VendorID
	ProductID  datamodel.ProductID
	DeviceType datamodel.DeviceTypeID
	Host       string
	Port       int
	IPs        []net.IP

	endpoints []Endpoint
}

// PlayerFromService builds a Player from a resolved commissioner service.
func PlayerFromService(svc *discovery.ResolvedService) (*Player, error) {
	txt, err := svc.TXT()
	if err != nil {
		return nil, fmt.Errorf("casting: player %q: %w", svc.InstanceName, err)
	}

	p := &Player{
		ID:         svc.InstanceName,
		DeviceName: txt.DeviceName,
		VendorID:   datamodel.VendorID(txt.VendorID),
		ProductID:  datamodel.ProductID(txt.ProductID),
		DeviceType: datamodel.DeviceTypeID(txt.DeviceType),
		Host:       svc.HostName,
		Port:       svc.Port,
	}
	p.IPs = append(p.IPs, svc.IPs...)
	return p, nil
}

// Address returns the address to dial: the first IP that can be dialed
// without an interface zone, else the host name. IPv6 link-local addresses
// are used only when nothing else is known.
func (p *Player) Address() string {
	host := ""
	for _, ip := range p.IPs {
		if ip.To4() == nil && ip.IsLinkLocalUnicast() {
			continue
		}
		host = ip.String()
		break
	}
	if host == "" {
		host = strings.TrimSuffix(p.Host, ".")
	}
	if host == "" && len(p.IPs) > 0 {
		host = p.IPs[0].String()
	}
	return net.JoinHostPort(host, strconv.Itoa(p.Port))
}

// Endpoints returns copies of the enumerated endpoints, in the order the
// player listed them. It returns nil before enumeration.
func (p *Player) Endpoints() []*Endpoint {
	if p == nil || p.endpoints == nil {
		return nil
	}
	out := make([]*Endpoint, len(p.endpoints))
	for i, e := range p.endpoints {
		out[i] = e.clone()
	}
	return out
}

// WithEndpoints returns a copy of p carrying the given endpoint list.
func (p *Player) WithEndpoints(endpoints []Endpoint) *Player {
	cp := *p
	cp.IPs = append([]net.IP(nil), p.IPs...)
	cp.endpoints = make([]Endpoint, len(endpoints))
	for i, e := range endpoints {
		cp.endpoints[i] = *e.clone()
	}
	return &cp
}

// String returns a short description of the player.
func (p *Player) String() string {
	if p == nil {
		return "<nil player>"
	}
	name := p.DeviceName
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("%s (vid=0x%04X pid=0x%04X) at %s", name, uint16(p.VendorID), uint16(p.ProductID), p.Address())
}
