package casting

import (
	"net"
	"time"

	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/storage"
)

// PlayerRecord converts p to its stored form, stamped with seen.
func PlayerRecord(p *Player, seen time.Time) *storage.PlayerRecord {
	r := &storage.PlayerRecord{
		ID:         p.ID,
		DeviceName: p.DeviceName,
		VendorID:   uint16(p.VendorID),
		ProductID:  uint16(p.ProductID),
		DeviceType: uint32(p.DeviceType),
		Host:       p.Host,
		Port:       p.Port,
		LastSeen:   seen,
	}
	for _, ip := range p.IPs {
		r.IPs = append(r.IPs, ip.String())
	}
	for _, e := range p.endpoints {
		er := storage.EndpointRecord{
			ID:        uint16(e.ID),
			VendorID:  uint16(e.VendorID),
			ProductID: uint16(e.ProductID),
		}
		for _, dt := range e.DeviceTypes {
			er.DeviceTypes = append(er.DeviceTypes, uint32(dt))
		}
		for _, c := range e.Clusters {
			er.Clusters = append(er.Clusters, uint32(c))
		}
		r.Endpoints = append(r.Endpoints, er)
	}
	return r
}

// PlayerFromRecord rebuilds a Player from its stored form. The endpoint list
// is the one seen on the last connection; a new session enumerates again.
func PlayerFromRecord(r *storage.PlayerRecord) *Player {
	p := &Player{
		ID:         r.ID,
		DeviceName: r.DeviceName,
		VendorID:   datamodel.VendorID(r.VendorID),
		ProductID:  datamodel.ProductID(r.ProductID),
		DeviceType: datamodel.DeviceTypeID(r.DeviceType),
		Host:       r.Host,
		Port:       r.Port,
	}
	for _, s := range r.IPs {
		if ip := net.ParseIP(s); ip != nil {
			p.IPs = append(p.IPs, ip)
		}
	}
	if len(r.Endpoints) == 0 {
		return p
	}

	endpoints := make([]Endpoint, len(r.Endpoints))
	for i, er := range r.Endpoints {
		e := Endpoint{
			ID:        datamodel.EndpointID(er.ID),
			VendorID:  datamodel.VendorID(er.VendorID),
			ProductID: datamodel.ProductID(er.ProductID),
		}
		for _, dt := range er.DeviceTypes {
			e.DeviceTypes = append(e.DeviceTypes, datamodel.DeviceTypeID(dt))
		}
		for _, c := range er.Clusters {
			e.Clusters = append(e.Clusters, datamodel.ClusterID(c))
		}
		endpoints[i] = e
	}
	p.endpoints = endpoints
	return p
}

// RememberPlayer stores the session's player with its endpoint list.
func (s *Session) RememberPlayer(st storage.Storage) error {
	return st.SavePlayer(PlayerRecord(s.player, time.Now()))
}

// KnownPlayers loads every stored player.
func KnownPlayers(st storage.Storage) ([]*Player, error) {
	records, err := st.LoadPlayers()
	if err != nil {
		return nil, err
	}
	players := make([]*Player, len(records))
	for i, r := range records {
		players[i] = PlayerFromRecord(r)
	}
	return players, nil
}
