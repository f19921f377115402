package casting

import "github.com/backkem/matter-tv/pkg/datamodel"

// Selector picks one endpoint of a player, or returns nil.
type Selector func(p *Player) *Endpoint

// SelectFirstByVendorID returns the first endpoint, in the player's list
// order, whose vendor ID equals vid. It returns nil for a nil player, an
// unenumerated player, or no match.
func SelectFirstByVendorID(p *Player, vid datamodel.VendorID) *Endpoint {
	for _, e := range p.Endpoints() {
		if e.VendorID == vid {
			return e
		}
	}
	return nil
}

// SelectByID returns the endpoint with the given ID, or nil.
func SelectByID(p *Player, id datamodel.EndpointID) *Endpoint {
	for _, e := range p.Endpoints() {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ByVendorID returns a Selector for SelectFirstByVendorID.
func ByVendorID(vid datamodel.VendorID) Selector {
	return func(p *Player) *Endpoint {
		return SelectFirstByVendorID(p, vid)
	}
}

// ByID returns a Selector for SelectByID.
func ByID(id datamodel.EndpointID) Selector {
	return func(p *Player) *Endpoint {
		return SelectByID(p, id)
	}
}

// ByClusters returns a Selector for the first endpoint hosting every one of
// the given clusters.
func ByClusters(clusters ...datamodel.ClusterID) Selector {
	return func(p *Player) *Endpoint {
		for _, e := range p.Endpoints() {
			ok := true
			for _, c := range clusters {
				if !e.HasCluster(c) {
					ok = false
					break
				}
			}
			if ok {
				return e
			}
		}
		return nil
	}
}

// FirstOf returns a Selector that tries each selector in turn.
func FirstOf(selectors ...Selector) Selector {
	return func(p *Player) *Endpoint {
		for _, sel := range selectors {
			if sel == nil {
				continue
			}
			if e := sel(p); e != nil {
				return e
			}
		}
		return nil
	}
}

// Resolve applies sel to p and reports a miss as ErrEndpointNotFound.
func Resolve(p *Player, sel Selector) (*Endpoint, error) {
	if sel == nil {
		return nil, ErrEndpointNotFound
	}
	e := sel(p)
	if e == nil {
		return nil, ErrEndpointNotFound
	}
	return e, nil
}
