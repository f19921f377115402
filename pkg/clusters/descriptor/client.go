package descriptor

import (
	"context"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Client reads the description of a casting player endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

// DeviceTypes reads DeviceTypeList.
func (c *Client) DeviceTypes(ctx context.Context) *async.Future[[]DeviceType] {
	return clusters.ReadDecode(ctx, c.Binding, AttrDeviceTypeList, DeviceTypeListFromValue)
}

// ServerList reads the clusters the endpoint serves.
func (c *Client) ServerList(ctx context.Context) *async.Future[[]datamodel.ClusterID] {
	return clusters.ReadDecode(ctx, c.Binding, AttrServerList, ClusterListFromValue)
}

// ClientList reads the client clusters of the endpoint.
func (c *Client) ClientList(ctx context.Context) *async.Future[[]datamodel.ClusterID] {
	return clusters.ReadDecode(ctx, c.Binding, AttrClientList, ClusterListFromValue)
}
