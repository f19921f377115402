package applicationbasic

import (
	"context"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Client reads the description of a content app on a casting player
// endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

func asString(v datamodel.Value) (string, error) { return v.AsString() }

// VendorName reads the vendor name.
func (c *Client) VendorName(ctx context.Context) *async.Future[string] {
	return clusters.ReadDecode(ctx, c.Binding, AttrVendorName, asString)
}

// ApplicationName reads the application name.
func (c *Client) ApplicationName(ctx context.Context) *async.Future[string] {
	return clusters.ReadDecode(ctx, c.Binding, AttrApplicationName, asString)
}

// ApplicationVersion reads the application version.
func (c *Client) ApplicationVersion(ctx context.Context) *async.Future[string] {
	return clusters.ReadDecode(ctx, c.Binding, AttrApplicationVersion, asString)
}

// Application reads the catalog identity of the app.
func (c *Client) Application(ctx context.Context) *async.Future[Application] {
	return clusters.ReadDecode(ctx, c.Binding, AttrApplication, ApplicationFromValue)
}

// Status reads the run status.
func (c *Client) Status(ctx context.Context) *async.Future[ApplicationStatus] {
	return clusters.ReadDecode(ctx, c.Binding, AttrStatus, ApplicationStatusFromValue)
}

// SubscribeStatus reports run status changes to cb.
func (c *Client) SubscribeStatus(ctx context.Context, minInterval, maxInterval time.Duration, cb async.Callback[ApplicationStatus]) (*casting.Subscription, error) {
	return clusters.SubscribeDecode(ctx, c.Binding, AttrStatus, minInterval, maxInterval, cb, ApplicationStatusFromValue)
}

// Info reads every attribute of the cluster. The reads are issued
// together and the first failure is returned.
func (c *Client) Info(ctx context.Context) (Info, error) {
	vendorName := c.VendorName(ctx)
	vendorID := c.Read(ctx, AttrVendorID)
	appName := c.ApplicationName(ctx)
	productID := c.Read(ctx, AttrProductID)
	app := c.Application(ctx)
	status := c.Status(ctx)
	version := c.ApplicationVersion(ctx)

	var info Info
	var err error
	if info.VendorName, err = vendorName.Await(ctx); err != nil {
		return Info{}, err
	}
	v, err := vendorID.Await(ctx)
	if err != nil {
		return Info{}, err
	}
	n, err := v.AsUint()
	if err != nil {
		return Info{}, err
	}
	info.VendorID = datamodel.VendorID(n)
	if info.ApplicationName, err = appName.Await(ctx); err != nil {
		return Info{}, err
	}
	if v, err = productID.Await(ctx); err != nil {
		return Info{}, err
	}
	if n, err = v.AsUint(); err != nil {
		return Info{}, err
	}
	info.ProductID = datamodel.ProductID(n)
	if info.Application, err = app.Await(ctx); err != nil {
		return Info{}, err
	}
	if info.Status, err = status.Await(ctx); err != nil {
		return Info{}, err
	}
	if info.ApplicationVersion, err = version.Await(ctx); err != nil {
		return Info{}, err
	}
	return info, nil
}
