package applicationlauncher

import (
	"context"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Client launches apps on a casting player endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

func decodeLauncherResponse(r casting.CommandResult) (LauncherResponse, error) {
	return LauncherResponseFromValue(r.Fields)
}

// LaunchApp brings an app to the foreground.
func (c *Client) LaunchApp(ctx context.Context, req LaunchAppRequest) *async.Future[LauncherResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, CmdLaunchApp, req.Value(), decodeLauncherResponse)
}

// StopApp stops app. A nil app stops the app on the bound endpoint.
func (c *Client) StopApp(ctx context.Context, app *Application) *async.Future[LauncherResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, CmdStopApp, appRequest(app), decodeLauncherResponse)
}

// HideApp sends app to the background.
func (c *Client) HideApp(ctx context.Context, app *Application) *async.Future[LauncherResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, CmdHideApp, appRequest(app), decodeLauncherResponse)
}

// CatalogList reads the accepted catalog vendor IDs.
func (c *Client) CatalogList(ctx context.Context) *async.Future[[]uint16] {
	return clusters.ReadDecode(ctx, c.Binding, AttrCatalogList, CatalogListFromValue)
}

// CurrentApp reads the app in the foreground, or nil when there is none.
func (c *Client) CurrentApp(ctx context.Context) *async.Future[*ApplicationEP] {
	return clusters.ReadDecode(ctx, c.Binding, AttrCurrentApp, currentApp)
}

// SubscribeCurrentApp reports foreground changes to cb.
func (c *Client) SubscribeCurrentApp(ctx context.Context, minInterval, maxInterval time.Duration, cb async.Callback[*ApplicationEP]) (*casting.Subscription, error) {
	return clusters.SubscribeDecode(ctx, c.Binding, AttrCurrentApp, minInterval, maxInterval, cb, currentApp)
}

func currentApp(v datamodel.Value) (*ApplicationEP, error) {
	a, ok, err := CurrentAppFromValue(v)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}
