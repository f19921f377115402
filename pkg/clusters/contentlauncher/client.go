package contentlauncher

import (
	"context"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Client launches content on a casting player endpoint.
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

// LaunchContent searches for content and starts it.
func (c *Client) LaunchContent(ctx context.Context, req LaunchContentRequest) *async.Future[LauncherResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, CmdLaunchContent, req.Value(), decodeLauncherResponse)
}

// LaunchURL starts playback of contentURL. displayString may be empty.
func (c *Client) LaunchURL(ctx context.Context, contentURL, displayString string) *async.Future[LauncherResponse] {
	req := LaunchURLRequest{ContentURL: contentURL, DisplayString: displayString}
	return clusters.InvokeDecode(ctx, c.Binding, CmdLaunchURL, req.Value(), decodeLauncherResponse)
}

// AcceptHeader reads the accepted content types.
func (c *Client) AcceptHeader(ctx context.Context) *async.Future[[]string] {
	return clusters.ReadDecode(ctx, c.Binding, AttrAcceptHeader, AcceptHeaderFromValue)
}

// SupportedStreamingProtocols reads the streaming protocol bitmap.
func (c *Client) SupportedStreamingProtocols(ctx context.Context) *async.Future[uint32] {
	return clusters.ReadDecode(ctx, c.Binding, AttrSupportedStreamingProtocols, func(v datamodel.Value) (uint32, error) {
		n, err := v.AsUint()
		return uint32(n), err
	})
}
