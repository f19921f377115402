package targetnavigator

import (
	"context"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
)

// Client navigates a content app on a casting player endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

// NavigateTarget jumps to the target with the given identifier.
func (c *Client) NavigateTarget(ctx context.Context, req NavigateTargetRequest) *async.Future[NavigateTargetResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, CmdNavigateTarget, req.Value(), func(r casting.CommandResult) (NavigateTargetResponse, error) {
		return NavigateTargetResponseFromValue(r.Fields)
	})
}

// TargetList reads the navigation targets.
func (c *Client) TargetList(ctx context.Context) *async.Future[[]TargetInfo] {
	return clusters.ReadDecode(ctx, c.Binding, AttrTargetList, TargetListFromValue)
}

// SubscribeTargetList reports target list changes to cb.
func (c *Client) SubscribeTargetList(ctx context.Context, minInterval, maxInterval time.Duration, cb async.Callback[[]TargetInfo]) (*casting.Subscription, error) {
	return clusters.SubscribeDecode(ctx, c.Binding, AttrTargetList, minInterval, maxInterval, cb, TargetListFromValue)
}
