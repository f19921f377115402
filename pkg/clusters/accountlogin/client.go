package accountlogin

import (
	"context"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
)

// Client logs in to a content app on a casting player endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

// GetSetupPIN asks the content app for the setup PIN of a temporary
// account.
func (c *Client) GetSetupPIN(ctx context.Context, tempAccountID string) *async.Future[string] {
	req := GetSetupPINRequest{TempAccountIdentifier: tempAccountID}
	return clusters.InvokeDecode(ctx, c.Binding, CmdGetSetupPIN, req.Value(), func(r casting.CommandResult) (string, error) {
		resp, err := ParseGetSetupPINResponse(r.Payload, r.Fields)
		return resp.SetupPIN, err
	})
}

// Login logs in with a PIN obtained from GetSetupPIN.
func (c *Client) Login(ctx context.Context, req LoginRequest) *async.Future[struct{}] {
	return clusters.InvokeStatus(ctx, c.Binding, CmdLogin, req.Value())
}

// Logout logs out of the content app.
func (c *Client) Logout(ctx context.Context, req LogoutRequest) *async.Future[struct{}] {
	return clusters.InvokeStatus(ctx, c.Binding, CmdLogout, req.Value())
}
