// Package accountlogin implements the Account Login Cluster (0x050E).
//
// A casting client asks the content app for a setup PIN, which the user
// enters on the phone to log in to the TV app. Players usually answer
// GetSetupPIN from a canned JSON payload, {"SetupPIN":"12345678"}, kept in
// the app's command response store; the typed response fields are accepted
// as well.
package accountlogin

import (
	"encoding/json"
	"fmt"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x050E
	ClusterRevision uint16              = 2
)

// Command IDs.
const (
	CmdGetSetupPIN         datamodel.CommandID = 0x00
	CmdGetSetupPINResponse datamodel.CommandID = 0x01
	CmdLogin               datamodel.CommandID = 0x02
	CmdLogout              datamodel.CommandID = 0x03
)

// GetSetupPINRequest is the GetSetupPIN command.
type GetSetupPINRequest struct {
	TempAccountIdentifier string
}

// Value returns the request fields.
func (r GetSetupPINRequest) Value() datamodel.Value {
	return clusters.Fields{0: datamodel.Text(r.TempAccountIdentifier)}.Value()
}

// GetSetupPINResponse answers GetSetupPIN. Its JSON form is the canned
// payload format.
type GetSetupPINResponse struct {
	SetupPIN string `json:"SetupPIN"`
}

// Value returns the response fields.
func (r GetSetupPINResponse) Value() datamodel.Value {
	return clusters.Fields{0: datamodel.Text(r.SetupPIN)}.Value()
}

// Payload returns the canned JSON form of the response.
func (r GetSetupPINResponse) Payload() []byte {
	data, _ := json.Marshal(r)
	return data
}

// ParseGetSetupPINResponse decodes a GetSetupPIN result from its canned
// payload or, when there is none, from its fields.
func ParseGetSetupPINResponse(payload []byte, fields datamodel.Value) (GetSetupPINResponse, error) {
	var r GetSetupPINResponse
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &r); err != nil {
			return GetSetupPINResponse{}, fmt.Errorf("%w: %v", clusters.ErrInvalidResponse, err)
		}
		return r, nil
	}

	d := clusters.NewResponseDecoder(fields)
	r.SetupPIN = d.String(0)
	return r, d.Err()
}

// LoginRequest is the Login command.
type LoginRequest struct {
	TempAccountIdentifier string
	SetupPIN              string
	Node                  uint64 // zero when not given
}

// Value returns the request fields.
func (r LoginRequest) Value() datamodel.Value {
	f := clusters.Fields{
		0: datamodel.Text(r.TempAccountIdentifier),
		1: datamodel.Text(r.SetupPIN),
	}
	if r.Node != 0 {
		f[2] = datamodel.Uint(r.Node)
	}
	return f.Value()
}

// LogoutRequest is the Logout command.
type LogoutRequest struct {
	Node uint64 // zero when not given
}

// Value returns the request fields.
func (r LogoutRequest) Value() datamodel.Value {
	f := clusters.Fields{}
	if r.Node != 0 {
		f[0] = datamodel.Uint(r.Node)
	}
	return f.Value()
}
