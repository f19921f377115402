package accountlogin

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// ErrWrongPIN is returned to the caller log when Login uses a PIN other
// than the current one.
var ErrWrongPIN = errors.New("accountlogin: setup PIN mismatch")

// Handler serves the cluster on a content app.
type Handler struct {
	app *contentapp.App

	mu       sync.Mutex
	pin      string
	loggedIn bool
}

// Install registers the handler on app. A non-empty pin is also published
// as the canned GetSetupPIN response.
func Install(app *contentapp.App, pin string) (*Handler, error) {
	h := &Handler{app: app}

	r := clusters.NewRouter().
		Handle(CmdGetSetupPIN, h.getSetupPIN).
		Handle(CmdLogin, h.login).
		Handle(CmdLogout, h.logout).
		Generates(CmdGetSetupPINResponse)
	if err := app.RegisterHandler(ClusterID, r); err != nil {
		return nil, err
	}

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(0))

	if pin != "" {
		h.SetSetupPIN(pin)
	}
	return h, nil
}

// SetSetupPIN changes the PIN and publishes it in the app's command
// response store, where GetSetupPIN is answered from.
func (h *Handler) SetSetupPIN(pin string) {
	h.mu.Lock()
	h.pin = pin
	h.mu.Unlock()

	h.app.Responses().Set(ClusterID, CmdGetSetupPIN, GetSetupPINResponse{SetupPIN: pin}.Payload())
}

// SetupPIN returns the current PIN.
func (h *Handler) SetupPIN() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pin
}

// LoggedIn reports whether a Login succeeded since the last Logout.
func (h *Handler) LoggedIn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loggedIn
}

// getSetupPIN runs only when no canned response is registered.
func (h *Handler) getSetupPIN(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	d.String(0)
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}
	return clusters.Respond(GetSetupPINResponse{SetupPIN: h.SetupPIN()}.Value())
}

func (h *Handler) login(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	d.String(0)
	pin := d.String(1)
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pin == "" || pin != h.pin {
		return clusters.Reject(datamodel.StatusUnsupportedAccess, ErrWrongPIN)
	}
	h.loggedIn = true
	return clusters.Respond(datamodel.Absent())
}

func (h *Handler) logout(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loggedIn = false
	return clusters.Respond(datamodel.Absent())
}
