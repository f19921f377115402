package applicationlauncher

import (
	"context"
	"sync"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/clusters/applicationbasic"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Config configures the content-side handler.
type Config struct {
	// CatalogList lists the catalog vendor IDs the launcher accepts.
	// Defaults to the catalog vendor of the hosting app.
	CatalogList []uint16

	// Apps are the launchable apps. The hosting app is always launchable.
	Apps []ApplicationEP
}

// Handler serves the cluster on a content app and tracks which app is in
// the foreground.
type Handler struct {
	app  *contentapp.App
	self ApplicationEP

	mu      sync.Mutex
	catalog []uint16
	apps    []ApplicationEP
	current *ApplicationEP
}

// Install registers the handler on app.
func Install(app *contentapp.App, cfg Config) (*Handler, error) {
	c := app.Config()
	h := &Handler{
		app: app,
		self: ApplicationEP{
			Application: Application{CatalogVendorID: c.CatalogVendorID, ApplicationID: c.ApplicationID},
			Endpoint:    app.Endpoint(),
		},
		catalog: append([]uint16(nil), cfg.CatalogList...),
	}
	if len(h.catalog) == 0 {
		h.catalog = []uint16{c.CatalogVendorID}
	}
	h.apps = append([]ApplicationEP{h.self}, cfg.Apps...)

	r := clusters.NewRouter().
		Handle(CmdLaunchApp, h.launch).
		Handle(CmdStopApp, h.stop).
		Handle(CmdHideApp, h.hide).
		Generates(CmdLauncherResponse)
	if err := app.RegisterHandler(ClusterID, r); err != nil {
		return nil, err
	}

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(uint64(FeatureApplicationPlatform)))
	store.Set(ClusterID, AttrCatalogList, CatalogListValue(h.catalog))
	store.Set(ClusterID, AttrCurrentApp, datamodel.Null())
	return h, nil
}

// Current returns the app in the foreground.
func (h *Handler) Current() (ApplicationEP, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return ApplicationEP{}, false
	}
	return *h.current, true
}

func (h *Handler) decodeApp(fields datamodel.Value) (ApplicationEP, bool, error) {
	d := clusters.NewRequestDecoder(fields)
	v, ok := d.OptStruct(0)
	if err := d.Err(); err != nil {
		return ApplicationEP{}, false, err
	}
	if !ok {
		return h.self, true, nil
	}
	a, err := applicationbasic.ApplicationFromValue(v)
	if err != nil {
		return ApplicationEP{}, false, err
	}
	for _, e := range h.apps {
		if e.Application == a {
			return e, true, nil
		}
	}
	return ApplicationEP{Application: a}, false, nil
}

func (h *Handler) catalogAllowsLocked(a Application) bool {
	for _, id := range h.catalog {
		if id == a.CatalogVendorID {
			return true
		}
	}
	return false
}

func (h *Handler) respond(status Status, data []byte) (contentapp.CommandResponse, error) {
	return clusters.Respond(LauncherResponse{Status: status, Data: data}.Value())
}

func (h *Handler) setCurrentLocked(e *ApplicationEP) error {
	h.current = e
	v := datamodel.Null()
	if e != nil {
		v = e.Value()
	}
	return h.app.Notifier().SetAndReport(ClusterID, AttrCurrentApp, v)
}

func (h *Handler) launch(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	e, known, err := h.decodeApp(req.Fields)
	if err != nil {
		return clusters.InvalidCommand(err)
	}
	data := clusters.NewRequestDecoder(req.Fields).OptBytes(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !known || !h.catalogAllowsLocked(e.Application) {
		return h.respond(StatusAppNotAvailable, nil)
	}
	if err := h.setCurrentLocked(&e); err != nil {
		return clusters.Reject(datamodel.StatusFailure, err)
	}
	return h.respond(StatusSuccess, data)
}

// stop and hide both take the app out of the foreground. Only the current
// app is affected.
func (h *Handler) stop(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	return h.background(req)
}

func (h *Handler) hide(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	return h.background(req)
}

func (h *Handler) background(req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	e, known, err := h.decodeApp(req.Fields)
	if err != nil {
		return clusters.InvalidCommand(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !known {
		return h.respond(StatusAppNotAvailable, nil)
	}
	if h.current != nil && h.current.Application == e.Application {
		if err := h.setCurrentLocked(nil); err != nil {
			return clusters.Reject(datamodel.StatusFailure, err)
		}
	}
	return h.respond(StatusSuccess, nil)
}
