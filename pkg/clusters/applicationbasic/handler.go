package applicationbasic

import (
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Handler publishes the cluster attributes of a content app.
type Handler struct {
	app *contentapp.App
}

// Install hosts the cluster on app and fills its attributes from the app
// configuration. The app starts out ActiveVisibleFocus.
func Install(app *contentapp.App, version string) (*Handler, error) {
	app.AddCluster(ClusterID)

	cfg := app.Config()
	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(0))
	store.Set(ClusterID, AttrVendorName, datamodel.Text(cfg.VendorName))
	store.Set(ClusterID, AttrVendorID, datamodel.Uint(uint64(cfg.VendorID)))
	store.Set(ClusterID, AttrApplicationName, datamodel.Text(cfg.ApplicationName))
	store.Set(ClusterID, AttrProductID, datamodel.Uint(uint64(cfg.ProductID)))
	store.Set(ClusterID, AttrApplication, Application{
		CatalogVendorID: cfg.CatalogVendorID,
		ApplicationID:   cfg.ApplicationID,
	}.Value())
	store.Set(ClusterID, AttrStatus, StatusActiveVisibleFocus.Value())
	store.Set(ClusterID, AttrApplicationVersion, datamodel.Text(version))
	store.Set(ClusterID, AttrAllowedVendorList, datamodel.List(datamodel.Uint(uint64(cfg.VendorID))))

	return &Handler{app: app}, nil
}

// SetStatus changes the run status and reports it.
func (h *Handler) SetStatus(s ApplicationStatus) error {
	return h.app.Notifier().SetAndReport(ClusterID, AttrStatus, s.Value())
}

// Status returns the current run status.
func (h *Handler) Status() ApplicationStatus {
	s, _ := ApplicationStatusFromValue(h.app.Attributes().Value(ClusterID, AttrStatus))
	return s
}
