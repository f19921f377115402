package descriptor

import (
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Handler publishes the description of a content app endpoint.
type Handler struct {
	app *contentapp.App
}

// Install hosts the cluster on app. Install it after the app's other
// clusters, or call Refresh when the set changes.
func Install(app *contentapp.App) (*Handler, error) {
	app.AddCluster(ClusterID)

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(0))
	store.Set(ClusterID, AttrDeviceTypeList, DeviceTypeListValue([]DeviceType{
		{DeviceType: datamodel.DeviceTypeContentApp, Revision: ContentAppRevision},
	}))
	store.Set(ClusterID, AttrServerList, ClusterListValue(app.Clusters()))
	store.Set(ClusterID, AttrClientList, datamodel.List())
	store.Set(ClusterID, AttrPartsList, datamodel.List())

	return &Handler{app: app}, nil
}

// Refresh republishes ServerList from the app's current clusters.
func (h *Handler) Refresh() error {
	return h.app.Notifier().SetAndReport(ClusterID, AttrServerList, ClusterListValue(h.app.Clusters()))
}
