package targetnavigator

import (
	"context"
	"sync"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Handler serves the cluster on a content app.
type Handler struct {
	app *contentapp.App

	mu      sync.Mutex
	targets []TargetInfo
	current *uint8
}

// Install registers the handler on app with an initial target list.
func Install(app *contentapp.App, targets []TargetInfo) (*Handler, error) {
	h := &Handler{app: app, targets: append([]TargetInfo(nil), targets...)}

	r := clusters.NewRouter().
		Handle(CmdNavigateTarget, h.navigate).
		Generates(CmdNavigateTargetResponse)
	if err := app.RegisterHandler(ClusterID, r); err != nil {
		return nil, err
	}

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(0))
	store.Set(ClusterID, AttrTargetList, TargetListValue(h.targets))
	store.Set(ClusterID, AttrCurrentTarget, datamodel.Null())
	return h, nil
}

// Targets returns the target list.
func (h *Handler) Targets() []TargetInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TargetInfo(nil), h.targets...)
}

// Current returns the current target.
func (h *Handler) Current() (uint8, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return 0, false
	}
	return *h.current, true
}

// SetTargets replaces the target list. A current target that is no longer
// listed is cleared.
func (h *Handler) SetTargets(targets []TargetInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.targets = append([]TargetInfo(nil), targets...)
	n := h.app.Notifier()
	if err := n.SetAndReport(ClusterID, AttrTargetList, TargetListValue(h.targets)); err != nil {
		return err
	}
	if h.current != nil && !h.hasLocked(*h.current) {
		h.current = nil
		return n.SetAndReport(ClusterID, AttrCurrentTarget, datamodel.Null())
	}
	return nil
}

func (h *Handler) hasLocked(id uint8) bool {
	for _, t := range h.targets {
		if t.Identifier == id {
			return true
		}
	}
	return false
}

func (h *Handler) navigate(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	target := d.Uint(0)
	data := d.OptString(1)
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if target > 0xFF || !h.hasLocked(uint8(target)) {
		return clusters.Respond(NavigateTargetResponse{Status: StatusTargetNotFound}.Value())
	}

	id := uint8(target)
	h.current = &id
	if err := h.app.Notifier().SetAndReport(ClusterID, AttrCurrentTarget, datamodel.Uint(target)); err != nil {
		return clusters.Reject(datamodel.StatusFailure, err)
	}
	return clusters.Respond(NavigateTargetResponse{Status: StatusSuccess, Data: data}.Value())
}
