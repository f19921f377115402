package clusters

import (
	"context"
	"sort"

	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Router dispatches the commands of one cluster to per-command functions.
// It implements contentapp.CommandHandler and contentapp.CommandLister.
type Router struct {
	handlers  map[datamodel.CommandID]contentapp.CommandHandlerFunc
	generated []datamodel.CommandID
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[datamodel.CommandID]contentapp.CommandHandlerFunc)}
}

// Handle routes command to fn.
func (r *Router) Handle(command datamodel.CommandID, fn contentapp.CommandHandlerFunc) *Router {
	r.handlers[command] = fn
	return r
}

// Generates records response commands for GeneratedCommandList.
func (r *Router) Generates(commands ...datamodel.CommandID) *Router {
	r.generated = append(r.generated, commands...)
	return r
}

// HandleCommand implements contentapp.CommandHandler.
func (r *Router) HandleCommand(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	fn, ok := r.handlers[req.Path.Command]
	if !ok {
		return contentapp.CommandResponse{Status: datamodel.StatusUnsupportedCommand}, contentapp.ErrUnsupportedCommand
	}
	return fn(ctx, req)
}

// AcceptedCommands implements contentapp.CommandLister.
func (r *Router) AcceptedCommands() []datamodel.CommandID {
	ids := make([]datamodel.CommandID, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GeneratedCommands implements contentapp.CommandLister.
func (r *Router) GeneratedCommands() []datamodel.CommandID {
	return append([]datamodel.CommandID(nil), r.generated...)
}

var (
	_ contentapp.CommandHandler = (*Router)(nil)
	_ contentapp.CommandLister  = (*Router)(nil)
)

// Respond returns a successful response carrying fields.
func Respond(fields datamodel.Value) (contentapp.CommandResponse, error) {
	return contentapp.CommandResponse{Status: datamodel.StatusSuccess, Fields: fields}, nil
}

// Reject returns a failed response with status. err is reported to the
// caller alongside.
func Reject(status datamodel.Status, err error) (contentapp.CommandResponse, error) {
	return contentapp.CommandResponse{Status: status}, err
}

// InvalidCommand rejects a request whose fields did not decode.
func InvalidCommand(err error) (contentapp.CommandResponse, error) {
	return Reject(datamodel.StatusInvalidCommand, err)
}
