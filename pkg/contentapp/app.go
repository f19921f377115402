// Package contentapp implements the content-app side of a casting session:
// the app hosted on a TV endpoint that answers cluster commands and keeps
// attribute values that casting clients read and subscribe to.
//
// An App owns its AttributeStore, CommandResponseStore, Notifier and a single
// worker goroutine. Apps are plain values built with New; nothing in this
// package is global.
//
// Usage:
//
//	app, err := contentapp.New(contentapp.Config{Endpoint: 4})
//	mediaplayback.Install(app)
//	app.Notifier().SetAndReport(mediaplayback.ClusterID,
//	    mediaplayback.AttrCurrentState, mediaplayback.PlaybackStatePlaying.Value())
package contentapp

import (
	"context"
	"sort"
	"sync"

	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/pion/logging"
)

// CommandRequest is an inbound cluster command.
type CommandRequest struct {
	Path   datamodel.CommandPath
	Fields datamodel.Value
}

// CommandResponse is the reply to a CommandRequest.
//
// A canned response from the CommandResponseStore is returned in Payload
// as registered. Handlers return typed response fields in Fields.
type CommandResponse struct {
	Status  datamodel.Status
	Fields  datamodel.Value
	Payload []byte
}

// CommandHandler executes the commands of one cluster.
type CommandHandler interface {
	HandleCommand(ctx context.Context, req CommandRequest) (CommandResponse, error)
}

// CommandLister is implemented by handlers that can list the commands they
// accept and generate.
type CommandLister interface {
	AcceptedCommands() []datamodel.CommandID
	GeneratedCommands() []datamodel.CommandID
}

// CommandHandlerFunc adapts a function to the CommandHandler interface.
type CommandHandlerFunc func(ctx context.Context, req CommandRequest) (CommandResponse, error)

// HandleCommand calls f.
func (f CommandHandlerFunc) HandleCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return f(ctx, req)
}

// App is a content app hosted on one endpoint.
type App struct {
	config Config

	attributes *AttributeStore
	responses  *CommandResponseStore
	notifier   *Notifier
	queue      *worker.Queue
	log        logging.LeveledLogger

	mu       sync.RWMutex
	handlers map[datamodel.ClusterID]CommandHandler
	clusters map[datamodel.ClusterID]struct{}
	closed   bool
}

// New creates a content app from config.
func New(config Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	a := &App{
		config:     config,
		attributes: NewAttributeStore(),
		responses:  NewCommandResponseStore(),
		handlers:   make(map[datamodel.ClusterID]CommandHandler),
		clusters:   make(map[datamodel.ClusterID]struct{}),
	}

	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("contentapp")
	}

	a.queue = worker.New(worker.Config{
		Name:          "contentapp-worker",
		LoggerFactory: config.LoggerFactory,
	})
	a.notifier = newNotifier(config.Endpoint, a.attributes, a.queue, a.log)

	for _, c := range config.Clusters {
		a.clusters[c] = struct{}{}
	}

	if a.log != nil {
		a.log.Infof("content app %q on endpoint %d", config.ApplicationName, config.Endpoint)
	}

	return a, nil
}

// Endpoint returns the endpoint hosting the app.
func (a *App) Endpoint() datamodel.EndpointID {
	return a.config.Endpoint
}

// Config returns a copy of the app configuration.
func (a *App) Config() Config {
	c := a.config
	c.Clusters = append([]datamodel.ClusterID(nil), a.config.Clusters...)
	return c
}

// Attributes returns the app's attribute store.
func (a *App) Attributes() *AttributeStore {
	return a.attributes
}

// Responses returns the app's canned command response store.
func (a *App) Responses() *CommandResponseStore {
	return a.responses
}

// Notifier returns the app's attribute change notifier.
func (a *App) Notifier() *Notifier {
	return a.notifier
}

// Worker returns the queue that serializes the app's outbound work.
func (a *App) Worker() *worker.Queue {
	return a.queue
}

// RegisterHandler installs the command handler for a cluster. The cluster is
// hosted from then on.
func (a *App) RegisterHandler(cluster datamodel.ClusterID, h CommandHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if _, ok := a.handlers[cluster]; ok {
		return ErrHandlerExists
	}
	a.handlers[cluster] = h
	a.clusters[cluster] = struct{}{}
	return nil
}

// AddCluster marks a cluster as hosted without a command handler. Useful
// for attribute-only clusters such as ApplicationBasic.
func (a *App) AddCluster(cluster datamodel.ClusterID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clusters[cluster] = struct{}{}
}

// HasCluster reports whether the app hosts cluster.
func (a *App) HasCluster(cluster datamodel.ClusterID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.clusters[cluster]
	return ok
}

// Clusters returns the hosted clusters, sorted.
func (a *App) Clusters() []datamodel.ClusterID {
	a.mu.RLock()
	ids := make([]datamodel.ClusterID, 0, len(a.clusters))
	for id := range a.clusters {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HandleCommand executes an inbound command. A response registered in the
// CommandResponseStore takes precedence over the cluster's handler.
func (a *App) HandleCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	a.mu.RLock()
	closed := a.closed
	_, hosted := a.clusters[req.Path.Cluster]
	h := a.handlers[req.Path.Cluster]
	a.mu.RUnlock()

	if closed {
		return CommandResponse{}, ErrClosed
	}
	if !hosted {
		return CommandResponse{Status: datamodel.StatusUnsupportedCluster}, ErrUnsupportedCluster
	}

	if payload, ok := a.responses.Get(req.Path.Cluster, req.Path.Command); ok {
		if a.log != nil {
			a.log.Debugf("command %s answered from response store", req.Path)
		}
		return CommandResponse{Status: datamodel.StatusSuccess, Payload: payload}, nil
	}

	if h == nil {
		return CommandResponse{Status: datamodel.StatusUnsupportedCommand}, ErrUnsupportedCommand
	}

	if a.log != nil {
		a.log.Debugf("command %s fields=%s", req.Path, req.Fields)
	}
	return h.HandleCommand(ctx, req)
}

// ReadAttribute returns the current value of an attribute. Global
// attributes that were never set are derived from the store and handlers.
func (a *App) ReadAttribute(cluster datamodel.ClusterID, attribute datamodel.AttributeID) (datamodel.Value, error) {
	a.mu.RLock()
	_, hosted := a.clusters[cluster]
	h := a.handlers[cluster]
	a.mu.RUnlock()

	if !hosted {
		return datamodel.Value{}, ErrUnsupportedCluster
	}

	if v, ok := a.attributes.Get(cluster, attribute); ok {
		return v, nil
	}

	switch attribute {
	case datamodel.GlobalAttrClusterRevision:
		return datamodel.Uint(1), nil
	case datamodel.GlobalAttrFeatureMap:
		return datamodel.Uint(0), nil
	case datamodel.GlobalAttrAttributeList:
		ids := a.attributes.ClusterAttributes(cluster)
		items := make([]datamodel.Value, 0, len(ids)+len(datamodel.GlobalAttributes))
		for _, id := range ids {
			if !datamodel.IsGlobalAttribute(id) {
				items = append(items, datamodel.Uint(uint64(id)))
			}
		}
		for _, id := range datamodel.GlobalAttributes {
			items = append(items, datamodel.Uint(uint64(id)))
		}
		return datamodel.List(items...), nil
	case datamodel.GlobalAttrAcceptedCommandList, datamodel.GlobalAttrGeneratedCommandList:
		var ids []datamodel.CommandID
		if l, ok := h.(CommandLister); ok {
			if attribute == datamodel.GlobalAttrAcceptedCommandList {
				ids = l.AcceptedCommands()
			} else {
				ids = l.GeneratedCommands()
			}
		}
		items := make([]datamodel.Value, len(ids))
		for i, id := range ids {
			items[i] = datamodel.Uint(uint64(id))
		}
		return datamodel.List(items...), nil
	}

	return datamodel.Value{}, ErrNotConfigured
}

// Close stops the app's worker after pending reports have been delivered.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.closed = true
	a.mu.Unlock()

	if a.log != nil {
		a.log.Infof("closing content app on endpoint %d", a.config.Endpoint)
	}
	return a.queue.Close()
}
