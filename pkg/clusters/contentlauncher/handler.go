package contentlauncher

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// ErrEmptySearch is returned for a LaunchContent without search terms.
var ErrEmptySearch = errors.New("contentlauncher: empty search")

// Content is an item the launcher can find by search.
type Content struct {
	Title string
	Terms []Parameter
}

func (c Content) matches(p Parameter) bool {
	if p.Type == ParameterVideo && strings.EqualFold(p.Value, c.Title) {
		return true
	}
	for _, t := range c.Terms {
		if t.Type == p.Type && strings.EqualFold(t.Value, p.Value) {
			return true
		}
	}
	return false
}

// Launch records a successful launch.
type Launch struct {
	URL      string // set for LaunchURL
	Title    string // set for LaunchContent
	AutoPlay bool
	Data     string
}

// Config configures the content-side handler.
type Config struct {
	// AcceptHeaders lists the content types the player accepts.
	AcceptHeaders []string

	// Protocols is the SupportedStreamingProtocols bitmap.
	// Defaults to ProtocolDASH | ProtocolHLS.
	Protocols uint32

	// Catalog is searched by LaunchContent.
	Catalog []Content

	// OnLaunch, if set, is called after every successful launch.
	OnLaunch func(Launch)
}

// Handler serves the cluster on a content app.
type Handler struct {
	app      *contentapp.App
	catalog  []Content
	onLaunch func(Launch)

	mu   sync.Mutex
	last *Launch
}

// Install registers the handler on app.
func Install(app *contentapp.App, cfg Config) (*Handler, error) {
	if cfg.Protocols == 0 {
		cfg.Protocols = ProtocolDASH | ProtocolHLS
	}
	h := &Handler{
		app:      app,
		catalog:  append([]Content(nil), cfg.Catalog...),
		onLaunch: cfg.OnLaunch,
	}

	r := clusters.NewRouter().
		Handle(CmdLaunchContent, h.launchContent).
		Handle(CmdLaunchURL, h.launchURL).
		Generates(CmdLauncherResponse)
	if err := app.RegisterHandler(ClusterID, r); err != nil {
		return nil, err
	}

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(uint64(FeatureContentSearch|FeatureURLPlayback)))
	store.Set(ClusterID, AttrAcceptHeader, acceptHeaderValue(cfg.AcceptHeaders))
	store.Set(ClusterID, AttrSupportedStreamingProtocols, datamodel.Uint(uint64(cfg.Protocols)))
	return h, nil
}

// Last returns the most recent successful launch.
func (h *Handler) Last() (Launch, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Launch{}, false
	}
	return *h.last, true
}

func (h *Handler) record(l Launch) {
	h.mu.Lock()
	h.last = &l
	h.mu.Unlock()
	if h.onLaunch != nil {
		h.onLaunch(l)
	}
}

func (h *Handler) find(s Search) (Content, bool) {
next:
	for _, c := range h.catalog {
		for _, p := range s.Parameters {
			if !c.matches(p) {
				continue next
			}
		}
		return c, true
	}
	return Content{}, false
}

func (h *Handler) launchContent(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	r, err := LaunchContentRequestFromValue(req.Fields)
	if err != nil {
		return clusters.InvalidCommand(err)
	}
	if len(r.Search.Parameters) == 0 {
		return clusters.InvalidCommand(ErrEmptySearch)
	}

	c, ok := h.find(r.Search)
	if !ok {
		return clusters.Respond(LauncherResponse{Status: StatusURLNotAvailable}.Value())
	}
	h.record(Launch{Title: c.Title, AutoPlay: r.AutoPlay, Data: r.Data})
	return clusters.Respond(LauncherResponse{Status: StatusSuccess, Data: r.Data}.Value())
}

func (h *Handler) launchURL(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	raw := d.String(0)
	display := d.OptString(1)
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return clusters.Respond(LauncherResponse{Status: StatusURLNotAvailable}.Value())
	}
	h.record(Launch{URL: u.String(), AutoPlay: true, Data: display})
	return clusters.Respond(LauncherResponse{Status: StatusSuccess}.Value())
}
