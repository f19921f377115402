package mediaplayback

import (
	"context"
	"sync"
	"time"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// MaxSpeed bounds the trick-play speed reached by repeated Rewind and
// FastForward commands.
const MaxSpeed = 16.0

// Config configures the content-side handler.
type Config struct {
	// Duration of the current media. Zero or negative means unknown.
	Duration time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Handler is a simulated media player that serves the cluster on a
// content app. Every change is written to the app's attribute store and
// reported through its notifier.
type Handler struct {
	app *contentapp.App
	now func() time.Time

	mu        sync.Mutex
	state     PlaybackState
	speed     float64
	position  time.Duration // at sampledAt
	sampledAt time.Time
	duration  time.Duration // negative when unknown
}

// Install registers the handler on app and seeds the cluster attributes.
func Install(app *contentapp.App, cfg Config) (*Handler, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &Handler{
		app:      app,
		now:      cfg.Now,
		state:    PlaybackStateNotPlaying,
		duration: -1,
	}
	if cfg.Duration > 0 {
		h.duration = cfg.Duration
	}
	h.sampledAt = h.now()

	r := clusters.NewRouter().
		Handle(CmdPlay, h.play).
		Handle(CmdPause, h.pause).
		Handle(CmdStop, h.stop).
		Handle(CmdStartOver, h.restart).
		Handle(CmdPrevious, h.restart).
		Handle(CmdNext, h.restart).
		Handle(CmdRewind, h.rewind).
		Handle(CmdFastForward, h.fastForward).
		Handle(CmdSkipForward, h.skipForward).
		Handle(CmdSkipBackward, h.skipBackward).
		Handle(CmdSeek, h.seek).
		Generates(CmdPlaybackResponse)
	if err := app.RegisterHandler(ClusterID, r); err != nil {
		return nil, err
	}

	store := app.Attributes()
	store.Set(ClusterID, datamodel.GlobalAttrClusterRevision, datamodel.Uint(uint64(ClusterRevision)))
	store.Set(ClusterID, datamodel.GlobalAttrFeatureMap, datamodel.Uint(0))
	store.Set(ClusterID, AttrCurrentState, h.state.Value())
	store.Set(ClusterID, AttrPlaybackSpeed, datamodel.Float(0))
	store.Set(ClusterID, AttrDuration, DurationValue(h.duration))
	store.Set(ClusterID, AttrSampledPosition, h.sampleLocked().Value())
	store.Set(ClusterID, AttrSeekRangeStart, datamodel.Uint(0))
	store.Set(ClusterID, AttrSeekRangeEnd, DurationValue(h.duration))
	return h, nil
}

// State returns the playback state.
func (h *Handler) State() PlaybackState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Speed returns the playback speed.
func (h *Handler) Speed() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.speed
}

// Position returns the current playback position.
func (h *Handler) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

// SetState changes the playback state as if the user did so on the TV.
func (h *Handler) SetState(s PlaybackState) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	speed := h.speed
	switch s {
	case PlaybackStatePlaying:
		if speed == 0 {
			speed = 1
		}
	default:
		speed = 0
	}
	return h.applyLocked(s, speed, h.positionLocked())
}

// SetSpeed changes the playback speed.
func (h *Handler) SetSpeed(speed float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applyLocked(h.state, speed, h.positionLocked())
}

// SetPosition moves the playback position.
func (h *Handler) SetPosition(pos time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applyLocked(h.state, h.speed, pos)
}

// SetDuration changes the media duration. Zero or negative means unknown.
func (h *Handler) SetDuration(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d <= 0 {
		d = -1
	}
	pos := h.positionLocked()
	h.duration = d
	n := h.app.Notifier()
	if err := n.SetAndReport(ClusterID, AttrDuration, DurationValue(d)); err != nil {
		return err
	}
	if err := n.SetAndReport(ClusterID, AttrSeekRangeEnd, DurationValue(d)); err != nil {
		return err
	}
	return h.applyLocked(h.state, h.speed, pos)
}

func (h *Handler) positionLocked() time.Duration {
	pos := h.position
	if h.state == PlaybackStatePlaying && h.speed != 0 {
		pos += time.Duration(float64(h.now().Sub(h.sampledAt)) * h.speed)
	}
	return h.clampLocked(pos)
}

func (h *Handler) clampLocked(pos time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if h.duration >= 0 && pos > h.duration {
		return h.duration
	}
	return pos
}

func (h *Handler) sampleLocked() PlaybackPosition {
	pos := h.position
	return PlaybackPosition{UpdatedAt: h.sampledAt, Position: &pos}
}

// applyLocked records the new playback state and reports what changed.
func (h *Handler) applyLocked(state PlaybackState, speed float64, pos time.Duration) error {
	n := h.app.Notifier()

	if state != h.state {
		if err := n.SetAndReport(ClusterID, AttrCurrentState, state.Value()); err != nil {
			return err
		}
	}
	if speed != h.speed {
		if err := n.SetAndReport(ClusterID, AttrPlaybackSpeed, datamodel.Float(speed)); err != nil {
			return err
		}
	}

	h.state = state
	h.speed = speed
	h.position = h.clampLocked(pos)
	h.sampledAt = h.now()
	return n.SetAndReport(ClusterID, AttrSampledPosition, h.sampleLocked().Value())
}

// respond finishes a command with a cluster status.
func respond(status Status) (contentapp.CommandResponse, error) {
	return clusters.Respond(PlaybackResponse{Status: status}.Value())
}

// transition applies a state change and answers Success.
func (h *Handler) transition(state PlaybackState, speed float64, pos time.Duration) (contentapp.CommandResponse, error) {
	if err := h.applyLocked(state, speed, pos); err != nil {
		return clusters.Reject(datamodel.StatusFailure, err)
	}
	return respond(StatusSuccess)
}

func (h *Handler) play(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transition(PlaybackStatePlaying, 1, h.positionLocked())
}

func (h *Handler) pause(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == PlaybackStateNotPlaying {
		return respond(StatusInvalidStateForCommand)
	}
	return h.transition(PlaybackStatePaused, 0, h.positionLocked())
}

func (h *Handler) stop(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transition(PlaybackStateNotPlaying, 0, 0)
}

// restart serves StartOver, Previous and Next. The simulated player has a
// single media item, so all of them play it from the beginning.
func (h *Handler) restart(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transition(PlaybackStatePlaying, 1, 0)
}

func (h *Handler) rewind(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == PlaybackStateNotPlaying {
		return respond(StatusInvalidStateForCommand)
	}

	speed := -2.0
	if h.state == PlaybackStatePlaying && h.speed < 0 {
		speed = h.speed * 2
	}
	if speed < -MaxSpeed {
		return respond(StatusSpeedOutOfRange)
	}
	return h.transition(PlaybackStatePlaying, speed, h.positionLocked())
}

func (h *Handler) fastForward(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == PlaybackStateNotPlaying {
		return respond(StatusInvalidStateForCommand)
	}

	speed := 2.0
	if h.state == PlaybackStatePlaying && h.speed > 1 {
		speed = h.speed * 2
	}
	if speed > MaxSpeed {
		return respond(StatusSpeedOutOfRange)
	}
	return h.transition(PlaybackStatePlaying, speed, h.positionLocked())
}

func (h *Handler) skip(req contentapp.CommandRequest, sign time.Duration) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	delta := time.Duration(d.Uint(0)) * time.Millisecond
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == PlaybackStateNotPlaying {
		return respond(StatusNotActive)
	}
	return h.transition(h.state, h.speed, h.positionLocked()+sign*delta)
}

func (h *Handler) skipForward(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	return h.skip(req, 1)
}

func (h *Handler) skipBackward(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	return h.skip(req, -1)
}

func (h *Handler) seek(ctx context.Context, req contentapp.CommandRequest) (contentapp.CommandResponse, error) {
	d := clusters.NewRequestDecoder(req.Fields)
	pos := time.Duration(d.Uint(0)) * time.Millisecond
	if err := d.Err(); err != nil {
		return clusters.InvalidCommand(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == PlaybackStateNotPlaying {
		return respond(StatusNotActive)
	}
	if h.duration >= 0 && pos > h.duration {
		return respond(StatusSeekOutOfRange)
	}
	return h.transition(h.state, h.speed, pos)
}
