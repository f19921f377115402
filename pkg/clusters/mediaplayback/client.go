package mediaplayback

import (
	"context"
	"time"

	"github.com/backkem/matter-tv/pkg/async"
	"github.com/backkem/matter-tv/pkg/casting"
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Client controls media playback on a casting player endpoint.
type Client struct {
	clusters.Binding
}

// NewClient binds a client to ep within session s.
func NewClient(s *casting.Session, ep *casting.Endpoint) *Client {
	return &Client{Binding: clusters.Bind(s, ep, ClusterID)}
}

func (c *Client) transport(ctx context.Context, cmd datamodel.CommandID, fields datamodel.Value) *async.Future[PlaybackResponse] {
	return clusters.InvokeDecode(ctx, c.Binding, cmd, fields, func(r casting.CommandResult) (PlaybackResponse, error) {
		return PlaybackResponseFromValue(r.Fields)
	})
}

// Play starts or resumes playback at normal speed.
func (c *Client) Play(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdPlay, datamodel.Struct(nil))
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdPause, datamodel.Struct(nil))
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdStop, datamodel.Struct(nil))
}

// StartOver plays the current media from the beginning.
func (c *Client) StartOver(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdStartOver, datamodel.Struct(nil))
}

// Previous moves to the previous media item.
func (c *Client) Previous(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdPrevious, datamodel.Struct(nil))
}

// Next moves to the next media item.
func (c *Client) Next(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdNext, datamodel.Struct(nil))
}

// Rewind starts or speeds up rewinding.
func (c *Client) Rewind(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdRewind, datamodel.Struct(nil))
}

// FastForward starts or speeds up fast forwarding.
func (c *Client) FastForward(ctx context.Context) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdFastForward, datamodel.Struct(nil))
}

// SkipForward moves the position forward by delta.
func (c *Client) SkipForward(ctx context.Context, delta time.Duration) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdSkipForward, clusters.Fields{0: datamodel.Uint(uint64(delta.Milliseconds()))}.Value())
}

// SkipBackward moves the position back by delta.
func (c *Client) SkipBackward(ctx context.Context, delta time.Duration) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdSkipBackward, clusters.Fields{0: datamodel.Uint(uint64(delta.Milliseconds()))}.Value())
}

// Seek moves to an absolute position.
func (c *Client) Seek(ctx context.Context, position time.Duration) *async.Future[PlaybackResponse] {
	return c.transport(ctx, CmdSeek, clusters.Fields{0: datamodel.Uint(uint64(position.Milliseconds()))}.Value())
}

// CurrentState reads the playback state.
func (c *Client) CurrentState(ctx context.Context) *async.Future[PlaybackState] {
	return clusters.ReadDecode(ctx, c.Binding, AttrCurrentState, PlaybackStateFromValue)
}

// Duration reads the media duration. An unknown duration reads as -1.
func (c *Client) Duration(ctx context.Context) *async.Future[time.Duration] {
	return clusters.ReadDecode(ctx, c.Binding, AttrDuration, DurationFromValue)
}

// SampledPosition reads the last sampled playback position.
func (c *Client) SampledPosition(ctx context.Context) *async.Future[PlaybackPosition] {
	return clusters.ReadDecode(ctx, c.Binding, AttrSampledPosition, PlaybackPositionFromValue)
}

// PlaybackSpeed reads the playback speed.
func (c *Client) PlaybackSpeed(ctx context.Context) *async.Future[float64] {
	return clusters.ReadDecode(ctx, c.Binding, AttrPlaybackSpeed, SpeedFromValue)
}

// SubscribeCurrentState reports every playback state change to cb.
func (c *Client) SubscribeCurrentState(ctx context.Context, minInterval, maxInterval time.Duration, cb async.Callback[PlaybackState]) (*casting.Subscription, error) {
	return clusters.SubscribeDecode(ctx, c.Binding, AttrCurrentState, minInterval, maxInterval, cb, PlaybackStateFromValue)
}

// SubscribeSampledPosition reports position samples to cb.
func (c *Client) SubscribeSampledPosition(ctx context.Context, minInterval, maxInterval time.Duration, cb async.Callback[PlaybackPosition]) (*casting.Subscription, error) {
	return clusters.SubscribeDecode(ctx, c.Binding, AttrSampledPosition, minInterval, maxInterval, cb, PlaybackPositionFromValue)
}
