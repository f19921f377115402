// Package mediaplayback implements the Media Playback Cluster (0x0506).
//
// The cluster exposes the playback state of a content app and the
// transport commands a casting client uses to control it.
package mediaplayback

import (
	"strings"
	"time"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0506
	ClusterRevision uint16              = 2
)

// Attribute IDs.
const (
	AttrCurrentState    datamodel.AttributeID = 0x0000
	AttrStartTime       datamodel.AttributeID = 0x0001
	AttrDuration        datamodel.AttributeID = 0x0002
	AttrSampledPosition datamodel.AttributeID = 0x0003
	AttrPlaybackSpeed   datamodel.AttributeID = 0x0004
	AttrSeekRangeEnd    datamodel.AttributeID = 0x0005
	AttrSeekRangeStart  datamodel.AttributeID = 0x0006
)

// Command IDs.
const (
	CmdPlay             datamodel.CommandID = 0x00
	CmdPause            datamodel.CommandID = 0x01
	CmdStop             datamodel.CommandID = 0x02
	CmdStartOver        datamodel.CommandID = 0x03
	CmdPrevious         datamodel.CommandID = 0x04
	CmdNext             datamodel.CommandID = 0x05
	CmdRewind           datamodel.CommandID = 0x06
	CmdFastForward      datamodel.CommandID = 0x07
	CmdSkipForward      datamodel.CommandID = 0x08
	CmdSkipBackward     datamodel.CommandID = 0x09
	CmdPlaybackResponse datamodel.CommandID = 0x0A
	CmdSeek             datamodel.CommandID = 0x0B
)

// PlaybackState is the CurrentState attribute.
type PlaybackState uint8

const (
	PlaybackStatePlaying    PlaybackState = 0
	PlaybackStatePaused     PlaybackState = 1
	PlaybackStateNotPlaying PlaybackState = 2
	PlaybackStateBuffering  PlaybackState = 3
)

// String returns the name of the state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStatePlaying:
		return "Playing"
	case PlaybackStatePaused:
		return "Paused"
	case PlaybackStateNotPlaying:
		return "NotPlaying"
	case PlaybackStateBuffering:
		return "Buffering"
	default:
		return "Unknown"
	}
}

// Value returns the state as an attribute value.
func (s PlaybackState) Value() datamodel.Value {
	return datamodel.Uint(uint64(s))
}

// PlaybackStateFromValue converts a CurrentState value.
func PlaybackStateFromValue(v datamodel.Value) (PlaybackState, error) {
	n, err := v.AsUint()
	if err != nil {
		return 0, err
	}
	if n > uint64(PlaybackStateBuffering) {
		return 0, datamodel.ErrOutOfRange
	}
	return PlaybackState(n), nil
}

// ParsePlaybackState parses a state name as printed by String,
// case-insensitively.
func ParsePlaybackState(s string) (PlaybackState, bool) {
	for st := PlaybackStatePlaying; st <= PlaybackStateBuffering; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, true
		}
	}
	return 0, false
}

// Status is the status carried in a PlaybackResponse.
type Status uint8

const (
	StatusSuccess                Status = 0
	StatusInvalidStateForCommand Status = 1
	StatusNotAllowed             Status = 2
	StatusNotActive              Status = 3
	StatusSpeedOutOfRange        Status = 4
	StatusSeekOutOfRange         Status = 5
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusInvalidStateForCommand:
		return "InvalidStateForCommand"
	case StatusNotAllowed:
		return "NotAllowed"
	case StatusNotActive:
		return "NotActive"
	case StatusSpeedOutOfRange:
		return "SpeedOutOfRange"
	case StatusSeekOutOfRange:
		return "SeekOutOfRange"
	default:
		return "Unknown"
	}
}

// PlaybackPosition is the SampledPosition attribute. A nil Position means
// the position is unknown.
type PlaybackPosition struct {
	UpdatedAt time.Time
	Position  *time.Duration
}

// Value returns the position as a struct value.
func (p PlaybackPosition) Value() datamodel.Value {
	pos := datamodel.Null()
	if p.Position != nil {
		pos = datamodel.Uint(uint64(p.Position.Milliseconds()))
	}
	return clusters.Fields{
		0: datamodel.Uint(uint64(p.UpdatedAt.UnixMicro())),
		1: pos,
	}.Value()
}

// PlaybackPositionFromValue converts a SampledPosition value.
func PlaybackPositionFromValue(v datamodel.Value) (PlaybackPosition, error) {
	d := clusters.NewValueDecoder(v)
	updated := d.Uint(0)
	var p PlaybackPosition
	if ms, ok := d.OptUint(1); ok {
		pos := time.Duration(ms) * time.Millisecond
		p.Position = &pos
	}
	if err := d.Err(); err != nil {
		return PlaybackPosition{}, err
	}
	p.UpdatedAt = time.UnixMicro(int64(updated))
	return p, nil
}

// PlaybackResponse answers every transport command.
type PlaybackResponse struct {
	Status Status
	Data   string
}

// Value returns the response fields.
func (r PlaybackResponse) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(r.Status)),
		1: clusters.OptionalText(r.Data),
	}.Value()
}

// PlaybackResponseFromValue decodes PlaybackResponse fields.
func PlaybackResponseFromValue(v datamodel.Value) (PlaybackResponse, error) {
	d := clusters.NewResponseDecoder(v)
	r := PlaybackResponse{
		Status: Status(d.Uint(0)),
		Data:   d.OptString(1),
	}
	return r, d.Err()
}

// DurationValue encodes a millisecond attribute such as Duration. A
// negative d encodes null.
func DurationValue(d time.Duration) datamodel.Value {
	if d < 0 {
		return datamodel.Null()
	}
	return datamodel.Uint(uint64(d.Milliseconds()))
}

// DurationFromValue decodes a millisecond attribute. Null decodes as -1.
func DurationFromValue(v datamodel.Value) (time.Duration, error) {
	if v.IsNull() {
		return -1, nil
	}
	ms, err := v.AsUint()
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SpeedFromValue decodes the PlaybackSpeed attribute.
func SpeedFromValue(v datamodel.Value) (float64, error) {
	return v.AsFloat()
}
