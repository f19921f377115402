// Package contentlauncher implements the Content Launcher Cluster (0x050A),
// which starts playback of content by search or by URL.
package contentlauncher

import (
	"strings"

	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x050A
	ClusterRevision uint16              = 1
)

// Feature bits.
const (
	FeatureContentSearch uint32 = 1 << 0
	FeatureURLPlayback   uint32 = 1 << 1
)

// Attribute IDs.
const (
	AttrAcceptHeader                datamodel.AttributeID = 0x0000
	AttrSupportedStreamingProtocols datamodel.AttributeID = 0x0001
)

// Command IDs.
const (
	CmdLaunchContent    datamodel.CommandID = 0x00
	CmdLaunchURL        datamodel.CommandID = 0x01
	CmdLauncherResponse datamodel.CommandID = 0x02
)

// Streaming protocol bits of SupportedStreamingProtocols.
const (
	ProtocolDASH uint32 = 1 << 0
	ProtocolHLS  uint32 = 1 << 1
)

// Status is the status of a LauncherResponse.
type Status uint8

const (
	StatusSuccess         Status = 0
	StatusURLNotAvailable Status = 1
	StatusAuthFailed      Status = 2
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusURLNotAvailable:
		return "URLNotAvailable"
	case StatusAuthFailed:
		return "AuthFailed"
	default:
		return "Unknown"
	}
}

// ParameterType classifies a search parameter.
type ParameterType uint8

const (
	ParameterActor       ParameterType = 0
	ParameterChannel     ParameterType = 1
	ParameterCharacter   ParameterType = 2
	ParameterDirector    ParameterType = 3
	ParameterEvent       ParameterType = 4
	ParameterFranchise   ParameterType = 5
	ParameterGenre       ParameterType = 6
	ParameterLeague      ParameterType = 7
	ParameterPopularity  ParameterType = 8
	ParameterProvider    ParameterType = 9
	ParameterSport       ParameterType = 10
	ParameterSportsTeam  ParameterType = 11
	ParameterContentType ParameterType = 12
	ParameterVideo       ParameterType = 13
)

var parameterNames = map[string]ParameterType{
	"actor":       ParameterActor,
	"channel":     ParameterChannel,
	"character":   ParameterCharacter,
	"director":    ParameterDirector,
	"event":       ParameterEvent,
	"franchise":   ParameterFranchise,
	"genre":       ParameterGenre,
	"league":      ParameterLeague,
	"popularity":  ParameterPopularity,
	"provider":    ParameterProvider,
	"sport":       ParameterSport,
	"sports_team": ParameterSportsTeam,
	"type":        ParameterContentType,
	"video":       ParameterVideo,
}

// ParseParameterType maps a lower-case name such as "genre" or
// "sports_team" to its parameter type.
func ParseParameterType(name string) (ParameterType, bool) {
	t, ok := parameterNames[strings.ToLower(name)]
	return t, ok
}

// Parameter is one search term.
type Parameter struct {
	Type  ParameterType
	Value string
}

// StructValue returns the struct value.
func (p Parameter) StructValue() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(p.Type)),
		1: datamodel.Text(p.Value),
	}.Value()
}

// ParameterFromValue converts a Parameter struct value.
func ParameterFromValue(v datamodel.Value) (Parameter, error) {
	d := clusters.NewValueDecoder(v)
	p := Parameter{
		Type:  ParameterType(d.Uint(0)),
		Value: d.String(1),
	}
	return p, d.Err()
}

// Search is a content search. Content matches when it satisfies every
// parameter.
type Search struct {
	Parameters []Parameter
}

// Value returns the struct value.
func (s Search) Value() datamodel.Value {
	items := make([]datamodel.Value, len(s.Parameters))
	for i, p := range s.Parameters {
		items[i] = p.StructValue()
	}
	return clusters.Fields{0: datamodel.List(items...)}.Value()
}

// SearchFromValue converts a ContentSearch struct value.
func SearchFromValue(v datamodel.Value) (Search, error) {
	d := clusters.NewValueDecoder(v)
	items := d.List(0)
	if err := d.Err(); err != nil {
		return Search{}, err
	}
	s := Search{Parameters: make([]Parameter, len(items))}
	for i, item := range items {
		p, err := ParameterFromValue(item)
		if err != nil {
			return Search{}, err
		}
		s.Parameters[i] = p
	}
	return s, nil
}

// LaunchContentRequest is the LaunchContent command.
type LaunchContentRequest struct {
	Search   Search
	AutoPlay bool
	Data     string
}

// Value returns the request fields.
func (r LaunchContentRequest) Value() datamodel.Value {
	return clusters.Fields{
		0: r.Search.Value(),
		1: datamodel.Bool(r.AutoPlay),
		2: clusters.OptionalText(r.Data),
	}.Value()
}

// LaunchContentRequestFromValue decodes a LaunchContent command.
func LaunchContentRequestFromValue(v datamodel.Value) (LaunchContentRequest, error) {
	d := clusters.NewRequestDecoder(v)
	search := d.Struct(0)
	r := LaunchContentRequest{
		AutoPlay: d.Bool(1),
		Data:     d.OptString(2),
	}
	if err := d.Err(); err != nil {
		return LaunchContentRequest{}, err
	}
	s, err := SearchFromValue(search)
	if err != nil {
		return LaunchContentRequest{}, err
	}
	r.Search = s
	return r, nil
}

// LaunchURLRequest is the LaunchURL command.
type LaunchURLRequest struct {
	ContentURL    string
	DisplayString string
}

// Value returns the request fields.
func (r LaunchURLRequest) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Text(r.ContentURL),
		1: clusters.OptionalText(r.DisplayString),
	}.Value()
}

// LauncherResponse answers LaunchContent and LaunchURL.
type LauncherResponse struct {
	Status Status
	Data   string
}

// Value returns the response fields.
func (r LauncherResponse) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(r.Status)),
		1: clusters.OptionalText(r.Data),
	}.Value()
}

// LauncherResponseFromValue decodes a LauncherResponse.
func LauncherResponseFromValue(v datamodel.Value) (LauncherResponse, error) {
	d := clusters.NewResponseDecoder(v)
	r := LauncherResponse{
		Status: Status(d.Uint(0)),
		Data:   d.OptString(1),
	}
	return r, d.Err()
}

// AcceptHeaderFromValue decodes AcceptHeader.
func AcceptHeaderFromValue(v datamodel.Value) ([]string, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if out[i], err = item.AsString(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func acceptHeaderValue(headers []string) datamodel.Value {
	items := make([]datamodel.Value, len(headers))
	for i, h := range headers {
		items[i] = datamodel.Text(h)
	}
	return datamodel.List(items...)
}
