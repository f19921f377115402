// Package targetnavigator implements the Target Navigator Cluster (0x0505).
//
// A content app lists navigation targets (home, settings, a show page)
// and a casting client can jump to one of them.
package targetnavigator

import (
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0505
	ClusterRevision uint16              = 2
)

// Attribute IDs.
const (
	AttrTargetList    datamodel.AttributeID = 0x0000
	AttrCurrentTarget datamodel.AttributeID = 0x0001
)

// Command IDs.
const (
	CmdNavigateTarget         datamodel.CommandID = 0x00
	CmdNavigateTargetResponse datamodel.CommandID = 0x01
)

// Status is the status carried in a NavigateTargetResponse.
type Status uint8

const (
	StatusSuccess        Status = 0
	StatusTargetNotFound Status = 1
	StatusNotAllowed     Status = 2
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusTargetNotFound:
		return "TargetNotFound"
	case StatusNotAllowed:
		return "NotAllowed"
	default:
		return "Unknown"
	}
}

// TargetInfo is one entry of TargetList.
type TargetInfo struct {
	Identifier uint8
	Name       string
}

// Value returns the entry as a struct value.
func (t TargetInfo) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(t.Identifier)),
		1: datamodel.Text(t.Name),
	}.Value()
}

// TargetInfoFromValue converts a TargetList entry.
func TargetInfoFromValue(v datamodel.Value) (TargetInfo, error) {
	d := clusters.NewValueDecoder(v)
	t := TargetInfo{
		Identifier: uint8(d.Uint(0)),
		Name:       d.String(1),
	}
	return t, d.Err()
}

// TargetListValue encodes a TargetList.
func TargetListValue(targets []TargetInfo) datamodel.Value {
	items := make([]datamodel.Value, len(targets))
	for i, t := range targets {
		items[i] = t.Value()
	}
	return datamodel.List(items...)
}

// TargetListFromValue decodes a TargetList.
func TargetListFromValue(v datamodel.Value) ([]TargetInfo, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]TargetInfo, len(items))
	for i, item := range items {
		if out[i], err = TargetInfoFromValue(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CurrentTargetFromValue decodes CurrentTarget. ok is false when no target
// is current.
func CurrentTargetFromValue(v datamodel.Value) (id uint8, ok bool, err error) {
	if v.IsNull() {
		return 0, false, nil
	}
	n, err := v.AsUint()
	if err != nil {
		return 0, false, err
	}
	return uint8(n), true, nil
}

// NavigateTargetRequest is the NavigateTarget command.
type NavigateTargetRequest struct {
	Target uint8
	Data   string
}

// Value returns the request fields.
func (r NavigateTargetRequest) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(r.Target)),
		1: clusters.OptionalText(r.Data),
	}.Value()
}

// NavigateTargetResponse answers NavigateTarget.
type NavigateTargetResponse struct {
	Status Status
	Data   string
}

// Value returns the response fields.
func (r NavigateTargetResponse) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(r.Status)),
		1: clusters.OptionalText(r.Data),
	}.Value()
}

// NavigateTargetResponseFromValue decodes NavigateTargetResponse fields.
func NavigateTargetResponseFromValue(v datamodel.Value) (NavigateTargetResponse, error) {
	d := clusters.NewResponseDecoder(v)
	r := NavigateTargetResponse{
		Status: Status(d.Uint(0)),
		Data:   d.OptString(1),
	}
	return r, d.Err()
}
