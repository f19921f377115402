// Package descriptor implements the Descriptor Cluster (0x001D).
//
// The Descriptor cluster describes an endpoint: its device types and the
// clusters it serves. A casting client can read it to confirm what a
// content app endpoint offers beyond the enumerated endpoint list.
package descriptor

import (
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x001D
	ClusterRevision uint16              = 3
)

// Attribute IDs.
const (
	AttrDeviceTypeList datamodel.AttributeID = 0x0000
	AttrServerList     datamodel.AttributeID = 0x0001
	AttrClientList     datamodel.AttributeID = 0x0002
	AttrPartsList      datamodel.AttributeID = 0x0003
)

// ContentAppRevision is the device type revision of a content app.
const ContentAppRevision uint16 = 1

// DeviceType is one DeviceTypeList entry.
type DeviceType struct {
	DeviceType datamodel.DeviceTypeID
	Revision   uint16
}

// Value returns the entry as a struct value.
func (d DeviceType) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(d.DeviceType)),
		1: datamodel.Uint(uint64(d.Revision)),
	}.Value()
}

// DeviceTypeFromValue converts a DeviceTypeList entry.
func DeviceTypeFromValue(v datamodel.Value) (DeviceType, error) {
	d := clusters.NewValueDecoder(v)
	dt := DeviceType{
		DeviceType: datamodel.DeviceTypeID(d.Uint(0)),
		Revision:   uint16(d.Uint(1)),
	}
	return dt, d.Err()
}

// DeviceTypeListValue encodes a DeviceTypeList.
func DeviceTypeListValue(types []DeviceType) datamodel.Value {
	items := make([]datamodel.Value, len(types))
	for i, t := range types {
		items[i] = t.Value()
	}
	return datamodel.List(items...)
}

// DeviceTypeListFromValue decodes a DeviceTypeList.
func DeviceTypeListFromValue(v datamodel.Value) ([]DeviceType, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]DeviceType, len(items))
	for i, item := range items {
		if out[i], err = DeviceTypeFromValue(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ClusterListValue encodes a ServerList or ClientList.
func ClusterListValue(ids []datamodel.ClusterID) datamodel.Value {
	items := make([]datamodel.Value, len(ids))
	for i, id := range ids {
		items[i] = datamodel.Uint(uint64(id))
	}
	return datamodel.List(items...)
}

// ClusterListFromValue decodes a ServerList or ClientList.
func ClusterListFromValue(v datamodel.Value) ([]datamodel.ClusterID, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]datamodel.ClusterID, len(items))
	for i, item := range items {
		n, err := item.AsUint()
		if err != nil {
			return nil, err
		}
		out[i] = datamodel.ClusterID(n)
	}
	return out, nil
}
