// Package applicationlauncher implements the Application Launcher Cluster
// (0x050C), through which a casting app launches, stops and hides content
// apps on the player.
package applicationlauncher

import (
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/clusters/applicationbasic"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x050C
	ClusterRevision uint16              = 1
)

// Feature bits.
const (
	FeatureApplicationPlatform uint32 = 1 << 0
)

// Attribute IDs.
const (
	AttrCatalogList datamodel.AttributeID = 0x0000
	AttrCurrentApp  datamodel.AttributeID = 0x0001
)

// Command IDs.
const (
	CmdLaunchApp        datamodel.CommandID = 0x00
	CmdStopApp          datamodel.CommandID = 0x01
	CmdHideApp          datamodel.CommandID = 0x02
	CmdLauncherResponse datamodel.CommandID = 0x03
)

// Status is the status of a LauncherResponse.
type Status uint8

const (
	StatusSuccess             Status = 0
	StatusAppNotAvailable     Status = 1
	StatusSystemBusy          Status = 2
	StatusPendingUserApproval Status = 3
	StatusDownloading         Status = 4
	StatusInstalling          Status = 5
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusAppNotAvailable:
		return "AppNotAvailable"
	case StatusSystemBusy:
		return "SystemBusy"
	case StatusPendingUserApproval:
		return "PendingUserApproval"
	case StatusDownloading:
		return "Downloading"
	case StatusInstalling:
		return "Installing"
	default:
		return "Unknown"
	}
}

// Application is the catalog identity of an app.
type Application = applicationbasic.Application

// ApplicationEP is an application together with the endpoint hosting it.
type ApplicationEP struct {
	Application Application
	Endpoint    datamodel.EndpointID // zero when not hosted on an endpoint
}

// Value returns the struct value.
func (a ApplicationEP) Value() datamodel.Value {
	f := clusters.Fields{0: a.Application.Value()}
	if a.Endpoint != 0 {
		f[1] = datamodel.Uint(uint64(a.Endpoint))
	}
	return f.Value()
}

// CurrentAppFromValue decodes CurrentApp. ok is false when no app is
// current.
func CurrentAppFromValue(v datamodel.Value) (app ApplicationEP, ok bool, err error) {
	if v.IsNull() || v.IsAbsent() {
		return ApplicationEP{}, false, nil
	}
	d := clusters.NewValueDecoder(v)
	inner := d.Struct(0)
	ep, _ := d.OptUint(1)
	if err := d.Err(); err != nil {
		return ApplicationEP{}, false, err
	}
	a, err := applicationbasic.ApplicationFromValue(inner)
	if err != nil {
		return ApplicationEP{}, false, err
	}
	return ApplicationEP{Application: a, Endpoint: datamodel.EndpointID(ep)}, true, nil
}

// CatalogListValue encodes CatalogList.
func CatalogListValue(ids []uint16) datamodel.Value {
	items := make([]datamodel.Value, len(ids))
	for i, id := range ids {
		items[i] = datamodel.Uint(uint64(id))
	}
	return datamodel.List(items...)
}

// CatalogListFromValue decodes CatalogList.
func CatalogListFromValue(v datamodel.Value) ([]uint16, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, len(items))
	for i, item := range items {
		n, err := item.AsUint()
		if err != nil {
			return nil, err
		}
		if n > 0xFFFF {
			return nil, datamodel.ErrOutOfRange
		}
		out[i] = uint16(n)
	}
	return out, nil
}

// LaunchAppRequest is the LaunchApp command. A nil Application launches
// the app the command is addressed to.
type LaunchAppRequest struct {
	Application *Application
	Data        []byte
}

// Value returns the request fields.
func (r LaunchAppRequest) Value() datamodel.Value {
	f := clusters.Fields{1: clusters.OptionalOctets(r.Data)}
	if r.Application != nil {
		f[0] = r.Application.Value()
	}
	return f.Value()
}

// appRequest encodes StopApp and HideApp.
func appRequest(a *Application) datamodel.Value {
	f := clusters.Fields{}
	if a != nil {
		f[0] = a.Value()
	}
	return f.Value()
}

// LauncherResponse answers LaunchApp, StopApp and HideApp.
type LauncherResponse struct {
	Status Status
	Data   []byte
}

// Value returns the response fields.
func (r LauncherResponse) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(r.Status)),
		1: clusters.OptionalOctets(r.Data),
	}.Value()
}

// LauncherResponseFromValue decodes a LauncherResponse.
func LauncherResponseFromValue(v datamodel.Value) (LauncherResponse, error) {
	d := clusters.NewResponseDecoder(v)
	r := LauncherResponse{
		Status: Status(d.Uint(0)),
		Data:   d.OptBytes(1),
	}
	return r, d.Err()
}
