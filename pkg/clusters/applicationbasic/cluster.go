// Package applicationbasic implements the Application Basic Cluster (0x050D).
//
// The cluster is read-only: it describes the content app hosted on an
// endpoint (vendor, name, catalog identity, version and run status).
package applicationbasic

import (
	"github.com/backkem/matter-tv/pkg/clusters"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x050D
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrVendorName         datamodel.AttributeID = 0x0000
	AttrVendorID           datamodel.AttributeID = 0x0001
	AttrApplicationName    datamodel.AttributeID = 0x0002
	AttrProductID          datamodel.AttributeID = 0x0003
	AttrApplication        datamodel.AttributeID = 0x0004
	AttrStatus             datamodel.AttributeID = 0x0005
	AttrApplicationVersion datamodel.AttributeID = 0x0006
	AttrAllowedVendorList  datamodel.AttributeID = 0x0007
)

// ApplicationStatus is the Status attribute.
type ApplicationStatus uint8

const (
	StatusStopped               ApplicationStatus = 0
	StatusActiveVisibleFocus    ApplicationStatus = 1
	StatusActiveHidden          ApplicationStatus = 2
	StatusActiveVisibleNotFocus ApplicationStatus = 3
)

// String returns the name of the status.
func (s ApplicationStatus) String() string {
	switch s {
	case StatusStopped:
		return "Stopped"
	case StatusActiveVisibleFocus:
		return "ActiveVisibleFocus"
	case StatusActiveHidden:
		return "ActiveHidden"
	case StatusActiveVisibleNotFocus:
		return "ActiveVisibleNotFocus"
	default:
		return "Unknown"
	}
}

// Value returns the status as an attribute value.
func (s ApplicationStatus) Value() datamodel.Value {
	return datamodel.Uint(uint64(s))
}

// ApplicationStatusFromValue converts a Status value.
func ApplicationStatusFromValue(v datamodel.Value) (ApplicationStatus, error) {
	n, err := v.AsUint()
	if err != nil {
		return 0, err
	}
	if n > uint64(StatusActiveVisibleNotFocus) {
		return 0, datamodel.ErrOutOfRange
	}
	return ApplicationStatus(n), nil
}

// Application identifies an app in a vendor's catalog. It is shared with
// the Application Launcher cluster.
type Application struct {
	CatalogVendorID uint16
	ApplicationID   string
}

// Value returns the application as a struct value.
func (a Application) Value() datamodel.Value {
	return clusters.Fields{
		0: datamodel.Uint(uint64(a.CatalogVendorID)),
		1: datamodel.Text(a.ApplicationID),
	}.Value()
}

// ApplicationFromValue converts an Application struct value.
func ApplicationFromValue(v datamodel.Value) (Application, error) {
	d := clusters.NewValueDecoder(v)
	a := Application{
		CatalogVendorID: uint16(d.Uint(0)),
		ApplicationID:   d.String(1),
	}
	return a, d.Err()
}

// Info is the full attribute set of the cluster.
type Info struct {
	VendorName         string
	VendorID           datamodel.VendorID
	ApplicationName    string
	ProductID          datamodel.ProductID
	Application        Application
	Status             ApplicationStatus
	ApplicationVersion string
}
