package datamodel

import "fmt"

// Fundamental identifier types shared by the content and casting sides.
type (
	// EndpointID is a 16-bit endpoint identifier.
	EndpointID uint16

	// ClusterID is a 32-bit cluster identifier.
	ClusterID uint32

	// AttributeID is a 32-bit attribute identifier.
	AttributeID uint32

	// CommandID is a 32-bit command identifier.
	CommandID uint32

	// VendorID is a 16-bit vendor identifier.
	VendorID uint16

	// ProductID is a 16-bit product identifier.
	ProductID uint16

	// DeviceTypeID is a 32-bit device type identifier.
	DeviceTypeID uint32

	// SubscriptionID identifies a subscription on a link.
	SubscriptionID uint32
)

// TestVendorID is the vendor ID reserved for development and testing (0xFFF1).
const TestVendorID VendorID = 0xFFF1

// DeviceTypeCastingVideoPlayer is the device type advertised by TVs.
const DeviceTypeCastingVideoPlayer DeviceTypeID = 0x0023

// DeviceTypeContentApp is the device type of a content app endpoint.
const DeviceTypeContentApp DeviceTypeID = 0x0024

// AttributeKey identifies an attribute within a cluster, independent of
// the endpoint it is hosted on.
type AttributeKey struct {
	Cluster   ClusterID
	Attribute AttributeID
}

// String returns the key as "0xCCCC/0xAAAA".
func (k AttributeKey) String() string {
	return fmt.Sprintf("0x%04X/0x%04X", uint32(k.Cluster), uint32(k.Attribute))
}

// CommandKey identifies a command within a cluster.
type CommandKey struct {
	Cluster ClusterID
	Command CommandID
}

// String returns the key as "0xCCCC/0xCC".
func (k CommandKey) String() string {
	return fmt.Sprintf("0x%04X/0x%02X", uint32(k.Cluster), uint32(k.Command))
}

// AttributePath identifies a specific attribute on an endpoint.
type AttributePath struct {
	Endpoint  EndpointID
	Cluster   ClusterID
	Attribute AttributeID
}

// Key returns the endpoint-independent part of the path.
func (p AttributePath) Key() AttributeKey {
	return AttributeKey{Cluster: p.Cluster, Attribute: p.Attribute}
}

// String returns a human-readable representation of the path.
func (p AttributePath) String() string {
	return fmt.Sprintf("%d/%s", p.Endpoint, p.Key())
}

// CommandPath identifies a specific command on an endpoint.
type CommandPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
	Command  CommandID
}

// Key returns the endpoint-independent part of the path.
func (p CommandPath) Key() CommandKey {
	return CommandKey{Cluster: p.Cluster, Command: p.Command}
}

// String returns a human-readable representation of the path.
func (p CommandPath) String() string {
	return fmt.Sprintf("%d/%s", p.Endpoint, p.Key())
}
