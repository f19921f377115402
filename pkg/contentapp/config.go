package contentapp

import (
	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/pion/logging"
)

// DefaultEndpoint is the endpoint the example binaries host a content app
// on. Endpoint 1 is typically the video player itself.
const DefaultEndpoint datamodel.EndpointID = 4

// Config configures a content App.
type Config struct {
	// Identity
	Endpoint        datamodel.EndpointID // Endpoint hosting the app, required and non-zero
	VendorID        datamodel.VendorID   // Vendor ID (default: TestVendorID)
	ProductID       datamodel.ProductID  // Product ID
	VendorName      string               // Vendor name reported by ApplicationBasic
	ApplicationName string               // Application name reported by ApplicationBasic

	// Catalog identity used by ApplicationLauncher.
	CatalogVendorID uint16
	ApplicationID   string

	// Clusters hosted in addition to those with a registered handler.
	Clusters []datamodel.ClusterID

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Endpoint == 0 {
		return ErrInvalidEndpoint
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.VendorID == 0 {
		c.VendorID = datamodel.TestVendorID
	}
	if c.CatalogVendorID == 0 {
		c.CatalogVendorID = uint16(c.VendorID)
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Content App"
	}
}
