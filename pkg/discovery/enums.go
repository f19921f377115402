// Package discovery implements DNS-SD (mDNS) discovery of casting video
// players.
//
// A player (TV) advertises the commissioner service _matterd._udp with its
// vendor, product, device type and name in TXT records. Casting clients
// browse the same service and connect to the advertised port.
package discovery

// DNS-SD service type strings.
const (
	// ServiceCommissioner is the DNS-SD service type advertised by players.
	ServiceCommissioner = "_matterd._udp"

	// DefaultDomain is the default mDNS domain.
	DefaultDomain = "local."
)

// DefaultPort is the default link port advertised by players.
const DefaultPort = 5540

// VendorIDSubtype returns the subtype filter for a vendor ID ("_V<value>").
func VendorIDSubtype(vendorID uint16) string {
	return "_V" + itoa(uint64(vendorID))
}

// DeviceTypeSubtype returns the subtype filter for a device type ("_T<value>").
func DeviceTypeSubtype(deviceType uint32) string {
	return "_T" + itoa(uint64(deviceType))
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}
