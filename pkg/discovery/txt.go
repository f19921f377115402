package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXT record keys used by casting players.
const (
	// TXTKeyVendorProduct is the vendor/product ID key (format: "VID+PID").
	TXTKeyVendorProduct = "VP"

	// TXTKeyDeviceType is the device type key.
	TXTKeyDeviceType = "DT"

	// TXTKeyDeviceName is the device name key (max 32 chars).
	TXTKeyDeviceName = "DN"

	// TXTKeyCommissionerPasscode indicates commissioner passcode support.
	TXTKeyCommissionerPasscode = "CP"
)

// MaxDeviceNameLength is the maximum length of the device name.
const MaxDeviceNameLength = 32

// PlayerTXT holds the TXT records of a casting player advertisement.
type PlayerTXT struct {
	VendorID   uint16
	ProductID  uint16
	DeviceType uint32
	DeviceName string

	// CommissionerPasscode is set when the player can display a passcode.
	CommissionerPasscode bool
}

// Encode converts the TXT record to DNS-SD format strings.
func (p *PlayerTXT) Encode() []string {
	var txt []string

	if p.VendorID != 0 || p.ProductID != 0 {
		txt = append(txt, fmt.Sprintf("%s=%d+%d", TXTKeyVendorProduct, p.VendorID, p.ProductID))
	}

	if p.DeviceType != 0 {
		txt = append(txt, fmt.Sprintf("%s=%d", TXTKeyDeviceType, p.DeviceType))
	}

	if p.DeviceName != "" {
		name := p.DeviceName
		if len(name) > MaxDeviceNameLength {
			name = name[:MaxDeviceNameLength]
		}
		txt = append(txt, fmt.Sprintf("%s=%s", TXTKeyDeviceName, name))
	}

	if p.CommissionerPasscode {
		txt = append(txt, fmt.Sprintf("%s=1", TXTKeyCommissionerPasscode))
	}

	return txt
}

// Validate checks that the TXT record values are within limits.
func (p *PlayerTXT) Validate() error {
	if len(p.DeviceName) > MaxDeviceNameLength {
		return ErrInvalidDeviceName
	}
	return nil
}

// ParseTXT parses raw TXT record strings into a map. Records without '='
// or with an empty key are ignored.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string)
	for _, record := range records {
		if idx := strings.IndexByte(record, '='); idx > 0 {
			result[record[:idx]] = record[idx+1:]
		}
	}
	return result
}

// ParsePlayerTXT parses a TXT map into a PlayerTXT.
func ParsePlayerTXT(m map[string]string) (*PlayerTXT, error) {
	txt := &PlayerTXT{}

	if v, ok := m[TXTKeyVendorProduct]; ok {
		vid, pid, err := parseVendorProduct(v)
		if err != nil {
			return nil, err
		}
		txt.VendorID = vid
		txt.ProductID = pid
	}

	if v, ok := m[TXTKeyDeviceType]; ok {
		dt, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.DeviceType = uint32(dt)
	}

	txt.DeviceName = m[TXTKeyDeviceName]
	txt.CommissionerPasscode = m[TXTKeyCommissionerPasscode] == "1"

	return txt, nil
}

// parseVendorProduct parses "VID+PID". The product part is optional.
func parseVendorProduct(s string) (uint16, uint16, error) {
	vidStr, pidStr, hasPID := strings.Cut(s, "+")

	vid, err := strconv.ParseUint(vidStr, 10, 16)
	if err != nil {
		return 0, 0, ErrInvalidTXTRecord
	}
	if !hasPID {
		return uint16(vid), 0, nil
	}

	pid, err := strconv.ParseUint(pidStr, 10, 16)
	if err != nil {
		return 0, 0, ErrInvalidTXTRecord
	}
	return uint16(vid), uint16(pid), nil
}
