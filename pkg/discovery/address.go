package discovery

import (
	"net"
	"sort"
)

// SortIPsByPreference orders addresses for dialing: routable IPv6 first,
// then unique-local and IPv4. IPv6 link-local addresses follow because a
// resolved entry carries no interface zone to dial them with. Loopback and
// multicast addresses sort last. The input slice is not modified.
func SortIPsByPreference(ips []net.IP) []net.IP {
	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})
	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	if ip.To16() == nil {
		return 99
	}
	switch {
	case ip.IsLoopback():
		return 80
	case ip.IsMulticast():
		return 90
	case ip.To4() != nil:
		return 50
	case isUniqueLocal(ip):
		return 1
	case ip.IsLinkLocalUnicast():
		return 60
	case ip.IsGlobalUnicast():
		return 0
	default:
		return 10
	}
}

// isUniqueLocal returns true for IPv6 unique local addresses (fc00::/7).
func isUniqueLocal(ip net.IP) bool {
	ip = ip.To16()
	return ip != nil && ip.To4() == nil && ip[0]&0xfe == 0xfc
}

// FilterIPv4 returns only IPv4 addresses from the slice.
func FilterIPv4(ips []net.IP) []net.IP {
	var result []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			result = append(result, ip)
		}
	}
	return result
}
