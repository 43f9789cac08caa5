package resolver

import (
	"fmt"
	"net/netip"
)

// Family is an IP address family under reconciliation. Each family maps
// to one DNS record type and one connection stack.
type Family string

const (
	IPv4 Family = "ipv4"
	IPv6 Family = "ipv6"
)

func (f Family) String() string {
	return string(f)
}

// RecordType returns the DNS record type holding addresses of this family.
func (f Family) RecordType() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}

// Network returns the transport network constraining outbound
// connections to this family.
func (f Family) Network() string {
	if f == IPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// Matches reports whether addr belongs to this family.
func (f Family) Matches(addr netip.Addr) bool {
	if f == IPv6 {
		return addr.Is6() && !addr.Is4In6()
	}
	return addr.Is4() || addr.Is4In6()
}

// FamilyForType maps an explicit record type to the family it implies.
func FamilyForType(recordType string) (Family, error) {
	switch recordType {
	case "A":
		return IPv4, nil
	case "AAAA":
		return IPv6, nil
	default:
		return "", fmt.Errorf("unsupported record type %q, want A or AAAA", recordType)
	}
}
