// Package leases parses DHCP lease files and exposes a read-only snapshot
// of hostnames and client identifiers keyed by address.
package leases

import "net/netip"

// Lease is one DHCP lease: the client's announced hostname, its leased
// address, and the DHCP client identifier (not necessarily the interface's
// MAC address).
type Lease struct {
	Name     string
	Addr     netip.Addr
	ClientID string
}
