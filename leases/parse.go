package leases

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strings"
)

// Parse streams leases out of r, calling onLease for each line that parses
// successfully. Malformed lines are reported to onError (which may be nil)
// and skipped, matching the permissive behavior of the file this is read
// from: a corrupt or half-written entry must never abort the whole scan.
func Parse(r io.Reader, onLease func(Lease), onError func(lineNo int, err error)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lease, err := parseLine(line)
		if err != nil {
			if onError != nil {
				onError(lineNo, err)
			}
			continue
		}
		onLease(lease)
	}
	return scanner.Err()
}

// parseLine parses "<expiry> <mac-like> <addr> <hostname|*> <client-id>".
// The expiry timestamp is not modeled; the lease's own client-supplied mac
// is dropped in favor of the DHCP client identifier, which is not always
// the interface MAC (e.g. IPv6 DUIDs).
func parseLine(line string) (Lease, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Lease{}, fmt.Errorf("leases: expected 5 fields, got %d in %q", len(fields), line)
	}

	expiry, mac, addrField, name, clientID := fields[0], fields[1], fields[2], fields[3], fields[4]

	if !isDigits(expiry) {
		return Lease{}, fmt.Errorf("leases: invalid expiry %q", expiry)
	}
	if !isMacLike(mac) {
		return Lease{}, fmt.Errorf("leases: invalid mac %q", mac)
	}
	addr, err := netip.ParseAddr(addrField)
	if err != nil {
		return Lease{}, fmt.Errorf("leases: invalid addr %q: %w", addrField, err)
	}
	if !isHostname(name) {
		return Lease{}, fmt.Errorf("leases: invalid hostname %q", name)
	}
	if !isMacLike(clientID) {
		return Lease{}, fmt.Errorf("leases: invalid client id %q", clientID)
	}

	return Lease{Name: name, Addr: addr, ClientID: clientID}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isMacLike matches one or more hex digits, optionally followed by further
// ':'-separated hex-digit groups. It accepts both a 6-octet MAC address and
// a longer DUID such as an IPv6 client identifier.
func isMacLike(s string) bool {
	if s == "" {
		return false
	}
	for _, group := range strings.Split(s, ":") {
		if group == "" || !isHexDigits(group) {
			return false
		}
	}
	return true
}

func isHexDigits(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// isHostname matches "*" (no hostname announced) or an alphanumeric name
// that may contain '-' and '_'.
func isHostname(s string) bool {
	if s == "*" {
		return true
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
