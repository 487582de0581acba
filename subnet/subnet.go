// Package subnet implements the byte/word-prefix subnet matching used to
// classify conntrack flow endpoints as "local" or "remote".
package subnet

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// kind distinguishes the two prefix encodings a Subnet can hold.
type kind int

const (
	v4 kind = iota
	v6
)

// Subnet is a tagged union of a 1-3 octet IPv4 prefix or a 1-7 word IPv6
// prefix. There is no mask length: matching is always whole-octet (IPv4) or
// whole-word (IPv6).
type Subnet struct {
	kind   kind
	v4Oct  []uint8
	v6Word []uint16
}

// Contains reports whether addr's leading octets/words match the subnet's
// prefix. A v4 prefix never matches a v6 address and vice versa.
func (s Subnet) Contains(addr netip.Addr) bool {
	switch s.kind {
	case v4:
		if !addr.Is4() {
			return false
		}
		octets := addr.As4()
		for i, p := range s.v4Oct {
			if octets[i] != p {
				return false
			}
		}
		return true
	case v6:
		if !addr.Is6() || addr.Is4In6() {
			return false
		}
		words := addr.As16()
		for i, p := range s.v6Word {
			word := uint16(words[2*i])<<8 | uint16(words[2*i+1])
			if word != p {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the subnet back to its configuration form: a dotted prefix
// with trailing separator for IPv4 ("192.168.3."), a coloned prefix with
// trailing separator for IPv6 ("1234:abcd:").
func (s Subnet) String() string {
	var b strings.Builder
	switch s.kind {
	case v4:
		for _, p := range s.v4Oct {
			fmt.Fprintf(&b, "%d.", p)
		}
	case v6:
		for _, p := range s.v6Word {
			fmt.Fprintf(&b, "%x:", p)
		}
	}
	return b.String()
}

// Parse parses a subnet prefix string such as "192.168.3." or "1234:abcd:".
// An IPv4 prefix is 1-3 dot-terminated decimal octets; an IPv6 prefix is 1-7
// colon-terminated hex words. The bare "::" form is rejected: there is no
// digit before the first separator to anchor the parse on.
func Parse(s string) (Subnet, error) {
	if sn, ok := parseV4(s); ok {
		return sn, nil
	}
	if sn, ok := parseV6(s); ok {
		return sn, nil
	}
	return Subnet{}, fmt.Errorf("subnet: invalid prefix %q", s)
}

func parseV4(s string) (Subnet, bool) {
	var octets []uint8
	rest := s
	for len(octets) < 3 {
		i := strings.IndexByte(rest, '.')
		if i <= 0 {
			break
		}
		v, err := strconv.ParseUint(rest[:i], 10, 8)
		if err != nil {
			break
		}
		octets = append(octets, uint8(v))
		rest = rest[i+1:]
	}
	if len(octets) == 0 {
		return Subnet{}, false
	}
	return Subnet{kind: v4, v4Oct: octets}, true
}

func parseV6(s string) (Subnet, bool) {
	var words []uint16
	rest := s
	for len(words) < 7 {
		i := strings.IndexByte(rest, ':')
		if i <= 0 {
			break
		}
		v, err := strconv.ParseUint(rest[:i], 16, 16)
		if err != nil {
			break
		}
		words = append(words, uint16(v))
		rest = rest[i+1:]
	}
	if len(words) == 0 {
		return Subnet{}, false
	}
	return Subnet{kind: v6, v6Word: words}, true
}
