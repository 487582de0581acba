// Package conntrack parses the kernel's connection-tracking table
// (/proc/net/nf_conntrack) and aggregates flows into a Local→Remote traffic
// table.
package conntrack

// Entry is one directional tuple parsed out of a conntrack line. A typical
// line encodes two entries (the original and reply tuples); both are
// emitted by Parse.
type Entry struct {
	Transport string
	Protocol  string
	Timeout   uint64
	Src       string
	Sport     string
	Dst       string
	Dport     string
	Bytes     uint64
	Packets   uint64
}
