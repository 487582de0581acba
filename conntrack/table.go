package conntrack

import (
	"net/netip"
	"time"

	"github.com/untoldwind/nftracker/traffic"
)

// Table is a Local→Remote→Traffic aggregation. A Local is any address
// matched by a configured local subnet; a Remote is the peer of that flow.
// Inner entries are created lazily on first upsert.
type Table struct {
	retain      time.Duration
	connections map[netip.Addr]map[netip.Addr]*traffic.Traffic
}

// NewTable constructs an empty table whose Traffic entries retain retain
// worth of one-second history.
func NewTable(retain time.Duration) *Table {
	return &Table{
		retain:      retain,
		connections: make(map[netip.Addr]map[netip.Addr]*traffic.Traffic),
	}
}

// trafficFor returns (creating if necessary) the Traffic for local→remote.
func (t *Table) trafficFor(local, remote netip.Addr) *traffic.Traffic {
	remotes, ok := t.connections[local]
	if !ok {
		remotes = make(map[netip.Addr]*traffic.Traffic)
		t.connections[local] = remotes
	}
	tr, ok := remotes[remote]
	if !ok {
		tr = traffic.New(t.retain)
		remotes[remote] = tr
	}
	return tr
}

// PushIn upserts an inbound sample for local←remote.
func (t *Table) PushIn(now time.Time, local, remote netip.Addr, bytes, packets uint64) {
	t.trafficFor(local, remote).PutIn(now, bytes, packets)
}

// PushOut upserts an outbound sample for local→remote.
func (t *Table) PushOut(now time.Time, local, remote netip.Addr, bytes, packets uint64) {
	t.trafficFor(local, remote).PutOut(now, bytes, packets)
}

// Prune removes every Local key not present in observed. It is meant to run
// once at the end of a scan, after every flow in that scan has been pushed.
func (t *Table) Prune(observed map[netip.Addr]struct{}) {
	for local := range t.connections {
		if _, ok := observed[local]; !ok {
			delete(t.connections, local)
		}
	}
}

// Size returns the number of tracked local hosts and local/remote pairs.
func (t *Table) Size() (locals, pairs int) {
	for _, remotes := range t.connections {
		pairs += len(remotes)
	}
	return len(t.connections), pairs
}

// Locals returns the set of currently-tracked local addresses.
func (t *Table) Locals() []netip.Addr {
	locals := make([]netip.Addr, 0, len(t.connections))
	for local := range t.connections {
		locals = append(locals, local)
	}
	return locals
}

// Remotes returns a snapshot of local's remote traffic pairs. The returned
// map is a shallow copy safe to read independently of further table
// mutation; the *traffic.Traffic values themselves are still owned by the
// table and must only be read through their own snapshot methods.
func (t *Table) Remotes(local netip.Addr) map[netip.Addr]*traffic.Traffic {
	remotes := t.connections[local]
	if remotes == nil {
		return nil
	}
	out := make(map[netip.Addr]*traffic.Traffic, len(remotes))
	for remote, tr := range remotes {
		out[remote] = tr
	}
	return out
}
