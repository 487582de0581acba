// Package api serves the read side over HTTP: JSON snapshots of the
// connection table, the WAN device rates, and the current lease map.
package api

import (
	"encoding/json"
	"net/http"
	"net/netip"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/untoldwind/nftracker/conntrack"
	"github.com/untoldwind/nftracker/device"
	"github.com/untoldwind/nftracker/leases"
	"github.com/untoldwind/nftracker/traffic"
)

// Server exposes the collectors' snapshots as JSON. It holds no state of
// its own: every request round-trips through the owning collector, so the
// response is always a coherent point-in-time view.
type Server struct {
	conntrack *conntrack.Collector
	device    *device.Collector
	leases    *leases.Collector
	logger    log.Logger
}

// NewServer constructs a Server reading from the given collectors.
func NewServer(ct *conntrack.Collector, dev *device.Collector, ls *leases.Collector, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Server{
		conntrack: ct,
		device:    dev,
		leases:    ls,
		logger:    logger,
	}
}

// Router returns the HTTP routes served by this Server. The /metrics
// endpoint is mounted separately by the caller so the API stays usable
// without a metrics registry.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/connections", s.handleConnections).Methods(http.MethodGet)
	router.HandleFunc("/api/device", s.handleDevice).Methods(http.MethodGet)
	router.HandleFunc("/api/leases", s.handleLeases).Methods(http.MethodGet)
	return router
}

// rateSeriesJSON is one direction of a traffic pair: the timestamp of the
// first rate sample plus one sample per second after it.
type rateSeriesJSON struct {
	First time.Time  `json:"first"`
	Rates []rateJSON `json:"rates"`
}

type rateJSON struct {
	BytesPerSec   uint64 `json:"bytes_per_sec"`
	PacketsPerSec uint64 `json:"packets_per_sec"`
}

type remoteJSON struct {
	Remote string         `json:"remote"`
	In     rateSeriesJSON `json:"in"`
	Out    rateSeriesJSON `json:"out"`
}

type localJSON struct {
	Local   string       `json:"local"`
	Name    string       `json:"name,omitempty"`
	Remotes []remoteJSON `json:"remotes"`
}

type leaseJSON struct {
	Addr     string `json:"addr"`
	Name     string `json:"name"`
	ClientID string `json:"client_id"`
}

func rateSeries(first time.Time, rates []traffic.Rate) rateSeriesJSON {
	out := rateSeriesJSON{First: first, Rates: make([]rateJSON, len(rates))}
	for i, r := range rates {
		out.Rates[i] = rateJSON{BytesPerSec: r.BytesPerSec, PacketsPerSec: r.PacketsPerSec}
	}
	return out
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	table := s.conntrack.Snapshot(r.Context())
	if table == nil {
		http.Error(w, "collector unavailable", http.StatusServiceUnavailable)
		return
	}
	leaseMap := s.leases.Snapshot(r.Context())

	locals := table.Locals()
	sort.Slice(locals, func(i, j int) bool { return locals[i].Less(locals[j]) })

	response := make([]localJSON, 0, len(locals))
	for _, local := range locals {
		entry := localJSON{Local: local.String()}
		if lease, ok := leaseMap[local]; ok && lease.Name != "*" {
			entry.Name = lease.Name
		}

		remotes := table.Remotes(local)
		addrs := make([]netip.Addr, 0, len(remotes))
		for addr := range remotes {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

		for _, addr := range addrs {
			tr := remotes[addr]
			inFirst, inRates := tr.SnapshotInRates()
			outFirst, outRates := tr.SnapshotOutRates()
			entry.Remotes = append(entry.Remotes, remoteJSON{
				Remote: addr.String(),
				In:     rateSeries(inFirst, inRates),
				Out:    rateSeries(outFirst, outRates),
			})
		}
		response = append(response, entry)
	}

	s.writeJSON(w, response)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	tr := s.device.Snapshot(r.Context())
	if tr == nil {
		http.Error(w, "collector unavailable", http.StatusServiceUnavailable)
		return
	}

	inFirst, inRates := tr.SnapshotInRates()
	outFirst, outRates := tr.SnapshotOutRates()
	s.writeJSON(w, struct {
		In  rateSeriesJSON `json:"in"`
		Out rateSeriesJSON `json:"out"`
	}{
		In:  rateSeries(inFirst, inRates),
		Out: rateSeries(outFirst, outRates),
	})
}

func (s *Server) handleLeases(w http.ResponseWriter, r *http.Request) {
	leaseMap := s.leases.Snapshot(r.Context())

	response := make([]leaseJSON, 0, len(leaseMap))
	for _, lease := range leaseMap {
		response = append(response, leaseJSON{
			Addr:     lease.Addr.String(),
			Name:     lease.Name,
			ClientID: lease.ClientID,
		})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].Addr < response[j].Addr })

	s.writeJSON(w, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Error(s.logger).Log("msg", "write response failed", "err", err)
	}
}
