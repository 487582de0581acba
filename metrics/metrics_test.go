package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsRecordersAreNoops(t *testing.T) {
	var m *Metrics
	m.ScanCompleted("conntrack", 0.001)
	m.ScanFailed("conntrack")
	m.ParseError("device")
	m.SetTableSize(1, 2)
	m.SetLeaseCount(3)
}

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := New()
	m.ScanCompleted("conntrack", 0.002)
	m.ParseError("leases")
	m.SetTableSize(2, 5)
	m.SetLeaseCount(4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`nftracker_scans_total{collector="conntrack"} 1`,
		`nftracker_parse_errors_total{collector="leases"} 1`,
		`nftracker_local_hosts 2`,
		`nftracker_tracked_pairs 5`,
		`nftracker_leases 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
