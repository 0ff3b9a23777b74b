package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func instrumentedHandler(t *testing.T, status int, body string) (http.Handler, *prometheus.Registry) {
	t.Helper()

	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return handler, reg
}

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/matches", "/v1/matches"},
		{"/v1/matches/run", "/v1/matches/run"},
		{"/health/db", "/health/db"},
		{"/v1/profiles/member-123", "/v1/profiles/{id}"},
		{"/v1/profiles/", "/v1/profiles/"},
		{"/v1/profiles/member-123/extra", "/v1/profiles/member-123/extra"},
		{"/unknown/route", "/unknown/route"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHTTPMetrics_RecordsRequests(t *testing.T) {
	handler, reg := instrumentedHandler(t, http.StatusOK, `{"matches":[]}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	for _, name := range []string{MetricHTTPRequestDuration, MetricHTTPRequestsTotal, MetricHTTPResponseSizeBytes} {
		mf := gatherFamily(t, reg, name)
		if mf == nil || len(mf.GetMetric()) == 0 {
			t.Errorf("expected samples for %s", name)
		}
	}
}

func TestHTTPMetrics_HealthProbesExcluded(t *testing.T) {
	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			handler, reg := instrumentedHandler(t, http.StatusOK, `{"status":"ok"}`)

			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if mf := gatherFamily(t, reg, MetricHTTPRequestsTotal); mf != nil && len(mf.GetMetric()) > 0 {
				t.Errorf("expected no request samples for %s", path)
			}
		})
	}
}

func TestHTTPMetrics_Labels(t *testing.T) {
	handler, reg := instrumentedHandler(t, http.StatusPreconditionFailed, `{"error":{}}`)

	body := `{"trigger":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", strings.NewReader(body))
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	mf := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected exactly one label set, got %v", mf)
	}

	labels := make(map[string]string)
	for _, lp := range mf.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["method"] != "POST" {
		t.Errorf("method label = %s, want POST", labels["method"])
	}
	if labels["path"] != "/v1/matches/run" {
		t.Errorf("path label = %s, want /v1/matches/run", labels["path"])
	}
	if labels["status"] != "412" {
		t.Errorf("status label = %s, want 412", labels["status"])
	}

	// Request size comes from Content-Length.
	sizeMF := gatherFamily(t, reg, MetricHTTPRequestSizeBytes)
	if sizeMF == nil || len(sizeMF.GetMetric()) != 1 {
		t.Fatal("expected one request-size sample")
	}
	if got := sizeMF.GetMetric()[0].GetHistogram().GetSampleSum(); got != float64(len(body)) {
		t.Errorf("request size sum = %f, want %d", got, len(body))
	}
}

func TestHTTPMetrics_ResponseSize(t *testing.T) {
	body := `{"created":12,"updated":3,"ranked":15}`
	handler, reg := instrumentedHandler(t, http.StatusOK, body)

	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	mf := gatherFamily(t, reg, MetricHTTPResponseSizeBytes)
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatal("expected one response-size sample")
	}
	histogram := mf.GetMetric()[0].GetHistogram()
	if histogram.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", histogram.GetSampleCount())
	}
	if histogram.GetSampleSum() != float64(len(body)) {
		t.Errorf("sample sum = %f, want %d", histogram.GetSampleSum(), len(body))
	}
}

func TestMetricsResponseWriter_AccumulatesWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(rec)

	n1, err := mrw.Write([]byte("ranked "))
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	n2, err := mrw.Write([]byte("matches"))
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	if mrw.size != int64(n1+n2) {
		t.Errorf("size = %d, want %d", mrw.size, n1+n2)
	}
}

func TestMetricsResponseWriter_FirstHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(rec)

	mrw.WriteHeader(http.StatusCreated)
	mrw.WriteHeader(http.StatusInternalServerError)

	if mrw.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want %d", mrw.statusCode, http.StatusCreated)
	}
}

func TestObserveHTTPRequest_DistinctLabelSets(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.ObserveHTTPRequest("POST", "/v1/matches/run", "200", 0.123, 100, 500)
	m.ObserveHTTPRequest("GET", "/v1/matches", "200", 0.456, 0, 300)
	m.ObserveHTTPRequest("POST", "/v1/matches/run", "200", 0.789, 150, 600)

	mf := gatherFamily(t, reg, MetricHTTPRequestsTotal)
	if mf == nil {
		t.Fatal("total metric not found")
	}
	if len(mf.GetMetric()) != 2 {
		t.Errorf("expected 2 distinct label sets, got %d", len(mf.GetMetric()))
	}
}
