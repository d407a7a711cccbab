package simd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/policy"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHTTPServerHealthz(t *testing.T) {
	h := NewHTTPServer(newTestService(t)).Handler()
	rr := do(t, h, http.MethodGet, "/healthz", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["timestamp"] == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestHTTPServerAdmit(t *testing.T) {
	h := NewHTTPServer(newTestService(t)).Handler()

	rr := do(t, h, http.MethodPost, "/v1/admissions", `{"time": 0, "source": "A", "destination": "C"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	req := body["request"].(map[string]any)
	if req["id"] != "r1" || req["status"] != "routed" {
		t.Fatalf("unexpected request: %v", req)
	}
	path := req["path"].([]any)
	if len(path) != 3 || path[1] != "B" {
		t.Fatalf("expected path through B, got %v", path)
	}
	if req["time_cost"].(float64) != 240 || req["end_time"].(float64) != 240 {
		t.Fatalf("unexpected timing: %v", req)
	}
	if body["free_flow_time_cost"].(float64) != 240 || body["congestion_delay"].(float64) != 0 {
		t.Fatalf("unexpected baseline: %v", body)
	}

	rr = do(t, h, http.MethodPost, "/v1/admissions", `{"time": 1, "source": "A", "destination": "D"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	req = decode(t, rr)["request"].(map[string]any)
	if req["status"] != "no_path" || req["end_time"] != nil {
		t.Fatalf("unexpected no-path request: %v", req)
	}
}

func TestHTTPServerAdmitErrors(t *testing.T) {
	h := NewHTTPServer(newTestService(t)).Handler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing time", `{"source": "A", "destination": "C"}`, http.StatusBadRequest},
		{"missing source", `{"time": 0, "destination": "C"}`, http.StatusBadRequest},
		{"unknown node", `{"time": 0, "source": "A", "destination": "Z"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/admissions", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, rr.Code)
			}
			if decode(t, rr)["error"] == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestHTTPServerRequests(t *testing.T) {
	svc := newTestService(t)
	h := NewHTTPServer(svc).Handler()
	if _, err := svc.Admit(0, "A", "C"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Admit(0, "A", "D"); err != nil {
		t.Fatal(err)
	}

	rr := do(t, h, http.MethodGet, "/v1/requests", "")
	if rr.Code != http.StatusOK || decode(t, rr)["count"].(float64) != 2 {
		t.Fatalf("unexpected list: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/v1/requests?status=no_path", "")
	if decode(t, rr)["count"].(float64) != 1 {
		t.Fatalf("expected one no-path request: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/v1/requests?status=lost", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/v1/requests/r1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if decode(t, rr)["request"].(map[string]any)["destination"] != "C" {
		t.Fatalf("unexpected request: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/v1/requests/r9", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerGeoJSON(t *testing.T) {
	svc := newTestService(t)
	h := NewHTTPServer(svc).Handler()
	if _, err := svc.Admit(0, "A", "C"); err != nil {
		t.Fatal(err)
	}

	rr := do(t, h, http.MethodGet, "/v1/requests/r1/geojson", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	fc, err := geojson.UnmarshalFeatureCollection(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("invalid GeoJSON: %v", err)
	}
	if len(fc.Features) != 3 || !fc.Features[0].Geometry.IsLineString() {
		t.Fatalf("expected route line plus two points, got %d features", len(fc.Features))
	}

	rr = do(t, h, http.MethodGet, "/v1/network/geojson", "")
	fc, err = geojson.UnmarshalFeatureCollection(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("invalid GeoJSON: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(fc.Features))
	}
	traffic, _ := fc.Features[0].PropertyFloat64("traffic")
	if traffic != 1 {
		t.Fatalf("expected traffic 1 on A-B, got %v", traffic)
	}

	rr = do(t, h, http.MethodGet, "/v1/requests/r7/geojson", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerSummaryAndMetrics(t *testing.T) {
	svc := newTestService(t)
	h := NewHTTPServer(svc).Handler()
	for _, at := range []float64{0, 10, 300} {
		if _, err := svc.Admit(at, "A", "C"); err != nil {
			t.Fatal(err)
		}
	}

	rr := do(t, h, http.MethodGet, "/v1/summary", "")
	sum := decode(t, rr)["summary"].(map[string]any)
	if sum["admitted"].(float64) != 3 || sum["clock"].(float64) != 300 {
		t.Fatalf("unexpected summary: %v", sum)
	}

	rr = do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `trafficsim_admissions_total{outcome="routed"} 3`) {
		t.Fatalf("unexpected metrics: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/v1/metrics/timeseries?metric=admissions", "")
	if decode(t, rr)["count"].(float64) != 3 {
		t.Fatalf("expected 3 admission points: %s", rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/v1/metrics/timeseries?metric=admissions&start=5&end=100", "")
	if decode(t, rr)["count"].(float64) != 1 {
		t.Fatalf("expected 1 admission point in window: %s", rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/v1/metrics/timeseries?start=soon", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHTTPServerSummaryStream(t *testing.T) {
	svc := newTestService(t)
	h := NewHTTPServer(svc).Handler()
	if _, err := svc.Admit(0, "A", "C"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/summary/stream?interval_ms=10", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "event: summary\ndata: ") {
		t.Fatalf("expected summary event first, got %q", body)
	}
	// nothing changed after connect, so only the initial event is sent
	if n := strings.Count(body, "event: summary"); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
}

func TestHTTPServerRouting(t *testing.T) {
	h := NewHTTPServer(newTestService(t)).Handler()

	if rr := do(t, h, http.MethodDelete, "/v1/summary", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/unknown", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerAdmissionLimit(t *testing.T) {
	h := NewHTTPServer(newTestService(t), WithRateLimiter(policy.NewRateLimiter(1))).Handler()
	body := `{"time": 0, "source": "A", "destination": "C"}`

	if rr := do(t, h, http.MethodPost, "/v1/admissions", body); rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/admissions", body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/summary", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads should not be limited, got %d", rr.Code)
	}
}

func TestClientKey(t *testing.T) {
	if got := clientKey("192.0.2.1:1234"); got != "192.0.2.1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := clientKey("bufconn"); got != "bufconn" {
		t.Fatalf("unexpected key %q", got)
	}
}
