package simd

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/policy"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

type HTTPServer struct {
	router  *mux.Router
	service *Service
	limiter *policy.RateLimiter
}

// HTTPOption configures an HTTPServer
type HTTPOption func(*HTTPServer)

// WithRateLimiter throttles POST /v1/admissions per client address
func WithRateLimiter(l *policy.RateLimiter) HTTPOption {
	return func(s *HTTPServer) {
		s.limiter = l
	}
}

func NewHTTPServer(service *Service, opts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		router:  mux.NewRouter(),
		service: service,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/admissions", s.handleAdmit).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/requests", s.handleListRequests).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/requests/{id}", s.handleGetRequest).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/requests/{id}/geojson", s.handleRequestGeoJSON).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/network/geojson", s.handleNetworkGeoJSON).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/summary", s.handleSummary).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/summary/stream", s.handleSummaryStream).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/metrics/timeseries", s.handleTimeSeries).Methods(http.MethodGet)
	s.router.Handle("/metrics", service.MetricsHandler()).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAdmit handles POST /v1/admissions
func (s *HTTPServer) handleAdmit(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r.RemoteAddr)) {
		s.writeError(w, http.StatusTooManyRequests, "admission rate limit exceeded")
		return
	}

	var req struct {
		Time        *float64 `json:"time"`
		Source      string   `json:"source"`
		Destination string   `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Time == nil {
		s.writeError(w, http.StatusBadRequest, "time is required")
		return
	}

	res, err := s.service.Admit(*req.Time, req.Source, req.Destination)
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}

	logger.Debug("request admitted (HTTP)", "request_id", res.Request.ID, "status", res.Request.Status)
	s.writeJSON(w, http.StatusCreated, res)
}

// handleListRequests handles GET /v1/requests?status=
func (s *HTTPServer) handleListRequests(w http.ResponseWriter, r *http.Request) {
	status := models.RequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.RequestStatusRouted, models.RequestStatusNoPath, models.RequestStatusArrived:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown status: "+string(status))
		return
	}

	requests := s.service.Requests(status)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"count":    len(requests),
	})
}

// handleGetRequest handles GET /v1/requests/{id}
func (s *HTTPServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Request(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"request": view})
}

// handleRequestGeoJSON handles GET /v1/requests/{id}/geojson
func (s *HTTPServer) handleRequestGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc, err := s.service.RouteGeoJSON(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}
	s.writeGeoJSON(w, fc)
}

// handleNetworkGeoJSON handles GET /v1/network/geojson
func (s *HTTPServer) handleNetworkGeoJSON(w http.ResponseWriter, _ *http.Request) {
	s.writeGeoJSON(w, s.service.NetworkGeoJSON())
}

// handleSummary handles GET /v1/summary
func (s *HTTPServer) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"summary": s.service.Summary()})
}

// handleTimeSeries handles GET /v1/metrics/timeseries?metric=&start=&end=
func (s *HTTPServer) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseBound(q.Get("start"), math.Inf(-1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := parseBound(q.Get("end"), math.Inf(1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}

	collector := s.service.Collector()
	names := collector.GetMetricNames()
	if name := q.Get("metric"); name != "" {
		names = []string{name}
	}

	points := make([]*models.MetricPoint, 0)
	for _, name := range names {
		for _, labels := range collector.GetLabelsForMetric(name) {
			for _, p := range collector.GetTimeSeries(name, labels) {
				if p.Time < start || p.Time > end {
					continue
				}
				points = append(points, p)
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"points": points,
		"count":  len(points),
	})
}

// handleSummaryStream handles GET /v1/summary/stream (SSE). A summary event
// is sent on connect and then whenever the clock or admission count changes.
func (s *HTTPServer) handleSummaryStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	interval := time.Second
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	last := s.service.Summary()
	s.sendSSEEvent(w, "summary", last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := s.service.Summary()
			if cur.Clock == last.Clock && cur.Admitted == last.Admitted {
				continue
			}
			s.sendSSEEvent(w, "summary", cur)
			last = cur
		}
	}
}

// sendSSEEvent writes one event and flushes it
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to marshal SSE event data", "error", err)
		return
	}
	if _, err := w.Write([]byte("event: " + eventType + "\ndata: " + string(jsonData) + "\n\n")); err != nil {
		logger.Error("failed to write SSE event", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// clientKey strips the port so every connection from one host shares a bucket
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func parseBound(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

// httpStatus maps service errors to response codes
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingNode), errors.Is(err, engine.ErrInvalidTime), graph.IsConfigError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeGeoJSON(w http.ResponseWriter, fc json.Marshaler) {
	data, err := fc.MarshalJSON()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write GeoJSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
