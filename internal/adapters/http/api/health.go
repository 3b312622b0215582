package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/farecast/pkg/metrics"
)

// ReadinessProvider reports whether a model is serving.
type ReadinessProvider interface {
	Ready() bool
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	ready   ReadinessProvider
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadinessProvider) *HealthHandler {
	return &HealthHandler{
		ready:   ready,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HandleHealth handles GET /healthz requests.
// If the Accept header asks for "application/openmetrics-text" or
// "text/plain", it returns Prometheus metrics. Otherwise it returns JSON
// status: 200 when a model is serving, 503 while none is loaded.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/openmetrics-text") || strings.Contains(accept, "text/plain") {
		h.metrics.ServeHTTP(w, r)
		return
	}
	if h.ready != nil && h.ready.Ready() {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelLoaded: true})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no_model"})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
