package api

import (
	"net/http"
	"time"
)

// StatsProvider exposes free-form service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// IntrospectHandler serves read-only views of the running service:
// its statistics and the feature schema of the serving model.
type IntrospectHandler struct {
	deps    Dependencies
	stats   StatsProvider
	started time.Time
}

// NewIntrospectHandler creates a handler; uptime counts from now.
func NewIntrospectHandler(deps Dependencies, stats StatsProvider) *IntrospectHandler {
	return &IntrospectHandler{deps: deps, stats: stats, started: time.Now()}
}

type schemaResponse struct {
	Features []string `json:"features"`
	Count    int      `json:"count"`
}

// HandleStats handles GET /stats. Provider keys are passed through and
// uptimeSeconds is added.
func (h *IntrospectHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out := map[string]interface{}{}
	if h.stats != nil {
		for k, v := range h.stats.GetStats() {
			out[k] = v
		}
	}
	out["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}

// HandleSchema handles GET /schema.
func (h *IntrospectHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	const op = "api.schema"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	schema, ok := h.deps.Schema()
	if !ok {
		writeKindError(w, NewKind(op, ErrUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Features: schema.Features, Count: schema.Len()})
}
