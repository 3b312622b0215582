// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/farecast/internal/app"
	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/trip"
	"github.com/okian/farecast/internal/domain/types"
)

// Default limits for request handling.
const (
	defaultMaxBatchSize = 10_000
	maxBodyBytes        = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Predict(ctx context.Context, r trip.Record) (types.Prediction, error)
	PredictBatch(ctx context.Context, records []trip.Record) ([]types.Prediction, error)

	// Schema returns the serving feature schema; false when no model is loaded.
	Schema() (features.Schema, bool)
	// Ready reports whether predictions can be served.
	Ready() bool
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	healthHandler     *HealthHandler
	introspectHandler *IntrospectHandler
	predictHandler    *PredictHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBatchSize caps the number of trips per batch request.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.predictHandler.maxBatch = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(deps),
		introspectHandler: NewIntrospectHandler(deps, statsProvider),
		predictHandler:    NewPredictHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.introspectHandler.HandleStats, "stats"))
	mux.HandleFunc("/schema", MetricsMiddleware(s.introspectHandler.HandleSchema, "schema"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/predict/batch", MetricsMiddleware(s.predictHandler.HandlePredictBatch, "predict_batch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps a service error onto an API kind.
func classify(err error) error {
	var pe *trip.ParseError
	switch {
	case errors.As(err, &pe):
		return ErrBadRequest
	case errors.Is(err, service.ErrNoModel), errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// writeKindError writes err with the status its kind maps to.
func writeKindError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrBatchTooLong):
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large", err)
	case errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
