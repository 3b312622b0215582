package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/farecast/pkg/metrics"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const microsPerMilli = 1000

// MetricsMiddleware records request count, latency and error class for
// endpoint. It also echoes or assigns a request id and turns a handler
// panic into a 500.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				metrics.RecordErrorByComponent("http", "panic")
				if !rec.wrote {
					writeError(rec, http.StatusInternalServerError, "internal", fmt.Errorf("panic: %v", p))
				}
			}
			observe(endpoint, r.Method, rec.status, start)
		}()
		next.ServeHTTP(rec, r)
	}
}

func observe(endpoint, method string, status int, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / microsPerMilli
	code := strconv.Itoa(status)
	metrics.RecordHTTPRequest(endpoint, method, code)
	metrics.RecordHTTPRequestDuration(endpoint, method, code, ms)
	if status < http.StatusBadRequest {
		return
	}
	class := errorClass(status)
	metrics.RecordErrorByEndpoint(endpoint, method, class)
	severity := "medium"
	if status >= http.StatusInternalServerError {
		severity = "high"
	}
	metrics.RecordErrorByType(class, severity)
}

// errorClass buckets an HTTP status into an error label.
func errorClass(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// statusRecorder remembers the status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.wrote = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wrote = true
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
