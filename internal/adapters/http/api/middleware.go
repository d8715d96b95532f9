// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// Recover turns a panic escaping a handler into the generic recoverable
// error view, offering a full reset.
func Recover(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.RecordRenderFailure()
			err := WrapKind("api.recover", ErrRenderFailed, fmt.Errorf("panic: %v", rec))
			log.Error(r.Context(), "handler panicked",
				logger.String("path", r.URL.Path),
				logger.Error(err),
				logger.String("stack", string(debug.Stack())))
			if wrapped.wrote {
				return
			}
			writeJSON(w, http.StatusInternalServerError, renderFailure{
				Code:    renderFailureCode,
				Message: "Something went wrong. Start over to continue.",
				Actions: []string{"reset"},
			})
		}()
		next.ServeHTTP(wrapped, r)
	})
}

// renderFailureCode is the error code of the recovery view.
const renderFailureCode = "render_failure"

type renderFailure struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.wrote = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
