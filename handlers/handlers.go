// Package handlers provides the HTTP request handlers for the service routes.
// It includes the greeting, health check, and metrics rendering handlers plus
// JSON response helpers. Handler-level failures are converted to JSON error
// responses here; nothing in this package terminates the process.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/giygas/pulse-api/health"
	"github.com/giygas/pulse-api/logging"
	"github.com/giygas/pulse-api/metrics"
)

// RespondWithJSON writes a JSON response with the given status code
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// GreetingResponse is the payload served on the root route
type GreetingResponse struct {
	Service string `json:"service"`
	Message string `json:"message"`
	Docs    string `json:"docs"`
}

// Greeting serves the static root payload
func Greeting(serviceName string) http.HandlerFunc {
	payload := GreetingResponse{
		Service: serviceName,
		Message: "Hello! This service exposes /health and /metrics for cluster probes.",
		Docs:    "https://github.com/giygas/pulse-api",
	}

	return func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, payload)
	}
}

// HealthCheck serves the aggregated health report. DOWN maps to 503 so that
// orchestrator probes stop routing traffic; UP and DEGRADED stay 200.
func HealthCheck(reporter *health.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := reporter.Check(r.Context())

		code := http.StatusOK
		if report.Status == health.StatusDown {
			code = http.StatusServiceUnavailable
		}

		RespondWithJSON(w, code, report)
	}
}

// Metrics renders the registry in the text exposition format. Sampling
// failures of individual collectors never reach here (unavailable metrics are
// omitted at gather time); a render error is a genuine bug and surfaces as 500.
func Metrics(registry *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := registry.Render()
		if err != nil {
			logging.Error("Failed to render metrics", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to render metrics")
			return
		}

		w.Header().Set("Content-Type", metrics.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}

// NotFound is the fallback for unmatched paths
func NotFound(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, "Route not found")
}

// MethodNotAllowed is the fallback for matched paths with unsupported methods
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
