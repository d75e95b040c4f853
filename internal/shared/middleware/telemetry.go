package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps a handler with otelhttp instrumentation. It extracts
// incoming W3C trace context and opens the server span; Tracing hangs route
// metrics off it.
func Telemetry(serviceName string) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware(serviceName)
}
