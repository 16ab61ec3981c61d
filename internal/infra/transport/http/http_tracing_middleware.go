package http

import (
	"net/http"

	context_ "github.com/mkrupp/authui/internal/infra/context"
	"github.com/mkrupp/authui/internal/util/token"
)

// TraceIDHeader carries the trace ID between the browser, the frontend and
// the auth backend.
const TraceIDHeader = "X-Request-ID"

// TracingMiddleware creates middleware that adds request tracing.
// It uses the X-Request-ID header if present, otherwise generates a new token.
// The trace ID is added to the request context and echoed in the response.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := getTraceID(r)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		ctx := context_.WithTraceID(r.Context(), traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
		return traceID
	}

	traceID, err := token.New()
	if err != nil {
		return ""
	}

	return traceID
}
