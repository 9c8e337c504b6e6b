package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ContextKeyRequestID carries the request correlation ID.
const ContextKeyRequestID contextKey = "riskgov.request_id"

const requestIDHeader = "X-Request-Id"

// RequestID attaches a correlation ID to every request, honoring one supplied
// by the client and minting a UUID otherwise. The ID is echoed back in the
// response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the correlation ID, empty when absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
