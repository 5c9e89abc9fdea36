package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderCorrelationID carries the correlation id on requests and responses
const HeaderCorrelationID = "X-Correlation-ID"

// maxCorrelationIDLength caps client supplied ids before they reach the logs
const maxCorrelationIDLength = 128

type contextKey struct{}

// CorrelationID middleware reuses the caller's correlation id or generates one,
// echoes it in the response and stores it in the request context.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" || len(correlationID) > maxCorrelationIDLength {
			correlationID = uuid.New().String()
		}

		w.Header().Set(HeaderCorrelationID, correlationID)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), correlationID)))
	})
}

// WithCorrelationID returns a copy of ctx carrying the correlation id. The
// scheduler tags each tick and each manual check this way.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, contextKey{}, correlationID)
}

// GetCorrelationID extracts the correlation id from ctx, or "" when unset
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
