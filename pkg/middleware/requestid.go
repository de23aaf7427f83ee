package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/opsfloor/sophub/pkg/contextkeys"
)

// RequestID assigns each request a unique ID, echoed in the X-Request-ID
// response header and attached to the request context for logging. An
// incoming X-Request-ID header is honored so IDs survive proxies.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
