// Package request provides request ID middleware and accessors.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"claimgate/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware assigns each request an ID, honoring one supplied by an
// upstream proxy, and echoes it back in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
