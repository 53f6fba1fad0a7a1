package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "claimgate/pkg/domain"
	request "claimgate/pkg/platform/middleware/request"
	"claimgate/pkg/requestcontext"
)

// SessionValidator validates a vendor session token and extracts the vendor
// identity. Implemented by the vendorsession service.
type SessionValidator interface {
	ExtractVendorID(tokenString string) (id.VendorID, error)
}

// RequireVendor enforces a Bearer session token and stores the vendor ID in
// the request context for handlers.
func RequireVendor(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, r, logger, "missing token")
				return
			}

			vendorID, err := validator.ExtractVendorID(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid token")
				return
			}

			ctx := requestcontext.WithVendorID(r.Context(), vendorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	ctx := r.Context()
	logger.WarnContext(ctx, "unauthorized vendor access - "+reason,
		"request_id", request.GetRequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`))
}
