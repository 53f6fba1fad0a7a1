// Package httptransport composes the service's HTTP surface. Handlers stay
// thin and register their own routes; the router owns the middleware chain
// every request passes through.
package httptransport

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"claimgate/internal/platform/middleware"
	request "claimgate/pkg/platform/middleware/request"
	"claimgate/pkg/platform/middleware/requesttime"
)

// Registrar is anything that can attach its routes to a router. All handlers
// implement it, which lets the router stay ignorant of their dependencies.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the single router all handlers share. Route-specific
// middleware (timeouts, auth) belongs in each handler's Register; everything
// here applies to every endpoint.
func NewRouter(logger *slog.Logger, handlers ...Registrar) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
