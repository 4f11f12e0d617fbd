package router

import (
	"net/http"

	"github.com/otpgate/otpgate/internal/pkg/config"
)

// middlewareMaintenance rejects routes listed under app.maintenance.endpoints
// with a 503 response. Entries use the "METHOD /route/path" form.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if len(blocked) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			current := r.Method + " " + matchedRoutePath(r)
			for _, endpoint := range blocked {
				if endpoint == current {
					writeJSON(w, errorResponse{Message: "This endpoint is under maintenance, please try again later"},
						http.StatusServiceUnavailable)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
