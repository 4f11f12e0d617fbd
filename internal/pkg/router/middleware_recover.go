package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/otpgate/otpgate/internal/pkg/stacktrace"
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "panic recovered while serving request",
					"panic", rec,
					"path", r.URL.Path,
					"stack", stacktrace.InternalPaths(debug.Stack()),
				)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
