package router

import (
	"net/http"
	"strings"

	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/uid"
)

const headerCorrelationID = "X-Correlation-ID"

// middlewareCorrelationID ensures every request carries a correlation id,
// accepting one from the client or generating a fresh one.
func middlewareCorrelationID(uuid uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := strings.TrimSpace(r.Header.Get(headerCorrelationID))
			if cid == "" {
				cid = strings.TrimSpace(r.Header.Get("X-Request-ID"))
			}
			if cid == "" {
				cid = uuid.Generate()
			}

			ctx := instrument.SetCorrelationID(r.Context(), cid)
			w.Header().Set(headerCorrelationID, cid)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
