package router

import (
	"net/http"
	"strings"

	"github.com/otpgate/otpgate/internal/pkg/jwt"
)

// middlewareAuthentication verifies the Bearer token on every endpoint not
// listed as public and stores the resulting claims in the request context.
func middlewareAuthentication(verifier jwt.JWT, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if paths, ok := public[r.Method]; ok {
				if _, ok := paths[matchedRoutePath(r)]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			authz := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(authz, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeJSON(w, errorResponse{Message: "Authentication credentials are missing"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				writeJSON(w, errorResponse{Message: "Authentication credentials are invalid or expired"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
