package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// BearerAuth guards the app routes with the local API token. An empty token
// locks the API instead of opening it.
func BearerAuth(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 || !validBearer(r.Header.Get("Authorization"), want) {
				logger.Debug("rejected request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
				w.Header().Set("WWW-Authenticate", `Bearer realm="nextstep"`)
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validBearer(header string, want []byte) bool {
	got, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) == 1
}
