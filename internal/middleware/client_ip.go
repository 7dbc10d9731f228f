package middleware

import (
	"net/http"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// ClientIP stores the caller's address in the request context so audit
// events can record it.
func ClientIP(ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r, ipConfig)
			next.ServeHTTP(w, r.WithContext(pkglogger.WithClientIP(r.Context(), ip)))
		})
	}
}
