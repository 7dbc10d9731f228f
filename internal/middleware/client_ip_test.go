package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestClientIP_StoresAddressInContext(t *testing.T) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"direct peer", "203.0.113.5:4321", "", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:4321", "198.51.100.7", "198.51.100.7"},
		{"untrusted forwarded header", "203.0.113.5:4321", "198.51.100.7", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := ClientIP(ipConfig)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = pkglogger.ClientIPFromContext(r.Context())
			}))

			req := httptest.NewRequest("POST", "/api/account/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}
