package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const principalContextKey contextKey = "principal"

// TokenAuthenticator turns a raw session token into a caller context.
type TokenAuthenticator interface {
	Authenticate(token string) (*models.AuthenticatedContext, error)
}

// SessionTokenSource returns the token stored in the caller's session, if any.
type SessionTokenSource interface {
	Token(r *http.Request) string
}

// Middleware validates the bearer token, or the session token when no
// Authorization header is sent, and stores the caller context on the request.
// sessions may be nil.
func Middleware(tokens TokenAuthenticator, sessions SessionTokenSource, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r, sessions)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Missing or malformed authorization")
				return
			}

			actx, err := tokens.Authenticate(token)
			if err != nil {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "token rejected",
					slog.String("reason", TokenFailureReason(err)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), actx)))
		})
	}
}

func extractToken(r *http.Request, sessions SessionTokenSource) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if sessions == nil {
			return "", false
		}
		token := sessions.Token(r)
		return token, token != ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// WithPrincipal returns a copy of ctx carrying actx.
func WithPrincipal(ctx context.Context, actx *models.AuthenticatedContext) context.Context {
	return context.WithValue(ctx, principalContextKey, actx)
}

// PrincipalFromContext returns the caller stored by Middleware, or nil.
func PrincipalFromContext(ctx context.Context) *models.AuthenticatedContext {
	actx, ok := ctx.Value(principalContextKey).(*models.AuthenticatedContext)
	if !ok {
		return nil
	}
	return actx
}

// RequiresRole reports whether the caller holds role. A nil caller holds no role.
func RequiresRole(actx *models.AuthenticatedContext, role string) bool {
	return actx != nil && actx.Role == role
}
