package routes

import (
	"log/slog"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Account *handlers.AccountHandler
	OAuth   *handlers.OAuthHandler
	Users   *handlers.UserHandler
	Health  *handlers.HealthHandler
}

// Limits holds the public and authenticated rate limits
type Limits struct {
	Auth middleware.RateLimitConfig
	API  middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokens auth.TokenAuthenticator,
	sessions auth.SessionTokenSource,
	limits Limits,
	logger *slog.Logger,
) {
	authLimit := middleware.RateLimitByIP(limits.Auth)

	router.Get("/health", h.Health.Health)

	// Public routes
	router.With(authLimit).Post("/api/account/register", h.Account.Register)
	router.With(authLimit).Post("/api/account/login", h.Account.Login)
	router.Get("/auth/google/login", h.OAuth.GoogleLogin)
	router.With(authLimit).Get("/auth/google/callback", h.OAuth.GoogleCallback)
	router.Post("/auth/logout", h.OAuth.Logout)

	// Protected routes. Role checks happen in the services.
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, sessions, logger))
		r.Use(middleware.RateLimitByUser(limits.API))

		r.Put("/api/account/promote/{userId}", h.Account.PromoteUser)
		r.Route("/api", h.Users.RegisterRoutes)
	})
}
