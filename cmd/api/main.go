package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	middlewareCustom "github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx := context.Background()

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.Pool, logger); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)

	// Initialize credential primitives
	hasher := pkgauth.NewPasswordHasher(cfg.Auth.BcryptCost)
	cipher, err := auth.NewClaimCipher(cfg.Auth.EncryptionKey, cfg.Auth.EncryptionIV)
	if err != nil {
		logger.Error("failed to initialize claim encryption", slog.Any("error", err))
		os.Exit(1)
	}
	tokenManager := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		Validity: cfg.Auth.TokenValidity(),
	}, cipher)
	sessionManager := auth.NewSessionManager(auth.SessionConfig{
		Secret: cfg.Auth.SessionSecret,
		Secure: cfg.Auth.SessionSecure,
		MaxAge: int(cfg.Auth.TokenValidity() / time.Second),
	})
	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	})
	if !google.Enabled() {
		logger.Warn("google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	// Account notifications
	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.Notify.Provider == "ses" {
		sesNotifier, err := services.NewSESNotifier(ctx, cfg.Notify.AWSRegion, cfg.Notify.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize SES notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	authService := services.NewAuthService(userRepo, hasher, tokenManager, notifier, logger, auditLogger)
	oauthService := services.NewOAuthService(userRepo, tokenManager, notifier, logger, auditLogger)
	userService := services.NewUserService(userRepo, hasher, logger, auditLogger)

	// Initialize handlers
	h := routes.Handlers{
		Account: handlers.NewAccountHandler(authService),
		OAuth:   handlers.NewOAuthHandler(google, sessionManager, oauthService, logger),
		Users:   handlers.NewUserHandler(userService),
		Health:  handlers.NewHealthHandler(db, logger),
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	limits := routes.Limits{
		Auth: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.RateLimitPerMinute, IPConfig: ipConfig},
		API:  middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.APIRateLimitPerMinute, IPConfig: ipConfig},
	}

	// Setup router. Client IPs come from pkghttp.ExtractClientIP, which only
	// trusts forwarding headers from TRUSTED_PROXIES.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.ClientIP(ipConfig))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	routes.RegisterRoutes(router, h, tokenManager, sessionManager, limits, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
