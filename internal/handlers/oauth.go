package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"golang.org/x/oauth2"
)

// IdentityProvider is an external sign-in provider
type IdentityProvider interface {
	Enabled() bool
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*models.ExternalIdentity, error)
}

// SessionStore keeps the OAuth state and the issued token between requests
type SessionStore interface {
	SaveOAuthState(w http.ResponseWriter, r *http.Request, state, verifier string) error
	ConsumeOAuthState(w http.ResponseWriter, r *http.Request, state string) (string, error)
	SaveToken(w http.ResponseWriter, r *http.Request, token string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// OAuthSignIn links an external identity to a local account
type OAuthSignIn interface {
	SignIn(ctx context.Context, identity *models.ExternalIdentity) (*services.LoginResponse, error)
}

// OAuthHandler handles the Google sign-in flow and logout
type OAuthHandler struct {
	provider IdentityProvider
	sessions SessionStore
	service  OAuthSignIn
	logger   *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(provider IdentityProvider, sessions SessionStore, service OAuthSignIn, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		sessions: sessions,
		service:  service,
		logger:   logger,
	}
}

// GoogleLogin redirects the browser to the provider consent page
//
// @Router /auth/google/login [get]
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.provider.Enabled() {
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Google sign-in is not configured")
		return
	}

	state, err := pkgauth.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	verifier := oauth2.GenerateVerifier()

	if err := h.sessions.SaveOAuthState(w, r, state, verifier); err != nil {
		h.logger.Error("failed to save oauth state", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(state, verifier), http.StatusFound)
}

// GoogleCallback completes the provider flow, signs the user in and stores the
// token in the session
//
// @Router /auth/google/callback [get]
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("google sign-in was rejected", slog.String("provider_error", providerErr))
		pkghttp.WriteUnauthorized(w, "Google sign-in failed")
		return
	}

	code := query.Get("code")
	if code == "" {
		pkghttp.WriteBadRequest(w, "Missing authorization code")
		return
	}

	verifier, err := h.sessions.ConsumeOAuthState(w, r, query.Get("state"))
	if err != nil {
		if errors.Is(err, auth.ErrStateMismatch) {
			pkghttp.WriteBadRequest(w, "Invalid OAuth state")
			return
		}
		h.logger.Error("failed to read oauth state", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		if errors.Is(err, models.ErrMissingEmail) {
			writeServiceError(w, err)
			return
		}
		h.logger.Warn("google code exchange failed", slog.Any("error", err))
		pkghttp.WriteUnauthorized(w, "Google sign-in failed")
		return
	}

	resp, err := h.service.SignIn(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.sessions.SaveToken(w, r, resp.AccessToken); err != nil {
		h.logger.Error("failed to store token in session", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Logout clears the session. Issued tokens stay valid until they expire.
//
// @Router /auth/logout [post]
func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("failed to clear session", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
