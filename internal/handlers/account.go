package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountService defines the password sign-in and role management operations
type AccountService interface {
	Authenticate(ctx context.Context, username, password string) (*services.LoginResponse, error)
	Register(ctx context.Context, input services.RegisterInput) (*services.RegisterResult, error)
	UpdateUserRole(ctx context.Context, actx *models.AuthenticatedContext, userID int64, role string) (*models.User, error)
}

// AccountHandler handles /api/account requests
type AccountHandler struct {
	service AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterRequest represents the request body for local sign-up
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email,max=100"`
}

// LoginRequest represents the request body for password login. Missing
// fields are reported as invalid credentials by the service.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PromoteRequest represents the request body for a role change
type PromoteRequest struct {
	Role string `json:"role" validate:"required,oneof=Admin User"`
}

// Register creates a local account
//
// @Router /api/account/register [post]
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Login exchanges a username and password for an access token
//
// @Router /api/account/login [post]
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// PromoteUser changes the role of another user. Admin only.
//
// @Router /api/account/promote/{userId} [put]
func (h *AccountHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	actx := auth.PrincipalFromContext(r.Context())
	if actx == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	userID, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var req PromoteRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateUserRole(r.Context(), actx, userID, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}
