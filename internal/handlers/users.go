package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserService defines the interface for user management
type UserService interface {
	ListUsers(ctx context.Context, actx *models.AuthenticatedContext, limit, offset int) ([]*models.User, int64, error)
	GetUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) (*models.User, error)
	GetCurrentUser(ctx context.Context, actx *models.AuthenticatedContext) (*models.User, error)
	CreateUser(ctx context.Context, actx *models.AuthenticatedContext, input services.CreateUserInput) (*models.User, error)
	UpdateCurrentUser(ctx context.Context, actx *models.AuthenticatedContext, input services.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) error
}

// UserHandler handles /api/users requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin User"`
}

// UpdateUserRequest represents the request body for updating the current
// user. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=20"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	ExternalAccount bool   `json:"external_account"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users  []*UserResponse `json:"users"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
		ExternalAccount: !user.PasswordLoginEnabled(),
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       user.UpdatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers the user routes. The router must already carry
// the authentication middleware.
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/me", h.GetCurrentUser)
		r.Put("/me", h.UpdateCurrentUser)
		r.Get("/{id}", h.GetUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// ListUsers returns a page of active users
//
// @Param limit query int false "page size (1-100)"
// @Param offset query int false "rows to skip"
// @Router /api/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	limit := services.DefaultPageSize
	offset := 0
	var err error
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = parseIntParam(v, 1, services.MaxPageSize); err != nil {
			pkghttp.WriteBadRequest(w, "limit "+err.Error())
			return
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = parseIntParam(v, 0, 1<<30); err != nil {
			pkghttp.WriteBadRequest(w, "offset "+err.Error())
			return
		}
	}

	users, total, err := h.service.ListUsers(r.Context(), actx, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := &ListUsersResponse{
		Users:  make([]*UserResponse, 0, len(users)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, userModelToResponse(u))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CreateUser creates a local account on behalf of an admin
//
// @Router /api/users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), actx, services.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, userModelToResponse(user))
}

// GetCurrentUser returns the caller's own account
//
// @Router /api/users/me [get]
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), actx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// UpdateCurrentUser changes the caller's username, email or password
//
// @Router /api/users/me [put]
func (h *UserHandler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateCurrentUser(r.Context(), actx, services.UpdateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// GetUser retrieves an active user by id. Users may read themselves; admins
// may read anyone.
//
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.GetUser(r.Context(), actx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// DeleteUser soft-deletes a user
//
// @Router /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actx, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.DeleteUser(r.Context(), actx, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// principal returns the authenticated caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) (*models.AuthenticatedContext, bool) {
	actx := auth.PrincipalFromContext(r.Context())
	if actx == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	return actx, true
}
