package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// UserService manages user records on behalf of an authenticated caller.
type UserService struct {
	store       UserStore
	hasher      *pkgauth.PasswordHasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(store UserStore, hasher *pkgauth.PasswordHasher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		store:       store,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateUserInput is an admin request to add a local account.
type CreateUserInput struct {
	Username string
	Password string
	Email    string
	Role     string // defaults to User
}

// UpdateUserInput carries optional changes; nil fields are left alone.
type UpdateUserInput struct {
	Username *string
	Password *string
	Email    *string
}

// ListUsers returns a page of active users and the number of active users
// overall. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actx *models.AuthenticatedContext, limit, offset int) ([]*models.User, int64, error) {
	if !auth.RequiresRole(actx, models.RoleAdmin) {
		return nil, 0, models.ErrForbidden
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.store.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	total, err := s.store.CountActive(ctx)
	if err != nil {
		s.logger.Error("failed to count active users", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return users, total, nil
}

// GetUser returns an active user. Callers may read themselves; admins may
// read anyone.
func (s *UserService) GetUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) (*models.User, error) {
	if actx == nil {
		return nil, models.ErrUnauthorized
	}
	if actx.UserID != id && !auth.RequiresRole(actx, models.RoleAdmin) {
		return nil, models.ErrForbidden
	}
	return s.activeUser(ctx, id)
}

// GetCurrentUser returns the caller's own record.
func (s *UserService) GetCurrentUser(ctx context.Context, actx *models.AuthenticatedContext) (*models.User, error) {
	if actx == nil {
		return nil, models.ErrUnauthorized
	}
	return s.activeUser(ctx, actx.UserID)
}

// CreateUser adds a local account with an explicit role. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actx *models.AuthenticatedContext, input CreateUserInput) (*models.User, error) {
	if !auth.RequiresRole(actx, models.RoleAdmin) {
		return nil, models.ErrForbidden
	}

	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || input.Password == "" {
		return nil, models.ErrMissingCredentials
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(role) {
		return nil, models.ErrInvalidRole
	}

	if err := checkAvailable(ctx, s.store, s.logger, username, email, 0); err != nil {
		return nil, err
	}

	hash, err := hashPassword(s.hasher, s.logger, input.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, &models.User{
		Username: username,
		Password: hash,
		Email:    email,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserRegistered,
		UserID:    userIDString(created.ID),
		Success:   true,
		Metadata:  map[string]string{"role": created.Role, "actor_id": userIDString(actx.UserID)},
	})
	return created, nil
}

// UpdateCurrentUser applies input to the caller's own record. A new password
// is hashed before it is stored.
func (s *UserService) UpdateCurrentUser(ctx context.Context, actx *models.AuthenticatedContext, input UpdateUserInput) (*models.User, error) {
	if actx == nil {
		return nil, models.ErrUnauthorized
	}

	user, err := s.activeUser(ctx, actx.UserID)
	if err != nil {
		return nil, err
	}

	var username, email string
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", models.ErrBadRequest)
		}
	}
	if input.Email != nil {
		email = normalizeEmail(*input.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", models.ErrBadRequest)
		}
	}
	if input.Password != nil && *input.Password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", models.ErrBadRequest)
	}

	if err := checkAvailable(ctx, s.store, s.logger, username, email, user.ID); err != nil {
		return nil, err
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if input.Password != nil {
		hash, err := hashPassword(s.hasher, s.logger, *input.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	updated, err := s.store.Update(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to update user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.Int64("user_id", updated.ID), slog.Bool("password_changed", input.Password != nil))
	return updated, nil
}

// DeleteUser soft-deletes an active user. Admin only; admins cannot delete
// themselves.
func (s *UserService) DeleteUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) error {
	if !auth.RequiresRole(actx, models.RoleAdmin) {
		return models.ErrForbidden
	}
	if actx.UserID == id {
		return fmt.Errorf("%w: cannot delete your own account", models.ErrBadRequest)
	}

	user, err := s.activeUser(ctx, id)
	if err != nil {
		return err
	}

	user.IsDeleted = true
	if _, err := s.store.Update(ctx, user); err != nil {
		s.logger.Error("failed to delete user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserDeleted,
		UserID:    userIDString(id),
		Success:   true,
		Metadata:  map[string]string{"actor_id": userIDString(actx.UserID)},
	})
	return nil
}

// activeUser loads id and hides soft-deleted rows behind ErrNotFound.
func (s *UserService) activeUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.IsDeleted {
		return nil, models.ErrNotFound
	}
	return user, nil
}
