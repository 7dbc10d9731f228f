package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// UserStore is the persistence contract for users. FindBy* return
// models.ErrNotFound on a miss and include soft-deleted rows; List excludes
// them. Count counts every row and CountActive only rows that are not
// soft-deleted.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	IssueToken(user *models.User) (*auth.IssuedToken, error)
	ValidityWindow() time.Duration
}

// LoginResponse is returned by every successful sign-in path.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

func newLoginResponse(issued *auth.IssuedToken, user *models.User, validity time.Duration) *LoginResponse {
	return &LoginResponse{
		AccessToken: issued.Token,
		Username:    user.Username,
		ExpiresIn:   int64(validity / time.Second),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// hashPassword hashes a new password. Over-long input is the caller's fault;
// anything else is an internal failure.
func hashPassword(hasher *pkgauth.PasswordHasher, logger *slog.Logger, password string) (string, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		if errors.Is(err, pkgauth.ErrPasswordTooLong) {
			return "", models.ErrPasswordTooLong
		}
		logger.Error("failed to hash password", slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	return hash, nil
}
