package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// Messages shown to clients for the specific authentication failures.
const (
	MsgInvalidCredentials    = "Invalid username or password"
	MsgAccountDeleted        = "User does not exist"
	MsgPasswordLoginDisabled = "This account was created using Google Sign-In. Please use 'Sign in with Google' button to login."
	MsgMissingCredentials    = "Username and password are required"
	MsgUsernameTaken         = "Username already exists"
	MsgEmailTaken            = "Email already registered"
	MsgMissingEmail          = "Unable to retrieve email from Google"
	MsgInvalidRole           = "Role must be Admin or User"
	MsgPasswordTooLong       = "Password must be at most 72 bytes"
)

// writeServiceError maps a service error onto the JSON error envelope. The
// specific errors are matched before the category they wrap.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, MsgInvalidCredentials)
	case errors.Is(err, models.ErrAccountDeleted):
		pkghttp.WriteUnauthorized(w, MsgAccountDeleted)
	case errors.Is(err, models.ErrPasswordLoginDisabled):
		pkghttp.WriteUnauthorized(w, MsgPasswordLoginDisabled)
	case errors.Is(err, models.ErrMissingCredentials):
		pkghttp.WriteBadRequest(w, MsgMissingCredentials)
	case errors.Is(err, models.ErrMissingEmail):
		pkghttp.WriteBadRequest(w, MsgMissingEmail)
	case errors.Is(err, models.ErrPasswordTooLong):
		pkghttp.WriteBadRequest(w, MsgPasswordTooLong)
	case errors.Is(err, models.ErrInvalidRole):
		pkghttp.WriteBadRequest(w, MsgInvalidRole)
	case errors.Is(err, models.ErrUsernameTaken):
		pkghttp.WriteConflict(w, MsgUsernameTaken)
	case errors.Is(err, models.ErrEmailTaken):
		pkghttp.WriteConflict(w, MsgEmailTaken)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have permission to perform this action")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
