package database

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraint names declared in migrations.
const (
	ConstraintUsersUsername = "users_username_key"
	ConstraintUsersEmail    = "users_email_key"
)

// MapPostgresError translates driver errors into model sentinels. Unique
// violations on the users table map to the specific username or email error.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case ConstraintUsersUsername:
				return models.ErrUsernameTaken
			case ConstraintUsersEmail:
				return models.ErrEmailTaken
			}
			return models.ErrConflict
		case "23502", "23514": // not_null_violation, check_violation
			return fmt.Errorf("%w: %s", models.ErrBadRequest, pgErr.Message)
		}
	}

	return err
}
