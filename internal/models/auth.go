package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload. Name, Role, Email and the registered
// Subject carry ciphertext, never raw values.
type TokenClaims struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthenticatedContext is the caller identity recovered from a validated token.
// It is produced once at the request boundary and passed explicitly to
// protected operations.
type AuthenticatedContext struct {
	UserID   int64
	Username string
	Role     string
}

// ExternalIdentity is what an external identity provider vouches for.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
