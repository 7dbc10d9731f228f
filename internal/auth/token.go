package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig holds the signing and validation parameters for session tokens.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Validity time.Duration
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenManager issues and validates HS256 session tokens whose identity
// claims are encrypted with a ClaimCipher.
type TokenManager struct {
	cfg    TokenConfig
	cipher *ClaimCipher
	now    func() time.Time
}

func NewTokenManager(cfg TokenConfig, cipher *ClaimCipher) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		cipher: cipher,
		now:    time.Now,
	}
}

// ValidityWindow is how long an issued token stays valid.
func (tm *TokenManager) ValidityWindow() time.Duration {
	return tm.cfg.Validity
}

// IssueToken signs a token for user. Subject, name, role and email are
// encrypted before they are placed in the payload.
func (tm *TokenManager) IssueToken(user *models.User) (*IssuedToken, error) {
	subject, err := tm.cipher.Encrypt(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt subject: %w", err)
	}
	name, err := tm.cipher.Encrypt(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt name: %w", err)
	}
	role, err := tm.cipher.Encrypt(user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt role: %w", err)
	}
	email, err := tm.cipher.Encrypt(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt email: %w", err)
	}

	now := tm.now()
	expiresAt := now.Add(tm.cfg.Validity)
	jti := uuid.New().String()

	claims := &models.TokenClaims{
		Name:  name,
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    tm.cfg.Issuer,
			Audience:  jwt.ClaimStrings{tm.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks signature, algorithm, issuer, audience and expiry and
// returns the still-encrypted claims. Every failure wraps models.ErrUnauthorized.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(tm.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.cfg.Issuer),
		jwt.WithAudience(tm.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}

	return claims, nil
}

// Authenticate validates tokenString and decrypts its identity claims into
// the caller context used by protected operations.
func (tm *TokenManager) Authenticate(tokenString string) (*models.AuthenticatedContext, error) {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	subject, err := tm.cipher.Decrypt(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %w", models.ErrUnauthorized, err)
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %w", models.ErrUnauthorized, ErrInvalidTokenContent)
	}
	username, err := tm.cipher.Decrypt(claims.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: name: %w", models.ErrUnauthorized, err)
	}
	role, err := tm.cipher.Decrypt(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: role: %w", models.ErrUnauthorized, err)
	}

	return &models.AuthenticatedContext{
		UserID:   userID,
		Username: username,
		Role:     role,
	}, nil
}

// TokenFailureReason classifies a ValidateToken or Authenticate error for logs.
func TokenFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "invalid_signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid_issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "invalid_audience"
	case errors.Is(err, ErrInvalidTokenContent):
		return "invalid_content"
	default:
		return "invalid"
	}
}
