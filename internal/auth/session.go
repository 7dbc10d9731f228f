package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const (
	SessionName = "warden_session"

	sessionKeyToken    = "token"
	sessionKeyState    = "oauth_state"
	sessionKeyVerifier = "oauth_verifier"
)

// ErrStateMismatch is returned when the OAuth callback state does not match
// the value stored when the handshake started.
var ErrStateMismatch = errors.New("oauth state mismatch")

// SessionConfig configures the session cookie.
type SessionConfig struct {
	Secret string
	Secure bool
	MaxAge int // seconds
}

// SessionManager keeps per-browser state in a signed and encrypted cookie:
// the pending OAuth handshake and the most recently issued session token.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(cfg SessionConfig) *SessionManager {
	store := sessions.NewCookieStore(sessionKeys(cfg.Secret)...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// SaveOAuthState records the state and PKCE verifier of a handshake in progress.
func (sm *SessionManager) SaveOAuthState(w http.ResponseWriter, r *http.Request, state, verifier string) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Values[sessionKeyState] = state
	session.Values[sessionKeyVerifier] = verifier
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ConsumeOAuthState checks state against the stored value and returns the
// PKCE verifier. The stored handshake is removed whether or not it matches.
func (sm *SessionManager) ConsumeOAuthState(w http.ResponseWriter, r *http.Request, state string) (string, error) {
	session, _ := sm.store.Get(r, SessionName)
	stored, _ := session.Values[sessionKeyState].(string)
	verifier, _ := session.Values[sessionKeyVerifier].(string)

	delete(session.Values, sessionKeyState)
	delete(session.Values, sessionKeyVerifier)
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	if stored == "" || state == "" || stored != state {
		return "", ErrStateMismatch
	}
	return verifier, nil
}

// SaveToken stores the session token for cookie-based callers.
func (sm *SessionManager) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Values[sessionKeyToken] = token
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Token returns the stored session token, or "" when there is none.
func (sm *SessionManager) Token(r *http.Request) string {
	session, err := sm.store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionKeyToken].(string)
	return token
}

// Clear expires the session cookie. The token itself stays valid until it expires.
func (sm *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// sessionKeys derives independent HMAC and AES-256 keys from secret.
func sessionKeys(secret string) [][]byte {
	return [][]byte{
		deriveKey(secret, "warden session hash", 64),
		deriveKey(secret, "warden session block", 32),
	}
}

func deriveKey(secret, info string, size int) []byte {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		// HKDF-SHA256 only fails past 255*32 bytes of output.
		panic(fmt.Sprintf("derive session key: %v", err))
	}
	return key
}
