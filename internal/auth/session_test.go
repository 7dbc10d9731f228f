package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "session-secret-at-least-32-bytes-long"

func newTestSessionManager() *SessionManager {
	return NewSessionManager(SessionConfig{Secret: testSessionSecret, MaxAge: 3600})
}

// carryCookies copies the cookies set on w into a new request.
func carryCookies(w *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManager_Token(t *testing.T) {
	sm := newTestSessionManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveToken(w, httptest.NewRequest("GET", "/", nil), "issued.jwt.token"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, cookies[0].Value, "issued.jwt.token")

	assert.Equal(t, "issued.jwt.token", sm.Token(carryCookies(w)))
}

func TestSessionManager_TokenWithoutCookie(t *testing.T) {
	sm := newTestSessionManager()
	assert.Empty(t, sm.Token(httptest.NewRequest("GET", "/", nil)))
}

func TestSessionManager_RejectsForeignCookie(t *testing.T) {
	sm := newTestSessionManager()
	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveToken(w, httptest.NewRequest("GET", "/", nil), "issued.jwt.token"))

	other := NewSessionManager(SessionConfig{Secret: "a-completely-different-secret-value!", MaxAge: 3600})
	assert.Empty(t, other.Token(carryCookies(w)))
}

func TestSessionManager_OAuthState(t *testing.T) {
	sm := newTestSessionManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveOAuthState(w, httptest.NewRequest("GET", "/", nil), "state-1", "verifier-1"))
	req := carryCookies(w)

	verifier, err := sm.ConsumeOAuthState(httptest.NewRecorder(), req, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", verifier)
}

func TestSessionManager_OAuthStateMismatch(t *testing.T) {
	sm := newTestSessionManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveOAuthState(w, httptest.NewRequest("GET", "/", nil), "state-1", "verifier-1"))

	_, err := sm.ConsumeOAuthState(httptest.NewRecorder(), carryCookies(w), "state-2")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = sm.ConsumeOAuthState(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), "state-1")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestSessionManager_OAuthStateIsOneShot(t *testing.T) {
	sm := newTestSessionManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveOAuthState(w, httptest.NewRequest("GET", "/", nil), "state-1", "verifier-1"))

	consumed := httptest.NewRecorder()
	_, err := sm.ConsumeOAuthState(consumed, carryCookies(w), "state-1")
	require.NoError(t, err)

	_, err = sm.ConsumeOAuthState(httptest.NewRecorder(), carryCookies(consumed), "state-1")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestSessionManager_Clear(t *testing.T) {
	sm := newTestSessionManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SaveToken(w, httptest.NewRequest("GET", "/", nil), "issued.jwt.token"))

	cleared := httptest.NewRecorder()
	require.NoError(t, sm.Clear(cleared, carryCookies(w)))

	cookies := cleared.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.Empty(t, sm.Token(carryCookies(cleared)))
}

func TestSessionKeys_AreDistinctAndStable(t *testing.T) {
	keys := sessionKeys(testSessionSecret)
	require.Len(t, keys, 2)
	assert.Len(t, keys[0], 64)
	assert.Len(t, keys[1], 32)
	assert.NotEqual(t, keys[0][:32], keys[1])
	assert.NotContains(t, string(keys[0]), testSessionSecret)

	again := sessionKeys(testSessionSecret)
	assert.Equal(t, keys, again)
	assert.NotEqual(t, keys, sessionKeys(testSessionSecret+"x"))
}
