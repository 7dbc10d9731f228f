package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds an authenticated principal to the request context
func WithAuthContext(req *http.Request, userID int64, username, role string) *http.Request {
	actx := &models.AuthenticatedContext{UserID: userID, Username: username, Role: role}
	return req.WithContext(auth.WithPrincipal(req.Context(), actx))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the error envelope and returns its message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) string {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp.Message
}

// SampleUser returns a populated local account
func SampleUser(id int64, username, role string) *models.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.User{
		ID:        id,
		Username:  username,
		Password:  "$2a$04$hash",
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MockAccountService implements AccountService for testing
type MockAccountService struct {
	AuthenticateFunc   func(ctx context.Context, username, password string) (*services.LoginResponse, error)
	RegisterFunc       func(ctx context.Context, input services.RegisterInput) (*services.RegisterResult, error)
	UpdateUserRoleFunc func(ctx context.Context, actx *models.AuthenticatedContext, userID int64, role string) (*models.User, error)
}

func (m *MockAccountService) Authenticate(ctx context.Context, username, password string) (*services.LoginResponse, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, username, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAccountService) Register(ctx context.Context, input services.RegisterInput) (*services.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) UpdateUserRole(ctx context.Context, actx *models.AuthenticatedContext, userID int64, role string) (*models.User, error) {
	if m.UpdateUserRoleFunc != nil {
		return m.UpdateUserRoleFunc(ctx, actx, userID, role)
	}
	return nil, models.ErrInternalServer
}

// MockUserService implements UserService for testing
type MockUserService struct {
	ListUsersFunc         func(ctx context.Context, actx *models.AuthenticatedContext, limit, offset int) ([]*models.User, int64, error)
	GetUserFunc           func(ctx context.Context, actx *models.AuthenticatedContext, id int64) (*models.User, error)
	GetCurrentUserFunc    func(ctx context.Context, actx *models.AuthenticatedContext) (*models.User, error)
	CreateUserFunc        func(ctx context.Context, actx *models.AuthenticatedContext, input services.CreateUserInput) (*models.User, error)
	UpdateCurrentUserFunc func(ctx context.Context, actx *models.AuthenticatedContext, input services.UpdateUserInput) (*models.User, error)
	DeleteUserFunc        func(ctx context.Context, actx *models.AuthenticatedContext, id int64) error
}

func (m *MockUserService) ListUsers(ctx context.Context, actx *models.AuthenticatedContext, limit, offset int) ([]*models.User, int64, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, actx, limit, offset)
	}
	return nil, 0, nil
}

func (m *MockUserService) GetUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, actx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) GetCurrentUser(ctx context.Context, actx *models.AuthenticatedContext) (*models.User, error) {
	if m.GetCurrentUserFunc != nil {
		return m.GetCurrentUserFunc(ctx, actx)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) CreateUser(ctx context.Context, actx *models.AuthenticatedContext, input services.CreateUserInput) (*models.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, actx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) UpdateCurrentUser(ctx context.Context, actx *models.AuthenticatedContext, input services.UpdateUserInput) (*models.User, error) {
	if m.UpdateCurrentUserFunc != nil {
		return m.UpdateCurrentUserFunc(ctx, actx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) DeleteUser(ctx context.Context, actx *models.AuthenticatedContext, id int64) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, actx, id)
	}
	return nil
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	Disabled     bool
	ExchangeFunc func(ctx context.Context, code, verifier string) (*models.ExternalIdentity, error)
}

func (m *MockIdentityProvider) Enabled() bool {
	return !m.Disabled
}

func (m *MockIdentityProvider) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code, verifier string) (*models.ExternalIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code, verifier)
	}
	return nil, models.ErrUnauthorized
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	State    string
	Verifier string
	Token    string
	Cleared  bool
	SaveErr  error
}

func (m *MockSessionStore) SaveOAuthState(w http.ResponseWriter, r *http.Request, state, verifier string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.State, m.Verifier = state, verifier
	return nil
}

func (m *MockSessionStore) ConsumeOAuthState(w http.ResponseWriter, r *http.Request, state string) (string, error) {
	stored := m.State
	m.State = ""
	if stored == "" || stored != state {
		return "", auth.ErrStateMismatch
	}
	return m.Verifier, nil
}

func (m *MockSessionStore) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Token = token
	return nil
}

func (m *MockSessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	m.Token, m.State, m.Verifier = "", "", ""
	m.Cleared = true
	return nil
}

// MockOAuthSignIn implements OAuthSignIn for testing
type MockOAuthSignIn struct {
	SignInFunc func(ctx context.Context, identity *models.ExternalIdentity) (*services.LoginResponse, error)
}

func (m *MockOAuthSignIn) SignIn(ctx context.Context, identity *models.ExternalIdentity) (*services.LoginResponse, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
