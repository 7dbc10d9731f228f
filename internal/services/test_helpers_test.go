package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory UserStore that enforces unique usernames and emails.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, users: make(map[int64]*models.User)}
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (m *memStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memStore) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.users))
	for id, u := range m.users {
		if !u.IsDeleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*models.User, 0)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		c := *m.users[ids[i]]
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memStore) CountActive(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if !u.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(user); err != nil {
		return nil, err
	}
	c := *user
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.nextID++
	m.users[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memStore) Update(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return nil, models.ErrNotFound
	}
	if err := m.checkUnique(user); err != nil {
		return nil, err
	}
	c := *user
	c.UpdatedAt = time.Now()
	m.users[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memStore) checkUnique(user *models.User) error {
	for id, u := range m.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return models.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return models.ErrEmailTaken
		}
	}
	return nil
}

// MockUserStore lets a test override individual store calls.
type MockUserStore struct {
	*memStore
	FindByIDFunc       func(ctx context.Context, id int64) (*models.User, error)
	FindByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	FindByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	CountFunc          func(ctx context.Context) (int64, error)
	CountActiveFunc    func(ctx context.Context) (int64, error)
	InsertFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.memStore.FindByID(ctx, id)
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return m.memStore.FindByUsername(ctx, username)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return m.memStore.FindByEmail(ctx, email)
}

func (m *MockUserStore) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return m.memStore.Count(ctx)
}

func (m *MockUserStore) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx)
	}
	return m.memStore.CountActive(ctx)
}

func (m *MockUserStore) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, user)
	}
	return m.memStore.Insert(ctx, user)
}

func (m *MockUserStore) Update(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user)
	}
	return m.memStore.Update(ctx, user)
}

// recordingNotifier captures notifications and can be told to fail.
type recordingNotifier struct {
	mu          sync.Mutex
	reactivated []int64
	roleChanged []int64
	err         error
}

func (n *recordingNotifier) AccountReactivated(ctx context.Context, user *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reactivated = append(n.reactivated, user.ID)
	return n.err
}

func (n *recordingNotifier) RoleChanged(ctx context.Context, user *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roleChanged = append(n.roleChanged, user.ID)
	return n.err
}

type testEnv struct {
	store    *memStore
	hasher   *pkgauth.PasswordHasher
	tokens   *auth.TokenManager
	notifier *recordingNotifier
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cipher, err := auth.NewClaimCipher("0123456789abcdef0123456789abcdef", "fedcba9876543210")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:  newMemStore(),
		hasher: pkgauth.NewPasswordHasher(bcrypt.MinCost),
		tokens: auth.NewTokenManager(auth.TokenConfig{
			Secret:   "test-secret-key-at-least-32-bytes!!",
			Issuer:   "warden-test",
			Audience: "warden-clients",
			Validity: 30 * time.Minute,
		}, cipher),
		notifier: &recordingNotifier{},
		logger:   logger,
		audit:    pkglogger.NewAuditLogger(logger),
	}
}

// captureAudit routes audit events into a buffer as JSON lines.
func (e *testEnv) captureAudit() *bytes.Buffer {
	var buf bytes.Buffer
	e.audit = pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	return &buf
}

func auditEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func (e *testEnv) authService(store UserStore) *AuthService {
	return NewAuthService(store, e.hasher, e.tokens, e.notifier, e.logger, e.audit)
}

func (e *testEnv) oauthService(store UserStore) *OAuthService {
	return NewOAuthService(store, e.tokens, e.notifier, e.logger, e.audit)
}

func (e *testEnv) userService(store UserStore) *UserService {
	return NewUserService(store, e.hasher, e.logger, e.audit)
}

// seedUser stores a user with a hashed password ("" keeps it an external account).
func (e *testEnv) seedUser(t *testing.T, username, password, email, role string) *models.User {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = e.hasher.Hash(password)
		require.NoError(t, err)
	}
	u, err := e.store.Insert(context.Background(), &models.User{
		Username: username,
		Password: hash,
		Email:    email,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) softDelete(t *testing.T, id int64) {
	t.Helper()
	u, err := e.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	u.IsDeleted = true
	_, err = e.store.Update(context.Background(), u)
	require.NoError(t, err)
}

func adminCtx(id int64) *models.AuthenticatedContext {
	return &models.AuthenticatedContext{UserID: id, Username: "admin", Role: models.RoleAdmin}
}

func userCtx(id int64) *models.AuthenticatedContext {
	return &models.AuthenticatedContext{UserID: id, Username: "user", Role: models.RoleUser}
}

func strPtr(s string) *string { return &s }
