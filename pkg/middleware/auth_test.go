package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) (*identity.Authenticator, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cat := catalog.New(db)
	tokens := identity.NewTokenIssuer(cat)

	sessionPath := filepath.Join(t.TempDir(), "sessions.db")
	sessions, err := identity.OpenSessionStore(sessionPath)
	require.NoError(t, err)

	authn := identity.NewAuthenticator(cat, tokens, sessions)

	cleanup := func() {
		db.Close()
		os.Remove(sessionPath)
	}
	return authn, mock, cleanup
}

func TestGetPrincipal_NilWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	assert.Nil(t, GetPrincipal(req))
}

func TestGetPrincipal_ReturnsAttached(t *testing.T) {
	principal := &identity.Principal{User: &catalog.User{ID: 1}}
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), PrincipalContextKey, principal)
	req = req.WithContext(ctx)

	got := GetPrincipal(req)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.User.ID)
}

func TestRequireAdmin_NoPrincipal(t *testing.T) {
	handlerCalled := false
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handlerCalled)
}

func TestRequireAdmin_NonAdminUser(t *testing.T) {
	handlerCalled := false
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	principal := &identity.Principal{User: &catalog.User{ID: 1, Permissions: catalog.Permissions{Admin: false}}}
	ctx := context.WithValue(req.Context(), PrincipalContextKey, principal)
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handlerCalled)
}

func TestRequireAdmin_AdminUser(t *testing.T) {
	handlerCalled := false
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	principal := &identity.Principal{User: &catalog.User{ID: 1, Permissions: catalog.Permissions{Admin: true}}}
	ctx := context.WithValue(req.Context(), PrincipalContextKey, principal)
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestAuthMiddleware_Optional_NoCredential(t *testing.T) {
	authn, _, cleanup := newTestAuthenticator(t)
	defer cleanup()

	m := NewAuthMiddleware(authn, true)
	handlerCalled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		assert.Nil(t, GetPrincipal(r))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestAuthMiddleware_Required_NoCredential(t *testing.T) {
	authn, _, cleanup := newTestAuthenticator(t)
	defer cleanup()

	m := NewAuthMiddleware(authn, false)
	handlerCalled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, handlerCalled)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddleware_BasicAuth_Success(t *testing.T) {
	authn, mock, cleanup := newTestAuthenticator(t)
	defer cleanup()

	passwordHash, err := identity.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	now := time.Now()
	userRows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "admin", "user_manager",
		"storage_manager", "repository_manager", "default_repository_actions",
		"created_at", "updated_at",
	}).AddRow(int64(7), "alice", "alice@example.com", passwordHash, false, false, false, false, "{}", now, now)

	// The presented password doesn't look like a token (no "nitro_" prefix),
	// so Validate rejects it without a DB round trip and auth falls through
	// to the username/password path directly.
	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1 OR email = \\$1").
		WithArgs("alice").
		WillReturnRows(userRows)

	m := NewAuthMiddleware(authn, false)
	var principal *identity.Principal
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = GetPrincipal(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetBasicAuth("alice", "correct horse battery staple")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, principal)
	require.NotNil(t, principal.User)
	assert.Equal(t, "alice", principal.User.Username)
	assert.Nil(t, principal.Token)
}

func TestAuthMiddleware_BasicAuth_WrongPassword(t *testing.T) {
	authn, mock, cleanup := newTestAuthenticator(t)
	defer cleanup()

	passwordHash, err := identity.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	now := time.Now()
	userRows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "admin", "user_manager",
		"storage_manager", "repository_manager", "default_repository_actions",
		"created_at", "updated_at",
	}).AddRow(int64(7), "alice", "alice@example.com", passwordHash, false, false, false, false, "{}", now, now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1 OR email = \\$1").
		WithArgs("alice").
		WillReturnRows(userRows)

	m := NewAuthMiddleware(authn, false)
	handlerCalled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetBasicAuth("alice", "wrong password")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, handlerCalled)
}
