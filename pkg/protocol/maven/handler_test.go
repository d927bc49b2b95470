package maven

import (
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

func newTestHandler(t *testing.T, visibility catalog.Visibility, subType SubType) (*Handler, sqlmock.Sqlmock, catalog.Repository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	sessions, err := identity.OpenSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	cat := catalog.New(db)
	repo := catalog.Repository{
		ID:         uuid.New(),
		Name:       "releases",
		Type:       catalog.RepositoryTypeMaven,
		SubType:    string(subType),
		Active:     true,
		Visibility: visibility,
	}

	h := &Handler{
		repo:    repo,
		backend: backend,
		cat:     cat,
		authn:   identity.NewAuthenticator(cat, identity.NewTokenIssuer(cat), sessions),
		authz:   identity.NewAuthorizer(cat, nil, 0),
	}
	return h, mock, repo
}

func TestHandlePut_SuccessOnFirstUpload(t *testing.T) {
	h, mock, repo := newTestHandler(t, catalog.VisibilityPublic, SubTypeHosted)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, admin, user_manager, storage_manager`)).
		WithArgs("admin").
		WillReturnRows(adminUserRow())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM repository_configs WHERE repository_id = $1 AND key = $2`)).
		WithArgs(repo.ID, PushPolicyKey).
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).
			AddRow([]byte(`{"push_policy":"Mixed","allow_overwrite":true}`), time.Now()))

	req := httptest.NewRequest("PUT", "/org/example/demo/1.0.0/demo-1.0.0.jar", strings.NewReader("bytes"))
	req.SetBasicAuth("admin", "hunter2")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req, "org/example/demo/1.0.0/demo-1.0.0.jar")

	assert.Equal(t, 201, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	exists, err := h.backend.FileExists(req.Context(), repo.ID, "org/example/demo/1.0.0/demo-1.0.0.jar")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestHandlePut_OverwriteAccounting(t *testing.T) {
	h, mock, repo := newTestHandler(t, catalog.VisibilityPublic, SubTypeHosted)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, admin, user_manager, storage_manager`)).
			WithArgs("admin").
			WillReturnRows(adminUserRow())
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM repository_configs WHERE repository_id = $1 AND key = $2`)).
			WithArgs(repo.ID, PushPolicyKey).
			WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).
				AddRow([]byte(`{"push_policy":"Mixed","allow_overwrite":false}`), time.Now()))
	}

	path := "org/example/demo/1.0.0/demo-1.0.0.jar"

	req1 := httptest.NewRequest("PUT", "/"+path, strings.NewReader("bytes"))
	req1.SetBasicAuth("admin", "hunter2")
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, req1, path)
	assert.Equal(t, 201, w1.Code)

	req2 := httptest.NewRequest("PUT", "/"+path, strings.NewReader("more-bytes"))
	req2.SetBasicAuth("admin", "hunter2")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req2, path)
	assert.Equal(t, 409, w2.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePut_PushPolicyRejectsSnapshot(t *testing.T) {
	h, mock, repo := newTestHandler(t, catalog.VisibilityPublic, SubTypeHosted)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, admin, user_manager, storage_manager`)).
		WithArgs("admin").
		WillReturnRows(adminUserRow())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM repository_configs WHERE repository_id = $1 AND key = $2`)).
		WithArgs(repo.ID, PushPolicyKey).
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).
			AddRow([]byte(`{"push_policy":"Release","allow_overwrite":true}`), time.Now()))

	path := "org/example/demo/1.0.0-SNAPSHOT/demo-1.0.0-SNAPSHOT.jar"
	req := httptest.NewRequest("PUT", "/"+path, strings.NewReader("bytes"))
	req.SetBasicAuth("admin", "hunter2")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req, path)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "SNAPSHOT")
}

func TestHandleGet_PrivateRepoAnonymousGetsUnauthorized(t *testing.T) {
	h, _, _ := newTestHandler(t, catalog.VisibilityPrivate, SubTypeHosted)

	req := httptest.NewRequest("GET", "/org/example/demo/1.0.0/demo-1.0.0.jar", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req, "org/example/demo/1.0.0/demo-1.0.0.jar")

	assert.Equal(t, 401, w.Code)
	assert.Equal(t, `Basic realm="nitro-repo"`, w.Header().Get("WWW-Authenticate"))
}

func TestHandleGet_PrivateRepoAuthenticatedReadSucceeds(t *testing.T) {
	h, mock, repo := newTestHandler(t, catalog.VisibilityPrivate, SubTypeHosted)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, admin, user_manager, storage_manager`)).
		WithArgs("admin").
		WillReturnRows(adminUserRow())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM repository_configs WHERE repository_id = $1 AND key = $2`)).
		WithArgs(repo.ID, PushPolicyKey).
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).
			AddRow([]byte(`{"push_policy":"Mixed","allow_overwrite":true}`), time.Now()))

	path := "org/example/demo/1.0.0/demo-1.0.0.jar"
	putReq := httptest.NewRequest("PUT", "/"+path, strings.NewReader("bytes"))
	putReq.SetBasicAuth("admin", "hunter2")
	putW := httptest.NewRecorder()
	h.ServeHTTP(putW, putReq, path)
	require.Equal(t, 201, putW.Code)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, admin, user_manager, storage_manager`)).
		WithArgs("admin").
		WillReturnRows(adminUserRow())

	getReq := httptest.NewRequest("GET", "/"+path, nil)
	getReq.SetBasicAuth("admin", "hunter2")
	getW := httptest.NewRecorder()
	h.ServeHTTP(getW, getReq, path)

	assert.Equal(t, 200, getW.Code)
	assert.Equal(t, "bytes", getW.Body.String())
}

func TestProxyRepository_RejectsWrite(t *testing.T) {
	h, _, _ := newTestHandler(t, catalog.VisibilityPublic, SubTypeProxy)

	req := httptest.NewRequest("PUT", "/org/example/demo/1.0.0/demo-1.0.0.jar", strings.NewReader("bytes"))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req, "org/example/demo/1.0.0/demo-1.0.0.jar")

	assert.Equal(t, 403, w.Code)
}

func TestUnsupportedMethod_ReturnsMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestHandler(t, catalog.VisibilityPublic, SubTypeHosted)

	req := httptest.NewRequest("DELETE", "/org/example/demo/1.0.0/demo-1.0.0.jar", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req, "org/example/demo/1.0.0/demo-1.0.0.jar")

	assert.Equal(t, 405, w.Code)
}

func adminUserRow() *sqlmock.Rows {
	hash, _ := identity.HashPassword("hunter2")
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "admin", "user_manager", "storage_manager",
		"repository_manager", "default_repository_actions", "created_at", "updated_at",
	}).AddRow(1, "admin", "admin@example.com", hash, true, false, false, false, "{}", now, now)
}

