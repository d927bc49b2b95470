package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	_ "github.com/lib/pq" // registers the "postgres" driver
)

// Catalog is the hand-SQL accessor for every catalog entity. It holds the
// database/sql pool directly rather than a typed query builder, per the
// the decision to commit to hand-SQL over an ORM.
type Catalog struct {
	db *sql.DB
}

// New wraps an already-opened *sql.DB. Callers are expected to have opened
// it with sql.Open("postgres", dsn) and to own its lifecycle.
func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) DB() *sql.DB { return c.db }

// ---- Users ----------------------------------------------------------------

func (c *Catalog) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, email, password_hash, admin, user_manager,
			storage_manager, repository_manager, default_repository_actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash,
		u.Permissions.Admin, u.Permissions.UserManager, u.Permissions.StorageManager, u.Permissions.RepositoryManager,
		pq.Array(actionsToStrings(u.Permissions.DefaultRepositoryActions)),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already exists", ErrConflict)
	}
	return err
}

func (c *Catalog) GetUserByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, admin, user_manager, storage_manager,
			repository_manager, default_repository_actions, created_at, updated_at
		FROM users WHERE id = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, query, id))
}

func (c *Catalog) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, admin, user_manager, storage_manager,
			repository_manager, default_repository_actions, created_at, updated_at
		FROM users WHERE username = $1 OR email = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, query, identifier))
}

func (c *Catalog) scanUser(row *sql.Row) (*User, error) {
	var u User
	var actions []string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Permissions.Admin, &u.Permissions.UserManager, &u.Permissions.StorageManager, &u.Permissions.RepositoryManager,
		pq.Array(&actions), &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Permissions.DefaultRepositoryActions = stringsToActions(actions)
	return &u, nil
}

func (c *Catalog) AnyUserExists(ctx context.Context) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users LIMIT 1)`).Scan(&exists)
	return exists, err
}

// ListUsers returns a page of users ordered by username, for the admin
// user-management surface.
func (c *Catalog) ListUsers(ctx context.Context, params PageParams) (Page[User], error) {
	size, _, offset := params.normalize()

	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return Page[User]{}, err
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, admin, user_manager, storage_manager,
			repository_manager, default_repository_actions, created_at, updated_at
		FROM users ORDER BY username LIMIT $1 OFFSET $2
	`, size, offset)
	if err != nil {
		return Page[User]{}, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var actions []string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.Permissions.Admin, &u.Permissions.UserManager, &u.Permissions.StorageManager, &u.Permissions.RepositoryManager,
			pq.Array(&actions), &u.CreatedAt, &u.UpdatedAt); err != nil {
			return Page[User]{}, err
		}
		u.Permissions.DefaultRepositoryActions = stringsToActions(actions)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return Page[User]{}, err
	}
	return newPage(out, total, params), nil
}

// SetUserPermissions overwrites a user's flat permission record, the only
// mutation path for admin/user_manager/storage_manager/repository_manager
// and the default per-repository action set.
func (c *Catalog) SetUserPermissions(ctx context.Context, userID int64, p Permissions) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE users SET admin = $2, user_manager = $3, storage_manager = $4, repository_manager = $5,
			default_repository_actions = $6, updated_at = now()
		WHERE id = $1
	`, userID, p.Admin, p.UserManager, p.StorageManager, p.RepositoryManager, pq.Array(actionsToStrings(p.DefaultRepositoryActions)))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Auth tokens ------------------------------------------------------------

func (c *Catalog) CreateAuthToken(ctx context.Context, t *AuthToken) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO auth_tokens (user_id, description, token_hash, token_prefix, active, expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, query, t.UserID, t.Description, t.TokenHash, t.TokenPrefix, t.Active, t.ExpiresAt,
		pq.Array(scopesToStrings(t.Scopes)),
	).Scan(&t.ID, &t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: token hash collision", ErrConflict)
	}
	if err != nil {
		return err
	}

	for _, rs := range t.RepositoryScopes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO auth_token_repository_scopes (token_id, repository_id, actions)
			VALUES ($1, $2, $3)
		`, t.ID, rs.RepositoryID, pq.Array(actionsToStrings(rs.Actions))); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *Catalog) GetAuthTokenByHash(ctx context.Context, hash string) (*AuthToken, error) {
	query := `
		SELECT id, user_id, description, token_hash, token_prefix, active, expires_at, scopes, created_at, last_used_at
		FROM auth_tokens WHERE token_hash = $1
	`
	var t AuthToken
	var scopes []string
	row := c.db.QueryRowContext(ctx, query, hash)
	err := row.Scan(&t.ID, &t.UserID, &t.Description, &t.TokenHash, &t.TokenPrefix, &t.Active, &t.ExpiresAt,
		pq.Array(&scopes), &t.CreatedAt, &t.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Scopes = stringsToScopes(scopes)

	rows, err := c.db.QueryContext(ctx, `
		SELECT repository_id, actions FROM auth_token_repository_scopes WHERE token_id = $1
	`, t.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rs TokenRepositoryScope
		var actions []string
		if err := rows.Scan(&rs.RepositoryID, pq.Array(&actions)); err != nil {
			return nil, err
		}
		rs.Actions = stringsToActions(actions)
		t.RepositoryScopes = append(t.RepositoryScopes, rs)
	}
	return &t, rows.Err()
}

func (c *Catalog) ListUserTokens(ctx context.Context, userID int64) ([]AuthToken, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, description, token_prefix, active, expires_at, scopes, created_at, last_used_at
		FROM auth_tokens WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuthToken
	for rows.Next() {
		var t AuthToken
		var scopes []string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.TokenPrefix, &t.Active, &t.ExpiresAt,
			pq.Array(&scopes), &t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, err
		}
		t.Scopes = stringsToScopes(scopes)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *Catalog) RevokeAuthToken(ctx context.Context, userID, tokenID int64) error {
	res, err := c.db.ExecContext(ctx, `UPDATE auth_tokens SET active = false WHERE id = $1 AND user_id = $2`, tokenID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) TouchAuthToken(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx, `UPDATE auth_tokens SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

// ---- Storages ---------------------------------------------------------------

func (c *Catalog) CreateStorage(ctx context.Context, s *Storage) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO storages (id, name, kind, config, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query, s.ID, s.Name, s.Kind, s.Config, s.Active).Scan(&s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: storage name %q already exists", ErrConflict, s.Name)
	}
	return err
}

func (c *Catalog) GetStorageByName(ctx context.Context, name string) (*Storage, error) {
	return c.scanStorage(c.db.QueryRowContext(ctx, `
		SELECT id, name, kind, config, active, created_at, updated_at FROM storages WHERE lower(name) = lower($1)
	`, name))
}

func (c *Catalog) GetStorage(ctx context.Context, id uuid.UUID) (*Storage, error) {
	return c.scanStorage(c.db.QueryRowContext(ctx, `
		SELECT id, name, kind, config, active, created_at, updated_at FROM storages WHERE id = $1
	`, id))
}

func (c *Catalog) scanStorage(row *sql.Row) (*Storage, error) {
	var s Storage
	err := row.Scan(&s.ID, &s.Name, &s.Kind, &s.Config, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (c *Catalog) ListStorages(ctx context.Context) ([]Storage, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, kind, config, active, created_at, updated_at FROM storages ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Storage
	for rows.Next() {
		var s Storage
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.Config, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *Catalog) DeactivateStorage(ctx context.Context, id uuid.UUID) error {
	var refCount int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM repositories WHERE storage_id = $1`, id).Scan(&refCount); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `UPDATE storages SET active = false, updated_at = now() WHERE id = $1`, id)
	return err
}

// DeleteStorage removes a storage row outright. Blocked while any
// repository still references it, per the storage lifecycle invariant.
func (c *Catalog) DeleteStorage(ctx context.Context, id uuid.UUID) error {
	var refCount int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM repositories WHERE storage_id = $1`, id).Scan(&refCount); err != nil {
		return err
	}
	if refCount > 0 {
		return fmt.Errorf("%w: storage is still referenced by %d repositories", ErrConflict, refCount)
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM storages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Repositories -----------------------------------------------------------

func (c *Catalog) CreateRepository(ctx context.Context, r *Repository) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
		INSERT INTO repositories (id, storage_id, name, type, sub_type, active, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query, r.ID, r.StorageID, r.Name, r.Type, r.SubType, r.Active, r.Visibility).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: repository name %q already exists on this storage", ErrConflict, r.Name)
	}
	return err
}

func (c *Catalog) GetRepository(ctx context.Context, id uuid.UUID) (*Repository, error) {
	return c.scanRepository(c.db.QueryRowContext(ctx, `
		SELECT id, storage_id, name, type, sub_type, active, visibility, created_at, updated_at
		FROM repositories WHERE id = $1
	`, id))
}

func (c *Catalog) GetRepositoryByStorageAndName(ctx context.Context, storageName, repoName string) (*Repository, error) {
	return c.scanRepository(c.db.QueryRowContext(ctx, `
		SELECT r.id, r.storage_id, r.name, r.type, r.sub_type, r.active, r.visibility, r.created_at, r.updated_at
		FROM repositories r JOIN storages s ON s.id = r.storage_id
		WHERE lower(s.name) = lower($1) AND lower(r.name) = lower($2)
	`, storageName, repoName))
}

func (c *Catalog) scanRepository(row *sql.Row) (*Repository, error) {
	var r Repository
	err := row.Scan(&r.ID, &r.StorageID, &r.Name, &r.Type, &r.SubType, &r.Active, &r.Visibility, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (c *Catalog) ListActiveRepositories(ctx context.Context) ([]Repository, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, storage_id, name, type, sub_type, active, visibility, created_at, updated_at
		FROM repositories WHERE active = true ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.StorageID, &r.Name, &r.Type, &r.SubType, &r.Active, &r.Visibility, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRepositories returns every repository, active or not, optionally
// narrowed to one storage, for the admin repository-management surface.
// ListActiveRepositories stays the Registry's own startup query; this one
// serves the admin API, which must also show a repository recorded bad.
func (c *Catalog) ListRepositories(ctx context.Context, storageID *uuid.UUID) ([]Repository, error) {
	query := `
		SELECT id, storage_id, name, type, sub_type, active, visibility, created_at, updated_at
		FROM repositories
	`
	args := []any{}
	if storageID != nil {
		query += ` WHERE storage_id = $1`
		args = append(args, *storageID)
	}
	query += ` ORDER BY name`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.StorageID, &r.Name, &r.Type, &r.SubType, &r.Active, &r.Visibility, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRepositoryActiveVisibility updates the two mutable repository flags.
// Renaming and storage reassignment are deliberately not supported, per the
// repository lifecycle invariant.
func (c *Catalog) SetRepositoryActiveVisibility(ctx context.Context, id uuid.UUID, active bool, visibility Visibility) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE repositories SET active = $2, visibility = $3, updated_at = now() WHERE id = $1
	`, id, active, visibility)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) DeleteRepository(ctx context.Context, id uuid.UUID) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM repository_configs WHERE repository_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Catalog) SetRepositoryConfig(ctx context.Context, repoID uuid.UUID, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO repository_configs (repository_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (repository_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, repoID, key, value)
	return err
}

func (c *Catalog) GetRepositoryConfig(ctx context.Context, repoID uuid.UUID, key string) (*RepositoryConfigDocument, error) {
	var d RepositoryConfigDocument
	d.RepositoryID = repoID
	d.Key = key
	err := c.db.QueryRowContext(ctx, `
		SELECT value, updated_at FROM repository_configs WHERE repository_id = $1 AND key = $2
	`, repoID, key).Scan(&d.Value, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

// ---- Permissions -------------------------------------------------------------

// ResolveActions returns the effective actions a user has on a repository,
// per the invariant: the union of default_repository_actions and the
// row-specific grant, overridden upward by admin or repository_manager
// (who always have every action).
func (c *Catalog) ResolveActions(ctx context.Context, user *User, repositoryID uuid.UUID) ([]Action, error) {
	if user.Permissions.Admin || user.Permissions.RepositoryManager {
		return []Action{ActionRead, ActionWrite, ActionAdmin}, nil
	}
	var grantedActions []string
	err := c.db.QueryRowContext(ctx, `
		SELECT actions FROM user_repository_permissions WHERE user_id = $1 AND repository_id = $2
	`, user.ID, repositoryID).Scan(pq.Array(&grantedActions))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	set := map[Action]struct{}{}
	for _, a := range user.Permissions.DefaultRepositoryActions {
		set[a] = struct{}{}
	}
	for _, a := range stringsToActions(grantedActions) {
		set[a] = struct{}{}
	}
	out := make([]Action, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out, nil
}

func (c *Catalog) SetUserRepositoryPermission(ctx context.Context, userID int64, repositoryID uuid.UUID, actions []Action) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO user_repository_permissions (user_id, repository_id, actions)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, repository_id) DO UPDATE SET actions = EXCLUDED.actions
	`, userID, repositoryID, pq.Array(actionsToStrings(actions)))
	return err
}

// ---- Projects & versions ------------------------------------------------------

func (c *Catalog) GetProjectByKey(ctx context.Context, repositoryID uuid.UUID, key string) (*Project, error) {
	return c.scanProject(c.db.QueryRowContext(ctx, `
		SELECT id, repository_id, key, scope, display_name, description, storage_path, deprecated, created_at, updated_at
		FROM projects WHERE repository_id = $1 AND lower(key) = lower($2)
	`, repositoryID, key))
}

func (c *Catalog) GetProjectByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	return c.scanProject(c.db.QueryRowContext(ctx, `
		SELECT id, repository_id, key, scope, display_name, description, storage_path, deprecated, created_at, updated_at
		FROM projects WHERE id = $1
	`, id))
}

func (c *Catalog) scanProject(row *sql.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.RepositoryID, &p.Key, &p.Scope, &p.DisplayName, &p.Description, &p.StoragePath,
		&p.Deprecated, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (c *Catalog) CreateProject(ctx context.Context, p *Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, repository_id, key, scope, display_name, description, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.RepositoryID, p.Key, p.Scope, p.DisplayName, p.Description, p.StoragePath).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: project key %q already exists in this repository", ErrConflict, p.Key)
	}
	return err
}

func (c *Catalog) TouchProject(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, id)
	return err
}

func (c *Catalog) GetVersion(ctx context.Context, projectID uuid.UUID, version string) (*ProjectVersion, error) {
	return c.scanVersion(c.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, release_type, storage_path, publisher_user_id, extra, created_at, updated_at
		FROM project_versions WHERE project_id = $1 AND version = $2
	`, projectID, version))
}

func (c *Catalog) scanVersion(row *sql.Row) (*ProjectVersion, error) {
	var v ProjectVersion
	err := row.Scan(&v.ID, &v.ProjectID, &v.Version, &v.ReleaseType, &v.StoragePath, &v.PublisherUserID, &v.Extra,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &v, err
}

func (c *Catalog) CreateVersion(ctx context.Context, v *ProjectVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO project_versions (id, project_id, version, release_type, storage_path, publisher_user_id, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, v.ID, v.ProjectID, v.Version, v.ReleaseType, v.StoragePath, v.PublisherUserID, v.Extra).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: version %q already exists for this project", ErrConflict, v.Version)
	}
	return err
}

func (c *Catalog) UpdateVersion(ctx context.Context, v *ProjectVersion) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE project_versions SET release_type = $2, extra = $3, updated_at = now() WHERE id = $1
	`, v.ID, v.ReleaseType, v.Extra)
	return err
}

// LatestVersion is a read-time query, not a stored column: it
// avoids coherence drift with direct storage writes.
func (c *Catalog) LatestVersion(ctx context.Context, projectID uuid.UUID, releaseType ReleaseType) (*ProjectVersion, error) {
	return c.scanVersion(c.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, release_type, storage_path, publisher_user_id, extra, created_at, updated_at
		FROM project_versions
		WHERE project_id = $1 AND release_type = $2
		ORDER BY created_at DESC LIMIT 1
	`, projectID, releaseType))
}

func (c *Catalog) ListVersions(ctx context.Context, projectID uuid.UUID, params PageParams) (Page[ProjectVersion], error) {
	size, number, offset := params.normalize()
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM project_versions WHERE project_id = $1`, projectID).Scan(&total); err != nil {
		return Page[ProjectVersion]{}, err
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, project_id, version, release_type, storage_path, publisher_user_id, extra, created_at, updated_at
		FROM project_versions WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, projectID, size, offset)
	if err != nil {
		return Page[ProjectVersion]{}, err
	}
	defer rows.Close()
	var out []ProjectVersion
	for rows.Next() {
		var v ProjectVersion
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Version, &v.ReleaseType, &v.StoragePath, &v.PublisherUserID, &v.Extra,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return Page[ProjectVersion]{}, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return Page[ProjectVersion]{}, err
	}
	return newPage(out, total, PageParams{PageSize: size, PageNumber: number}), nil
}

// ---- Project membership -------------------------------------------------------

func (c *Catalog) AddProjectMember(ctx context.Context, m ProjectMember) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, can_write, can_manage)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET can_write = EXCLUDED.can_write, can_manage = EXCLUDED.can_manage
	`, m.ProjectID, m.UserID, m.CanWrite, m.CanManage)
	return err
}

func (c *Catalog) IsProjectMember(ctx context.Context, projectID uuid.UUID, userID int64) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)
	`, projectID, userID).Scan(&exists)
	return exists, err
}

func (c *Catalog) HasAnyProjectMembers(ctx context.Context, projectID uuid.UUID) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1)`, projectID).Scan(&exists)
	return exists, err
}

func (c *Catalog) RemoveProjectMember(ctx context.Context, projectID uuid.UUID, userID int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT project_id, user_id, can_write, can_manage FROM project_members WHERE project_id = $1 ORDER BY user_id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectMember
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.CanWrite, &m.CanManage); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- helpers -----------------------------------------------------------------

func actionsToStrings(a []Action) []string {
	out := make([]string, len(a))
	for i, v := range a {
		out[i] = string(v)
	}
	return out
}

func stringsToActions(s []string) []Action {
	out := make([]Action, len(s))
	for i, v := range s {
		out[i] = Action(v)
	}
	return out
}

func scopesToStrings(s []Scope) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = string(v)
	}
	return out
}

func stringsToScopes(s []string) []Scope {
	out := make([]Scope, len(s))
	for i, v := range s {
		out[i] = Scope(v)
	}
	return out
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
