package sso

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// UserProvisioner handles JIT (Just-In-Time) user provisioning against the
// catalog's users table, keeping the SSO-specific mapping tables in its own
// database handle.
type UserProvisioner struct {
	db  *sql.DB
	cat *catalog.Catalog
}

// NewUserProvisioner creates a new user provisioner
func NewUserProvisioner(db *sql.DB, cat *catalog.Catalog) *UserProvisioner {
	return &UserProvisioner{db: db, cat: cat}
}

// ProvisionUser provisions or updates a user from SSO
func (p *UserProvisioner) ProvisionUser(ctx context.Context, ssoUser *SSOUser, config *ProviderConfig) (*catalog.User, error) {
	if !config.AutoProvision {
		return nil, fmt.Errorf("auto-provisioning is disabled for this provider")
	}

	var internalUserID int64
	err := p.db.QueryRowContext(ctx, `
		SELECT internal_user_id
		FROM sso_user_mappings
		WHERE provider_id = $1 AND external_user_id = $2
	`, config.ID, ssoUser.ExternalID).Scan(&internalUserID)

	if err == sql.ErrNoRows {
		return p.createUser(ctx, ssoUser, config)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check user mapping: %w", err)
	}

	return p.updateUser(ctx, internalUserID, ssoUser, config)
}

// createUser creates a new user from SSO data
func (p *UserProvisioner) createUser(ctx context.Context, ssoUser *SSOUser, config *ProviderConfig) (*catalog.User, error) {
	user := &catalog.User{
		Username:    ssoUser.Username,
		Email:       ssoUser.Email,
		Permissions: permissionsForGroups(ssoUser.Groups, config.GroupMapping),
	}
	if err := p.cat.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sso_user_mappings (provider_id, external_user_id, internal_user_id, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW(), NOW())
	`, config.ID, ssoUser.ExternalID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user mapping: %w", err)
	}

	return user, nil
}

// updateUser refreshes permissions and last-login tracking for an existing
// SSO-provisioned user.
func (p *UserProvisioner) updateUser(ctx context.Context, userID int64, ssoUser *SSOUser, config *ProviderConfig) (*catalog.User, error) {
	user, err := p.cat.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if len(ssoUser.Groups) > 0 && len(config.GroupMapping) > 0 {
		user.Permissions = permissionsForGroups(ssoUser.Groups, config.GroupMapping)
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE sso_user_mappings
		SET last_login_at = NOW(), updated_at = NOW()
		WHERE provider_id = $1 AND external_user_id = $2
	`, config.ID, ssoUser.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user mapping: %w", err)
	}

	return user, nil
}

// permissionsForGroups grants the Permissions flags named by any group the
// SSO user is a member of, per config's group mapping. Unrecognized
// permission names are ignored.
func permissionsForGroups(groups []string, mapping []GroupMap) catalog.Permissions {
	var perms catalog.Permissions
	want := make(map[string]bool)
	for _, m := range mapping {
		want[m.SSOGroup] = true
	}
	for _, group := range groups {
		if !want[group] {
			continue
		}
		for _, m := range mapping {
			if m.SSOGroup != group {
				continue
			}
			switch m.Permission {
			case "admin":
				perms.Admin = true
			case "user_manager":
				perms.UserManager = true
			case "storage_manager":
				perms.StorageManager = true
			case "repository_manager":
				perms.RepositoryManager = true
			}
		}
	}
	return perms
}

// GetUserMapping retrieves the SSO user mapping
func (p *UserProvisioner) GetUserMapping(providerID int64, externalUserID string) (*SSOUserMapping, error) {
	mapping := &SSOUserMapping{}
	err := p.db.QueryRow(`
		SELECT id, provider_id, external_user_id, internal_user_id, last_login_at, created_at, updated_at
		FROM sso_user_mappings
		WHERE provider_id = $1 AND external_user_id = $2
	`, providerID, externalUserID).Scan(
		&mapping.ID, &mapping.ProviderID, &mapping.ExternalUserID,
		&mapping.InternalUserID, &mapping.LastLoginAt, &mapping.CreatedAt, &mapping.UpdatedAt)

	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// DeleteUserMapping removes an SSO user mapping
func (p *UserProvisioner) DeleteUserMapping(providerID int64, externalUserID string) error {
	_, err := p.db.Exec(`
		DELETE FROM sso_user_mappings
		WHERE provider_id = $1 AND external_user_id = $2
	`, providerID, externalUserID)
	return err
}

// ListUserMappings lists all user mappings for a provider
func (p *UserProvisioner) ListUserMappings(providerID int64) ([]*SSOUserMapping, error) {
	rows, err := p.db.Query(`
		SELECT id, provider_id, external_user_id, internal_user_id, last_login_at, created_at, updated_at
		FROM sso_user_mappings
		WHERE provider_id = $1
		ORDER BY created_at DESC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*SSOUserMapping
	for rows.Next() {
		mapping := &SSOUserMapping{}
		err := rows.Scan(
			&mapping.ID, &mapping.ProviderID, &mapping.ExternalUserID,
			&mapping.InternalUserID, &mapping.LastLoginAt, &mapping.CreatedAt, &mapping.UpdatedAt)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

// SessionManager manages SSO sessions
type SessionManager struct {
	db *sql.DB
}

// NewSessionManager creates a new session manager
func NewSessionManager(db *sql.DB) *SessionManager {
	return &SessionManager{db: db}
}

// CreateSession creates a new SSO session
func (sm *SessionManager) CreateSession(session *SSOSession) error {
	_, err := sm.db.Exec(`
		INSERT INTO sso_sessions (id, provider_id, user_id, external_user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, session.ID, session.ProviderID, session.UserID, session.ExternalUserID,
		session.CreatedAt, session.ExpiresAt)
	return err
}

// GetSession retrieves an SSO session
func (sm *SessionManager) GetSession(sessionID string) (*SSOSession, error) {
	session := &SSOSession{}
	err := sm.db.QueryRow(`
		SELECT id, provider_id, user_id, external_user_id, created_at, expires_at
		FROM sso_sessions
		WHERE id = $1 AND expires_at > NOW()
	`, sessionID).Scan(
		&session.ID, &session.ProviderID, &session.UserID, &session.ExternalUserID,
		&session.CreatedAt, &session.ExpiresAt)

	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession deletes an SSO session
func (sm *SessionManager) DeleteSession(sessionID string) error {
	_, err := sm.db.Exec(`DELETE FROM sso_sessions WHERE id = $1`, sessionID)
	return err
}

// CleanupExpiredSessions removes expired sessions
func (sm *SessionManager) CleanupExpiredSessions() (int64, error) {
	result, err := sm.db.Exec(`DELETE FROM sso_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
