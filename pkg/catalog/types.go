package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ReleaseType classifies a version string.
type ReleaseType string

const (
	ReleaseStable           ReleaseType = "stable"
	ReleaseBeta             ReleaseType = "beta"
	ReleaseAlpha            ReleaseType = "alpha"
	ReleaseSnapshot         ReleaseType = "snapshot"
	ReleaseCandidate        ReleaseType = "release_candidate"
	ReleaseUnknown          ReleaseType = "unknown"
)

// RepositoryType is the ecosystem a Repository serves.
type RepositoryType string

const (
	RepositoryTypeMaven RepositoryType = "maven"
	RepositoryTypeNpm   RepositoryType = "npm"
)

// Visibility controls anonymous read access, per the global invariants.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityHidden  Visibility = "hidden"
	VisibilityPrivate Visibility = "private"
)

// Action is a granular permission a user or token can hold against a
// repository.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

// Scope is a global auth-token capability.
type Scope string

const (
	ScopeReadRepository  Scope = "ReadRepository"
	ScopeWriteRepository Scope = "WriteRepository"
	ScopeAdmin           Scope = "Admin"
)

// Storage is a physical backend row.
type Storage struct {
	ID        uuid.UUID
	Name      string
	Kind      string // "local" | "s3"
	Config    []byte // JSON, kind-specific
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is a logically named, typed artifact store.
type Repository struct {
	ID         uuid.UUID
	StorageID  uuid.UUID
	Name       string
	Type       RepositoryType
	SubType    string
	Active     bool
	Visibility Visibility
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RepositoryConfigDocument is a (repository_id, key, value) config row, per
// the well-known config keys.
type RepositoryConfigDocument struct {
	RepositoryID uuid.UUID
	Key          string
	Value        []byte // JSON
	UpdatedAt    time.Time
}

// Project aggregates versions under one ecosystem identity.
type Project struct {
	ID           uuid.UUID
	RepositoryID uuid.UUID
	Key          string // lowercased ecosystem identity
	Scope        string
	DisplayName  string
	Description  string
	StoragePath  string
	Deprecated   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProjectVersion is one published version of a Project.
type ProjectVersion struct {
	ID              uuid.UUID
	ProjectID       uuid.UUID
	Version         string
	ReleaseType     ReleaseType
	StoragePath     string
	PublisherUserID *int64
	Extra           []byte // JSON: description, authors, licence, source
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Permissions is the flat admin/manager/default-actions record attached to
// a User.
type Permissions struct {
	Admin                   bool
	UserManager             bool
	StorageManager          bool
	RepositoryManager       bool
	DefaultRepositoryActions []Action
}

// User is a catalog account. PasswordHash is never serialized to JSON.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string `json:"-"`
	Permissions  Permissions
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProjectMember grants a user write/manage rights on one project, independent
// of their repository-wide actions. The first publisher of a project is
// added automatically by the indexing pipeline.
type ProjectMember struct {
	ProjectID uuid.UUID
	UserID    int64
	CanWrite  bool
	CanManage bool
}

// UserRepositoryPermission is the per-repository action grant.
type UserRepositoryPermission struct {
	UserID       int64
	RepositoryID uuid.UUID
	Actions      []Action
}

// AuthToken belongs to one user; the plaintext token appears only once, in
// the creation response.
type AuthToken struct {
	ID               int64
	UserID           int64
	Description      string
	TokenHash        string `json:"-"`
	TokenPrefix      string
	Active           bool
	ExpiresAt        *time.Time
	Scopes           []Scope
	RepositoryScopes []TokenRepositoryScope
	CreatedAt        time.Time
	LastUsedAt       *time.Time
}

// TokenRepositoryScope is a per-repository capability carried by a token.
type TokenRepositoryScope struct {
	RepositoryID uuid.UUID
	Actions      []Action
}
