package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin              EventType = "auth.login"
	EventTypeAuthLogout             EventType = "auth.logout"
	EventTypeAuthLoginFailed        EventType = "auth.login_failed"
	EventTypeAuthPasswordChange     EventType = "auth.password_change"
	EventTypeAuthTokenCreate        EventType = "auth.token_create"
	EventTypeAuthTokenRevoke        EventType = "auth.token_revoke"
	EventTypeAuthTokenValidate      EventType = "auth.token_validate"
	EventTypeAuthTokenValidateFail  EventType = "auth.token_validate_fail"

	// Authorization events
	EventTypeAuthzPermissionCheck   EventType = "authz.permission_check"
	EventTypeAuthzPermissionGrant   EventType = "authz.permission_grant"
	EventTypeAuthzPermissionRevoke  EventType = "authz.permission_revoke"
	EventTypeAuthzRoleChange        EventType = "authz.role_change"
	EventTypeAuthzAccessDenied      EventType = "authz.access_denied"

	// Data mutation events
	EventTypeDataProjectCreate      EventType = "data.project_create"
	EventTypeDataProjectUpdate      EventType = "data.project_update"
	EventTypeDataProjectDelete      EventType = "data.project_delete"
	EventTypeDataFileUpload         EventType = "data.file_upload"
	EventTypeDataFileDelete         EventType = "data.file_delete"
	EventTypeDataStorageCreate      EventType = "data.storage_create"
	EventTypeDataStorageDeactivate  EventType = "data.storage_deactivate"
	EventTypeDataStoragePurge       EventType = "data.storage_purge"
	EventTypeDataRepositoryCreate   EventType = "data.repository_create"
	EventTypeDataRepositoryUpdate   EventType = "data.repository_update"
	EventTypeDataRepositoryDelete   EventType = "data.repository_delete"

	// Configuration events
	EventTypeConfigSSOUpdate        EventType = "config.sso_update"

	// Read/access events (for sensitive operations)
	EventTypeAccessRead             EventType = "access.read"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeProject    ResourceType = "project"
	ResourceTypeFile       ResourceType = "file"
	ResourceTypeUser       ResourceType = "user"
	ResourceTypeToken      ResourceType = "token"
	ResourceTypePermission ResourceType = "permission"
	ResourceTypeConfig     ResourceType = "config"
	ResourceTypeStorage    ResourceType = "storage"
	ResourceTypeRepository ResourceType = "repository"
	ResourceTypeStage      ResourceType = "stage"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	// Core fields
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID         *int64  `json:"user_id,omitempty"`
	Username       string  `json:"username,omitempty"`
	OrganizationID *int64  `json:"organization_id,omitempty"`
	TokenID        *int64  `json:"token_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`
	ResourceName string       `json:"resource_name,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	// Changes tracking (before/after for updates)
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*AuditEvent, error) {
	var event AuditEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	// Time range
	StartTime *time.Time
	EndTime   *time.Time

	// Actor filters
	UserID         *int64
	Username       string
	OrganizationID *int64

	// Event filters
	EventTypes []EventType
	Status     *EventStatus

	// Resource filters
	ResourceType ResourceType
	ResourceID   string
	ResourceName string

	// Request context filters
	IPAddress string
	Method    string
	Path      string

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // field name to sort by
	SortOrder string // "asc" or "desc"
}

// ExportFormat represents the format for exporting audit logs
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson" // Newline-delimited JSON
)

// AuditStats represents statistics about audit logs
type AuditStats struct {
	TotalEvents           int64            `json:"total_events"`
	EventsByType          map[EventType]int64 `json:"events_by_type"`
	EventsByStatus        map[EventStatus]int64 `json:"events_by_status"`
	EventsByUser          map[int64]int64  `json:"events_by_user"`
	EventsByOrganization  map[int64]int64  `json:"events_by_organization"`
	EventsByResource      map[ResourceType]int64 `json:"events_by_resource"`
	UniqueUsers           int64            `json:"unique_users"`
	UniqueIPs             int64            `json:"unique_ips"`
	FailedAuthAttempts    int64            `json:"failed_auth_attempts"`
	AccessDenials         int64            `json:"access_denials"`
	TimeRange             *TimeRange       `json:"time_range,omitempty"`
}

// TimeRange represents a time range for statistics
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RetentionPolicy defines how long audit logs should be kept
type RetentionPolicy struct {
	// RetentionDays is the number of days to keep audit logs
	RetentionDays int

	// ArchiveEnabled, ArchivePath and CompressArchive describe an archive
	// destination. DBStore.Cleanup does not read them: it deletes old rows
	// and writes no archive.
	ArchiveEnabled bool

	// ArchivePath is the archive directory carried by the policy
	ArchivePath string

	// CompressArchive is the archive compression flag carried by the policy
	CompressArchive bool
}

// DefaultRetentionPolicy returns a default retention policy (90 days)
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays:   90,
		ArchiveEnabled:  true,
		ArchivePath:     "/var/nitro-repo/audit-archive",
		CompressArchive: true,
	}
}
