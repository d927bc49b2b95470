// Package audit provides comprehensive audit logging for security, compliance, and forensics.
//
// # Overview
//
// This package tracks all authentication events, authorization checks, data mutations,
// configuration changes, and admin actions with before/after values and request context.
//
// # Event Types
//
// Authentication: login, logout, password_change, token_create
// Authorization: permission_check, access_denied
// Data: project_create, project_update, file_upload, repository_create
// Configuration: sso_update
// Access: read
//
// # Usage Example
//
// Log authentication:
//
//	logger.LogAuthentication(ctx, audit.EventTypeAuthLogin, &user.ID, user.Username,
//		audit.EventStatusSuccess, "password login")
//
// Log data mutation with before/after:
//
//	logger.LogDataMutation(ctx, audit.EventTypeDataProjectUpdate, actorID,
//		audit.ResourceTypeProject, project.ID.String(),
//		&audit.ChangeDetails{Before: oldProject, After: newProject},
//		"project updated")
//
// Search audit logs:
//
//	since, now := time.Now().Add(-24*time.Hour), time.Now()
//	failure := audit.EventStatusFailure
//	results, err := store.Search(ctx, audit.SearchFilter{
//		StartTime:  &since,
//		EndTime:    &now,
//		UserID:     &userID,
//		EventTypes: []audit.EventType{audit.EventTypeAuthLogin},
//		Status:     &failure,
//	})
//
// # Retention Policy
//
// Default: 90 days active retention
// Cleanup: DBStore.Cleanup deletes rows older than the retention window; it
// does not archive them, whatever the policy's archive settings say
// Export: JSON, CSV, NDJSON formats for external analysis
//
// # Related Packages
//
//   - pkg/api: login/logout, permission, repository, storage, project and
//     staging events
package audit
