package sso

import "time"

// ProviderType represents the SSO provider type
type ProviderType string

const (
	ProviderTypeOIDC ProviderType = "oidc"
)

// ProviderName represents the SSO provider name
type ProviderName string

const (
	ProviderAzureAD     ProviderName = "azuread"
	ProviderOkta        ProviderName = "okta"
	ProviderGoogle      ProviderName = "google"
	ProviderGenericOIDC ProviderName = "generic_oidc"
)

// ProviderConfig represents SSO provider configuration. Only OIDC is wired:
// admin login is the one place SSO feeds the Identity session model, and
// OIDC already covers it without a second, behaviorally-identical path.
type ProviderConfig struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"` // Unique name for this provider instance
	ProviderType     ProviderType `json:"provider_type"`
	ProviderName     ProviderName `json:"provider_name"`
	Enabled          bool         `json:"enabled"`
	AutoProvision    bool         `json:"auto_provision"` // JIT user provisioning
	GroupMapping     []GroupMap   `json:"group_mapping,omitempty"`
	OIDCConfig       *OIDCConfig  `json:"oidc_config,omitempty"`
	AttributeMapping AttributeMap `json:"attribute_mapping"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// OIDCConfig holds OpenID Connect configuration
type OIDCConfig struct {
	ClientID             string   `json:"client_id"`
	ClientSecret         string   `json:"-"` // Never expose secret in JSON
	IssuerURL            string   `json:"issuer_url"` // Discovery endpoint
	RedirectURL          string   `json:"redirect_url"`
	Scopes               []string `json:"scopes"`
	SkipIssuerCheck      bool     `json:"skip_issuer_check,omitempty"`
	UserinfoEndpoint     string   `json:"userinfo_endpoint,omitempty"`
}

// AttributeMap defines how SSO attributes map to user fields
type AttributeMap struct {
	UserID    string `json:"user_id"`    // Unique user identifier
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Groups    string `json:"groups,omitempty"` // Attribute containing group memberships
}

// GroupMap maps an SSO group to a catalog.Permissions flag granted to
// members of that group on provisioning (e.g. "admin" -> Permissions.Admin).
type GroupMap struct {
	SSOGroup   string `json:"sso_group"`   // Group name from SSO provider
	Permission string `json:"permission"`  // Permissions flag name to grant
}

// SSOUser represents user information from SSO provider
type SSOUser struct {
	ExternalID  string            `json:"external_id"` // Unique ID from provider
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	FullName    string            `json:"full_name,omitempty"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Groups      []string          `json:"groups,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"` // Raw attributes
	ProviderID  int64             `json:"provider_id"`
	ProviderName string           `json:"provider_name"`
}

// SSOUserMapping represents a mapping between an SSO identity and a local user
type SSOUserMapping struct {
	ID              int64     `json:"id"`
	ProviderID      int64     `json:"provider_id"`
	ExternalUserID  string    `json:"external_user_id"` // User ID from SSO provider
	InternalUserID  int64     `json:"internal_user_id"` // local user ID
	LastLoginAt     time.Time `json:"last_login_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SSOSession represents an SSO session
type SSOSession struct {
	ID             string    `json:"id"`
	ProviderID     int64     `json:"provider_id"`
	UserID         int64     `json:"user_id"`
	ExternalUserID string    `json:"external_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}
