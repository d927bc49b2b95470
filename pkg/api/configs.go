package api

import (
	"encoding/json"
	"fmt"

	"github.com/nitro-repo/nitro-repo/pkg/protocol/maven"
)

// configValidator unmarshals and validates a repository config document
// for one well-known key. Registered in configValidators below, the same
// closed-enum-of-types shape the original Rust implementation used for its
// config registry.
type configValidator func(raw json.RawMessage) error

// configValidators is the closed set of repository config keys accepted by
// the API; anything else is rejected with a 400 before it ever reaches the
// catalog.
var configValidators = map[string]configValidator{
	"security":          validateSecurityConfig,
	"push_rules":        validatePushRulesConfig,
	"frontend":          validateFrontendConfig,
	"badge":             validateBadgeConfig,
	"project":           validateProjectConfig,
	"page":              validatePageConfig,
	"maven":             validateMavenConfig,
	"maven_push_rules":  validateMavenPushRulesConfig,
	"maven_proxy":       validateMavenProxyConfig,
	"npm":               validateNpmConfig,
}

// SecurityConfig is the "security" config document: whether anonymous
// clients may read without a visibility override, mirrored per-repository
// on top of the Repository.Visibility column for finer-grained knobs that
// don't warrant their own schema column.
type SecurityConfig struct {
	RequireAuthTokenForRead bool `json:"require_auth_token_for_read"`
}

func validateSecurityConfig(raw json.RawMessage) error {
	var c SecurityConfig
	return json.Unmarshal(raw, &c)
}

// PushRulesConfig is the ecosystem-agnostic "push_rules" document, applied
// to repository types that don't define their own (maven's is
// maven_push_rules; npm publishing is all-or-nothing and has none).
type PushRulesConfig struct {
	AllowOverwrite      bool `json:"allow_overwrite"`
	MustBeProjectMember bool `json:"must_be_project_member"`
}

func validatePushRulesConfig(raw json.RawMessage) error {
	var c PushRulesConfig
	return json.Unmarshal(raw, &c)
}

// FrontendConfig carries admin-frontend-only display hints; nitro-repo
// itself never reads these fields, it only validates and stores them.
type FrontendConfig struct {
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

func validateFrontendConfig(raw json.RawMessage) error {
	var c FrontendConfig
	return json.Unmarshal(raw, &c)
}

// BadgeConfig overrides the default badge colors for one repository.
type BadgeConfig struct {
	LabelColor string `json:"label_color,omitempty"`
	Color      string `json:"color,omitempty"`
}

func validateBadgeConfig(raw json.RawMessage) error {
	var c BadgeConfig
	return json.Unmarshal(raw, &c)
}

// ProjectConfig documents a project-level default, stored under a
// repository's config rather than per project, since the config registry
// is keyed by (repository_id, key) only.
type ProjectConfig struct {
	DefaultDeprecationNotice string `json:"default_deprecation_notice,omitempty"`
}

func validateProjectConfig(raw json.RawMessage) error {
	var c ProjectConfig
	return json.Unmarshal(raw, &c)
}

// PageConfig controls the default page size the browse/version-listing
// endpoints use for this repository when the caller doesn't specify one.
type PageConfig struct {
	DefaultPageSize int `json:"default_page_size,omitempty"`
}

func validatePageConfig(raw json.RawMessage) error {
	var c PageConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	if c.DefaultPageSize < 0 {
		return fmt.Errorf("page config: default_page_size must not be negative")
	}
	return nil
}

// MavenConfig is general maven-protocol tuning, distinct from the
// push-policy document.
type MavenConfig struct {
	GenerateChecksums bool `json:"generate_checksums"`
}

func validateMavenConfig(raw json.RawMessage) error {
	var c MavenConfig
	return json.Unmarshal(raw, &c)
}

func validateMavenPushRulesConfig(raw json.RawMessage) error {
	var c maven.PushRules
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	switch c.PushPolicy {
	case maven.PushPolicyRelease, maven.PushPolicySnapshot, maven.PushPolicyMixed, "":
	default:
		return fmt.Errorf("maven_push_rules: unknown push_policy %q", c.PushPolicy)
	}
	return nil
}

func validateMavenProxyConfig(raw json.RawMessage) error {
	var c maven.ProxyConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("maven_proxy: upstream_url is required")
	}
	return nil
}

// NpmConfig is general npm-protocol tuning.
type NpmConfig struct {
	AllowUnpublish bool `json:"allow_unpublish"`
}

func validateNpmConfig(raw json.RawMessage) error {
	var c NpmConfig
	return json.Unmarshal(raw, &c)
}

func validateConfigDocument(key string, raw json.RawMessage) error {
	validator, ok := configValidators[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	return validator(raw)
}
