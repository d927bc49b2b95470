// Package sso provides OpenID Connect single sign-on for nitro-repo's admin
// login, with just-in-time (JIT) user provisioning and group-to-permission
// mapping.
//
// # Overview
//
// A ProviderConfig describes one configured identity provider (Azure AD,
// Okta, Google Workspace, or a generic OIDC issuer). The ProviderFactory
// turns a config into a live Provider once ValidateConfig passes.
//
// # Usage Example
//
// Configure a provider:
//
//	config := &sso.ProviderConfig{
//		Name:          "corp-okta",
//		ProviderType:  sso.ProviderTypeOIDC,
//		ProviderName:  sso.ProviderOkta,
//		Enabled:       true,
//		AutoProvision: true,
//		OIDCConfig: &sso.OIDCConfig{
//			IssuerURL:    "https://example.okta.com",
//			ClientID:     clientID,
//			ClientSecret: clientSecret,
//			Scopes:       []string{"openid", "email", "groups"},
//		},
//		GroupMapping: []sso.GroupMap{
//			{SSOGroup: "repo-admins", Permission: "admin"},
//		},
//	}
//
// Preset starting points for common providers are available via
// GetPresetConfig.
//
// # JIT User Provisioning
//
// When a user logs in via SSO for the first time, the callback handler:
//   1. Validates authentication with the configured IdP
//   2. Extracts user attributes (email, username, groups) per AttributeMapping
//   3. Creates a catalog user account (or reuses the existing mapping)
//   4. Grants Permissions flags named by any matching GroupMapping entry
//   5. Issues a browser session cookie
//
// # Related Packages
//
//   - pkg/catalog: user storage and the flat Permissions model
//   - pkg/identity: the Principal type SSO sessions feed into
package sso
