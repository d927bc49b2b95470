// Package identity implements authentication: password hashing, session issuance,
// auth token lifecycle, authorization decisions and auth-header parsing.
// It sits directly on top of pkg/catalog and reuses a familiar token-format
// idiom: a crypto/rand payload with a SHA-256 lookup hash, so tokens are
// never stored in recoverable form.
package identity
