// Package protocol holds the error vocabulary and shared helpers used by
// the per-ecosystem handlers in pkg/protocol/maven and pkg/protocol/npm
// Each handler implements registry.Handler and is built by a
// registry.Factory registered against a catalog.RepositoryType.
package protocol
