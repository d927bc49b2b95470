package protocol

import (
	"context"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

// CheckRead enforces the visibility rules for a read: public repos allow
// anonymous file reads; hidden repos allow anonymous file reads but require
// the Read action for directory listings; private repos require the Read
// action unconditionally. An anonymous caller against a gated read gets
// KindAuthenticationRequired so package-manager clients retry with Basic
// credentials, never KindForbidden.
func CheckRead(ctx context.Context, authz *identity.Authorizer, principal *identity.Principal, repo catalog.Repository, isDirectoryListing bool) *Error {
	requiresAction := repo.Visibility == catalog.VisibilityPrivate || (repo.Visibility == catalog.VisibilityHidden && isDirectoryListing)
	if !requiresAction {
		return nil
	}
	if principal == nil {
		return NewError(KindAuthenticationRequired, "authentication required")
	}
	allowed, err := authz.Can(ctx, *principal, repo.ID, catalog.ActionRead)
	if err != nil {
		return WrapError(KindInternal, "checking read permission", err)
	}
	if !allowed {
		return NewError(KindForbidden, "read access denied")
	}
	return nil
}

// CheckWrite enforces that every write is authenticated and carries the
// Write action; there is no anonymous-write path in this design.
func CheckWrite(ctx context.Context, authz *identity.Authorizer, principal *identity.Principal, repo catalog.Repository) *Error {
	if principal == nil {
		return NewError(KindAuthenticationRequired, "authentication required")
	}
	allowed, err := authz.Can(ctx, *principal, repo.ID, catalog.ActionWrite)
	if err != nil {
		return WrapError(KindInternal, "checking write permission", err)
	}
	if !allowed {
		return NewError(KindForbidden, "write access denied")
	}
	return nil
}
