package middleware

import (
	"context"
	"net/http"

	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

// ContextKey is a type for context keys.
type ContextKey string

// PrincipalContextKey is the context key carrying the request's resolved
// identity.Principal, once authenticated.
const PrincipalContextKey ContextKey = "principal"

// AuthMiddleware authenticates every request via identity.Authenticator
// before handing off to the admin API handlers, per the header contract.
type AuthMiddleware struct {
	authn    *identity.Authenticator
	optional bool // if true, allow anonymous requests through unauthenticated
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authn *identity.Authenticator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{authn: authn, optional: optional}
}

// Handler wraps an HTTP handler with authentication, attaching the resolved
// Principal to the request context on success.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.authn.Authenticate(r.Context(), r)
		switch {
		case err == nil:
			ctx := context.WithValue(r.Context(), PrincipalContextKey, &principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		case err == identity.ErrUnauthenticated && m.optional:
			next.ServeHTTP(w, r)
		default:
			unauthorizedResponse(w, "authentication required")
		}
	})
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", identity.BasicChallenge("nitro-repo"))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetPrincipal extracts the authenticated Principal from the request
// context, or nil for an anonymous request under optional auth.
func GetPrincipal(r *http.Request) *identity.Principal {
	p, _ := r.Context().Value(PrincipalContextKey).(*identity.Principal)
	return p
}

// RequireAdmin rejects any request whose Principal isn't an admin user,
// used to gate storage/repository management endpoints on the admin API.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r)
		if p == nil || p.User == nil {
			forbiddenResponse(w, "authentication required")
			return
		}
		if !p.User.Permissions.Admin {
			forbiddenResponse(w, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
