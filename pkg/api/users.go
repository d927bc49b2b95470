package api

import (
	"net/http"
	"time"

	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
)

const defaultSessionTTL = 24 * time.Hour

func (s *Server) sessionTTLDuration() time.Duration {
	if s.sessionTTL <= 0 {
		return defaultSessionTTL
	}
	return time.Duration(s.sessionTTL) * time.Second
}

type loginRequest struct {
	Identifier string `json:"identifier"` // username or email
	Password   string `json:"password"`
}

// userResponse is the wire shape for a User: PasswordHash is already
// json:"-" on catalog.User, this wrapper exists so permissions come back
// as a flat, documented object rather than an embedded struct whose field
// names happen to match.
type userResponse struct {
	ID          int64               `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Permissions catalog.Permissions `json:"permissions"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toUserResponse(u *catalog.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Permissions: u.Permissions, CreatedAt: u.CreatedAt}
}

// handleLogin authenticates a username/email + password pair and issues a
// session cookie. Unlike the Authenticator's request-credential path, the
// credential here comes from a JSON body, since this is the explicit
// login endpoint browsers hit rather than a protocol request carrying
// Basic/Bearer auth.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	user, err := s.cat.GetUserByUsernameOrEmail(r.Context(), req.Identifier)
	if err != nil {
		s.logAudit(r.Context(), func(a audit.Logger) {
			a.LogAuthentication(r.Context(), audit.EventTypeAuthLoginFailed, nil, req.Identifier, audit.EventStatusFailure, "unknown identifier")
		})
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}
	ok, err := identity.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		s.logAudit(r.Context(), func(a audit.Logger) {
			a.LogAuthentication(r.Context(), audit.EventTypeAuthLoginFailed, &user.ID, user.Username, audit.EventStatusFailure, "bad password")
		})
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.sessionTTLDuration()
	sess, err := s.sessions.Create(r.Context(), user.ID, ttl, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		writeInternal(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogAuthentication(r.Context(), audit.EventTypeAuthLogin, &user.ID, user.Username, audit.EventStatusSuccess, "login succeeded")
	})
	httputil.WriteSuccess(w, toUserResponse(user))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	if p == nil || p.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, toUserResponse(p.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(identity.SessionCookieName); err == nil {
		_ = s.sessions.Delete(r.Context(), cookie.Value)
	}
	if p := middleware.GetPrincipal(r); p != nil && p.User != nil {
		s.logAudit(r.Context(), func(a audit.Logger) {
			a.LogAuthentication(r.Context(), audit.EventTypeAuthLogout, &p.User.ID, p.User.Username, audit.EventStatusSuccess, "logout")
		})
	}
	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	httputil.WriteNoContent(w)
}

type createTokenRequest struct {
	Description string           `json:"description"`
	Scopes      []catalog.Scope  `json:"scopes"`
	ExpiresAt   *time.Time       `json:"expires_at"`
}

type createTokenResponse struct {
	Token string           `json:"token"`
	Info  catalog.AuthToken `json:"info"`
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	tokens, err := s.cat.ListUserTokens(r.Context(), p.User.ID)
	if err != nil {
		writeInternal(w, err)
		return
	}
	httputil.WriteSuccess(w, tokens)
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Description, "description") {
		return
	}
	plaintext, token, err := s.tokens.Issue(r.Context(), p.User.ID, req.Description, req.Scopes, nil, req.ExpiresAt)
	if err != nil {
		writeInternal(w, err)
		return
	}
	httputil.WriteCreated(w, createTokenResponse{Token: plaintext, Info: *token})
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	tokenID, ok := httputil.ParsePathInt64OrError(w, r, "tokenID")
	if !ok {
		return
	}
	if err := s.tokens.Revoke(r.Context(), p.User.ID, tokenID); err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "token not found")
			return
		}
		writeInternal(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	size, _ := httputil.ParseQueryInt(r, "page_size", 20)
	number, _ := httputil.ParseQueryInt(r, "page_number", 1)
	page, err := s.cat.ListUsers(r.Context(), catalog.PageParams{PageSize: size, PageNumber: number})
	if err != nil {
		writeInternal(w, err)
		return
	}
	out := make([]userResponse, 0, len(page.Data))
	for i := range page.Data {
		out = append(out, toUserResponse(&page.Data[i]))
	}
	httputil.WriteSuccess(w, catalog.Page[userResponse]{
		Data: out, Total: page.Total, TotalPages: page.TotalPages,
		PageSize: page.PageSize, PageNumber: page.PageNumber,
	})
}

func (s *Server) handleSetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}
	var perms catalog.Permissions
	if !httputil.ParseJSONOrError(w, r, &perms) {
		return
	}
	if err := s.cat.SetUserPermissions(r.Context(), userID, perms); err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		writeInternal(w, err)
		return
	}
	var adminID *int64
	if p := middleware.GetPrincipal(r); p != nil && p.User != nil {
		adminID = &p.User.ID
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogAdminAction(r.Context(), audit.EventTypeAuthzRoleChange, adminID, &userID, "user permissions updated")
	})
	httputil.WriteNoContent(w)
}
