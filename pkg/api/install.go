package api

import (
	"net/http"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

// installRequest is the first-admin-user creation payload.
type installRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleInstall creates the first admin user. Gated on AnyUserExists
// rather than a separate "installed" marker row: the first user and the
// installed state are the same fact in this data model, so a repeat call
// 404s exactly like a marker-row check would, with one fewer table.
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	exists, err := s.cat.AnyUserExists(r.Context())
	if err != nil {
		writeInternal(w, err)
		return
	}
	if exists {
		httputil.WriteNotFoundError(w, "already installed")
		return
	}

	var req installRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		func() (bool, string) { return req.Username != "", "username is required" },
		func() (bool, string) { return req.Email != "", "email is required" },
		func() (bool, string) { return len(req.Password) >= 8, "password must be at least 8 characters" },
	) {
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, err)
		return
	}

	user := &catalog.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Permissions: catalog.Permissions{
			Admin:             true,
			UserManager:       true,
			StorageManager:    true,
			RepositoryManager: true,
		},
	}
	if err := s.cat.CreateUser(r.Context(), user); err != nil {
		writeInternal(w, err)
		return
	}

	s.requestLogger(r.Context()).WithField("username", user.Username).Info("installed first admin user")
	httputil.WriteNoContent(w)
}
