package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/observability"
	"github.com/nitro-repo/nitro-repo/pkg/registry"
	"github.com/nitro-repo/nitro-repo/pkg/sso"
	"github.com/nitro-repo/nitro-repo/pkg/staging"
)

// Server is the `/api/...` and `/badge/...` JSON surface: user/storage/
// repository management, config documents, project/version browsing and
// badges. It holds no protocol (maven/npm upload-download) logic of its
// own; that lives behind pkg/registry, which Server consults for browse
// and badge endpoints that need to resolve a named repository.
type Server struct {
	cat      *catalog.Catalog
	registry *registry.Registry
	authn    *identity.Authenticator
	authz    *identity.Authorizer
	tokens   *identity.TokenIssuer
	sessions *identity.SessionStore
	staging  *staging.Manager
	log      *observability.Logger
	audit    audit.Logger
	sso      *sso.Handlers

	auditHandlers *audit.Handlers

	sessionTTL int64 // seconds, copied in from config at construction

	router *mux.Router
}

// Config bundles the constructor's dependencies, assembled from
// individually-constructed collaborators. Audit, AuditStore and SSO are
// optional: a nil Audit
// logger drops straight through to every LogXxx call site, a nil
// AuditStore skips mounting the read-only /api/audit endpoints, and a
// nil SSO skips the admin SSO-provider and federated-login routes.
type Config struct {
	Catalog    *catalog.Catalog
	Registry   *registry.Registry
	Authn      *identity.Authenticator
	Authz      *identity.Authorizer
	Tokens     *identity.TokenIssuer
	Sessions   *identity.SessionStore
	Staging    *staging.Manager
	Logger     *observability.Logger
	Audit      audit.Logger
	AuditStore audit.Store
	SSO        *sso.Handlers
	SessionTTL int64 // seconds
}

// NewServer builds the Server and registers every route. The returned
// Server is immediately usable as an http.Handler.
func NewServer(cfg Config) *Server {
	s := &Server{
		cat:        cfg.Catalog,
		registry:   cfg.Registry,
		authn:      cfg.Authn,
		authz:      cfg.Authz,
		tokens:     cfg.Tokens,
		sessions:   cfg.Sessions,
		staging:    cfg.Staging,
		log:        cfg.Logger,
		audit:      cfg.Audit,
		sso:        cfg.SSO,
		sessionTTL: cfg.SessionTTL,
		router:     mux.NewRouter(),
	}
	if cfg.AuditStore != nil {
		s.auditHandlers = audit.NewHandlers(cfg.AuditStore)
	}
	s.setupRoutes()
	return s
}

// logAudit records an audit event if an audit logger was configured;
// every call site is written so it's a no-op otherwise, since most
// deployments run without a catalog database large enough to justify one.
func (s *Server) logAudit(ctx context.Context, fn func(audit.Logger)) {
	if s.audit == nil {
		return
	}
	fn(s.audit)
}

// ServeHTTP lets Server be mounted directly as an http.Handler, or as one
// root among the protocol dispatcher's /repositories and /api subtrees.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes wires every route group onto one router. Auth middleware is
// applied per-subrouter rather than globally: install and login must stay
// reachable by an anonymous caller, while everything else requires at
// least a resolved Principal (anonymous browse/badge reads are handled
// inside their own handlers via optional auth, since visibility there is
// per-repository rather than a blanket policy).
func (s *Server) setupRoutes() {
	optional := middleware.NewAuthMiddleware(s.authn, true)
	required := middleware.NewAuthMiddleware(s.authn, false)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(requestIDMiddleware)

	// Anonymous-reachable: first-run install and login.
	api.HandleFunc("/install", s.handleInstall).Methods(http.MethodPost)
	api.Handle("/user/login", optional.Handler(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPut)

	authed := api.NewRoute().Subrouter()
	authed.Use(required.Handler)
	authed.HandleFunc("/user/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/user/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/user/tokens", s.handleListTokens).Methods(http.MethodGet)
	authed.HandleFunc("/user/tokens", s.handleCreateToken).Methods(http.MethodPost)
	authed.HandleFunc("/user/tokens/{tokenID:[0-9]+}", s.handleRevokeToken).Methods(http.MethodDelete)

	// Staging write-authorizes per repository inside each handler, same as
	// a direct protocol upload would, rather than admin-gating the whole
	// subtree: any caller with write access to the target repository can
	// stage and promote files into it.
	authed.HandleFunc("/staging", s.handleCreateStage).Methods(http.MethodPost)
	authed.HandleFunc("/staging/{stageID}", s.handleAbandonStage).Methods(http.MethodDelete)
	authed.HandleFunc("/staging/{stageID}/files", s.handleListStageFiles).Methods(http.MethodGet)
	authed.HandleFunc("/staging/{stageID}/files/{path:.*}", s.handleAddStageFile).Methods(http.MethodPut)
	authed.HandleFunc("/staging/{stageID}/promote", s.handlePromoteStage).Methods(http.MethodPost)

	admin := api.NewRoute().Subrouter()
	admin.Use(required.Handler, middleware.RequireAdmin)
	admin.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{userID:[0-9]+}/permissions", s.handleSetUserPermissions).Methods(http.MethodPut)
	admin.HandleFunc("/storages", s.handleListStorages).Methods(http.MethodGet)
	admin.HandleFunc("/storages", s.handleCreateStorage).Methods(http.MethodPost)
	admin.HandleFunc("/storages/{storageID}", s.handleDeactivateStorage).Methods(http.MethodDelete)
	admin.HandleFunc("/storages/{storageID}/purge", s.handlePurgeStorage).Methods(http.MethodDelete)
	admin.HandleFunc("/repositories", s.handleListRepositories).Methods(http.MethodGet)
	admin.HandleFunc("/repositories", s.handleCreateRepository).Methods(http.MethodPost)
	admin.HandleFunc("/repositories/{repositoryID}", s.handleSetRepositoryState).Methods(http.MethodPatch)
	admin.HandleFunc("/repositories/{repositoryID}", s.handleDeleteRepository).Methods(http.MethodDelete)
	admin.HandleFunc("/repositories/{repositoryID}/permissions/{userID:[0-9]+}", s.handleSetRepositoryPermission).Methods(http.MethodPut)
	admin.HandleFunc("/projects/{projectID}/members", s.handleListProjectMembers).Methods(http.MethodGet)
	admin.HandleFunc("/projects/{projectID}/members/{userID:[0-9]+}", s.handleSetProjectMember).Methods(http.MethodPut)
	admin.HandleFunc("/projects/{projectID}/members/{userID:[0-9]+}", s.handleRemoveProjectMember).Methods(http.MethodDelete)
	// Config document path matches the wire contract's singular
	// /api/repository/<id>/config/<key> exactly, distinct from the
	// plural /api/repositories collection routes above.
	admin.HandleFunc("/repository/{repositoryID}/config/{key}", s.handleGetRepositoryConfig).Methods(http.MethodGet)
	admin.HandleFunc("/repository/{repositoryID}/config/{key}", s.handleSetRepositoryConfig).Methods(http.MethodPut)

	// Audit log browsing and SSO provider configuration are both
	// admin-only: anyone who can read an audit trail or register an
	// identity provider for this installation must already be an admin.
	if s.auditHandlers != nil {
		s.auditHandlers.RegisterRoutes(admin)
	}
	if s.sso != nil {
		s.sso.RegisterAdminRoutes(admin)
		// Login/callback/logout stay anonymous: a caller presents no
		// session until the federated callback completes.
		s.sso.RegisterAuthRoutes(api)
	}

	// Browse is read-access-gated per-repository, not admin-gated, so it
	// sits under the optionally-authenticated subrouter.
	browse := api.NewRoute().Subrouter()
	browse.Use(optional.Handler)
	browse.HandleFunc("/browse/{storage}/{repository}", s.handleBrowseRoot).Methods(http.MethodGet)
	browse.HandleFunc("/browse/{storage}/{repository}/{path:.*}", s.handleBrowsePath).Methods(http.MethodGet)

	badge := s.router.PathPrefix("/badge").Subrouter()
	badge.Use(requestIDMiddleware, optional.Handler)
	badge.HandleFunc("/{storage}/{repository}", s.handleRepositoryBadge).Methods(http.MethodGet)
	badge.HandleFunc("/{storage}/{repository}/project/{projectKey}", s.handleProjectBadge).Methods(http.MethodGet)
}

// requestIDMiddleware assigns or echoes X-Request-Id and attaches the id
// to the request context, from which every handler below derives a
// request-scoped logger via s.requestLogger.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := contextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeInternal(w http.ResponseWriter, err error) {
	httputil.WriteInternalError(w, err)
}
