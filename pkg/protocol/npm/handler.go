// Package npm implements the npm registry protocol: login, package
// metadata, tarball retrieval, and publish, all against a Hosted
// repository — npm has no recognized proxy sub-type in this design.
package npm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/pkg/async"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/nitro-repo/nitro-repo/pkg/indexing"
	"github.com/nitro-repo/nitro-repo/pkg/protocol"
	"github.com/nitro-repo/nitro-repo/pkg/registry"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

const loginPathPrefix = "-/user/org.couchdb.user:"

// indexTimeout bounds a background indexing run.
const indexTimeout = 30 * time.Second

// Handler serves one npm (Hosted) repository.
type Handler struct {
	repo     catalog.Repository
	backend  storage.Backend
	cat      *catalog.Catalog
	authn    *identity.Authenticator
	authz    *identity.Authorizer
	tokens   *identity.TokenIssuer
	pipeline *indexing.Pipeline
}

// NewFactory returns a registry.Factory building npm handlers.
func NewFactory(authn *identity.Authenticator, authz *identity.Authorizer, tokens *identity.TokenIssuer, pipeline *indexing.Pipeline) registry.Factory {
	return func(repo catalog.Repository, backend storage.Backend, cat *catalog.Catalog) (registry.Handler, error) {
		return &Handler{repo: repo, backend: backend, cat: cat, authn: authn, authz: authz, tokens: tokens, pipeline: pipeline}, nil
	}
}

func (h *Handler) Repository() catalog.Repository { return h.repo }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, objectPath string) {
	ctx := r.Context()
	objectPath = strings.Trim(objectPath, "/")

	if strings.HasPrefix(objectPath, loginPathPrefix) && r.Method == http.MethodPut {
		h.handleLogin(w, r, strings.TrimPrefix(objectPath, loginPathPrefix))
		return
	}

	principal, err := h.authn.Authenticate(ctx, r)
	var principalPtr *identity.Principal
	if err == nil {
		principalPtr = &principal
	} else if err != identity.ErrUnauthenticated {
		protocol.WriteError(w, protocol.NewError(protocol.KindAuthenticationRequired, "invalid credential"))
		return
	}

	pkgName, tarballName, isTarball := splitPackagePath(objectPath)
	if pkgName == "" || !ValidatePackageName(pkgName) {
		protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, "invalid package name"))
		return
	}

	switch {
	case r.Method == http.MethodGet && isTarball:
		h.handleTarball(w, r, pkgName, tarballName, principalPtr)
	case r.Method == http.MethodGet:
		h.handleMetadata(w, r, pkgName, principalPtr)
	case r.Method == http.MethodPut && !isTarball:
		h.handlePublish(w, r, pkgName, principalPtr)
	default:
		protocol.WriteError(w, protocol.NewError(protocol.KindNotFound, "unrecognized npm registry path"))
	}
}

// splitPackagePath separates a request path into its package name and, if
// present, trailing tarball file name, per the "/<pkg>/-/<tarball>" shape.
func splitPackagePath(objectPath string) (pkgName, tarballName string, isTarball bool) {
	if idx := strings.Index(objectPath, "/-/"); idx >= 0 {
		return objectPath[:idx], objectPath[idx+len("/-/"):], true
	}
	return objectPath, "", false
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request, username string) {
	ctx := r.Context()
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindBadRequest, "decoding login request", err))
		return
	}
	if body.Name == "" {
		body.Name = username
	}

	user, err := h.cat.GetUserByUsernameOrEmail(ctx, body.Name)
	if err != nil {
		protocol.WriteError(w, protocol.NewError(protocol.KindAuthenticationRequired, "invalid username or password"))
		return
	}
	ok, err := identity.VerifyPassword(body.Password, user.PasswordHash)
	if err != nil || !ok {
		protocol.WriteError(w, protocol.NewError(protocol.KindAuthenticationRequired, "invalid username or password"))
		return
	}

	plaintext, _, err := h.tokens.Issue(ctx, user.ID, "npm login", []catalog.Scope{catalog.ScopeReadRepository, catalog.ScopeWriteRepository}, nil, nil)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "issuing token", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct {
		Token string `json:"token"`
		OK    bool   `json:"ok"`
	}{Token: plaintext, OK: true})
}

func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request, pkgName string, principal *identity.Principal) {
	ctx := r.Context()
	if authErr := protocol.CheckRead(ctx, h.authz, principal, h.repo, false); authErr != nil {
		protocol.WriteError(w, authErr)
		return
	}

	project, err := h.cat.GetProjectByKey(ctx, h.repo.ID, strings.ToLower(pkgName))
	if err == catalog.ErrNotFound {
		protocol.WriteError(w, protocol.NewError(protocol.KindNotFound, "package not found"))
		return
	}
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "looking up package", err))
		return
	}

	page, err := h.cat.ListVersions(ctx, project.ID, catalog.PageParams{PageSize: 500})
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "listing versions", err))
		return
	}

	doc := BuildMetadataDocument(*project, page.Data)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *Handler) handleTarball(w http.ResponseWriter, r *http.Request, pkgName, tarballName string, principal *identity.Principal) {
	ctx := r.Context()
	if authErr := protocol.CheckRead(ctx, h.authz, principal, h.repo, false); authErr != nil {
		protocol.WriteError(w, authErr)
		return
	}
	if tarballName == "" {
		protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, "missing trailing slash on the repository base URL"))
		return
	}

	objectPath := pkgName + "/-/" + tarballName
	opened, err := h.backend.OpenFile(ctx, h.repo.ID, objectPath)
	if err == storage.ErrNotFound {
		protocol.WriteError(w, protocol.NewError(protocol.KindNotFound, "tarball not found"))
		return
	}
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "opening tarball", err))
		return
	}
	defer opened.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, opened.Body)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request, pkgName string, principal *identity.Principal) {
	ctx := r.Context()
	if authErr := protocol.CheckWrite(ctx, h.authz, principal, h.repo); authErr != nil {
		protocol.WriteError(w, authErr)
		return
	}

	var doc PublishDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindBadRequest, "decoding publish document", err))
		return
	}
	if len(doc.Versions) != 1 {
		protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, "publish document must contain exactly one version"))
		return
	}
	if len(doc.Attachments) != 1 {
		protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, "publish document must contain exactly one attachment"))
		return
	}

	var version VersionDoc
	for _, v := range doc.Versions {
		version = v
	}
	var attachmentName string
	var attachment Attachment
	for name, a := range doc.Attachments {
		attachmentName, attachment = name, a
	}

	tarball, err := base64.StdEncoding.DecodeString(attachment.Data)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindBadRequest, "decoding attachment", err))
		return
	}

	tarballPath := pkgName + "/-/" + attachmentName
	if _, err := h.backend.SaveFile(ctx, h.repo.ID, tarballPath, strings.NewReader(string(tarball))); err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "saving tarball", err))
		return
	}

	manifestPath := pkgName + "/" + version.Version + "/package.json"
	manifestJSON, _ := json.Marshal(version)
	if _, err := h.backend.SaveFile(ctx, h.repo.ID, manifestPath, strings.NewReader(string(manifestJSON))); err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "saving package.json", err))
		return
	}

	if h.pipeline != nil {
		if pkg, err := indexing.ParsePackageJSON(strings.NewReader(string(manifestJSON))); err == nil {
			var publisherID *int64
			if principal != nil && principal.User != nil {
				id := principal.User.ID
				publisherID = &id
			}
			versionPath := pkgName + "/" + version.Version
			detached := context.WithoutCancel(ctx)
			async.SafeGoNoError(detached, indexTimeout, "npm: index "+versionPath, func(ctx context.Context) {
				h.pipeline.Index(ctx, h.repo.ID, versionPath, publisherID, pkg.ToManifest())
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct {
		OK  bool   `json:"ok"`
		ID  string `json:"id"`
	}{OK: true, ID: fmt.Sprintf("%s@%s", pkgName, version.Version)})
}
