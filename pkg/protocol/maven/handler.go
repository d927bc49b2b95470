// Package maven implements the Maven 2 repository protocol:
// hosted repositories accept PUT uploads gated by push-policy config,
// proxy repositories forward local misses to an upstream, grounded on
// original_source/backend/src/repository/maven/hosted.rs and
// .../staging/mod.rs's push-rule validation shape.
package maven

import (
	"context"
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

// indexTimeout bounds a background indexing run; a stuck manifest parse or
// catalog write must not leak a goroutine forever.
const indexTimeout = 30 * time.Second

// SubType distinguishes the two Maven sub-types recognized.
type SubType string

const (
	SubTypeHosted SubType = "hosted"
	SubTypeProxy  SubType = "proxy"
)

// ProxyConfigKey is the well-known config key carrying a Proxy repository's
// upstream base URL.
const ProxyConfigKey = "maven_proxy"

// ProxyConfig is the maven_proxy config document.
type ProxyConfig struct {
	UpstreamURL string `json:"upstream_url"`
}

// Handler serves one Maven repository, hosted or proxy.
type Handler struct {
	repo     catalog.Repository
	backend  storage.Backend
	cat      *catalog.Catalog
	authn    *identity.Authenticator
	authz    *identity.Authorizer
	pipeline *indexing.Pipeline
	upstream string // only set for proxy sub-type, resolved at build time
}

// NewFactory returns a registry.Factory building Maven handlers, capturing
// the collaborators every request needs: authentication, authorization, and
// the indexing pipeline triggered on POM upload.
func NewFactory(authn *identity.Authenticator, authz *identity.Authorizer, pipeline *indexing.Pipeline) registry.Factory {
	return func(repo catalog.Repository, backend storage.Backend, cat *catalog.Catalog) (registry.Handler, error) {
		h := &Handler{repo: repo, backend: backend, cat: cat, authn: authn, authz: authz, pipeline: pipeline}
		if SubType(repo.SubType) == SubTypeProxy {
			doc, err := cat.GetRepositoryConfig(context.Background(), repo.ID, ProxyConfigKey)
			if err != nil && err != catalog.ErrNotFound {
				return nil, fmt.Errorf("loading proxy config: %w", err)
			}
			if err == nil {
				var cfg ProxyConfig
				if err := json.Unmarshal(doc.Value, &cfg); err != nil {
					return nil, fmt.Errorf("decoding proxy config: %w", err)
				}
				h.upstream = cfg.UpstreamURL
			}
		}
		return h, nil
	}
}

func (h *Handler) Repository() catalog.Repository { return h.repo }

// ServeHTTP dispatches by method, the uniform contract every protocol
// handler implements.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, objectPath string) {
	ctx := r.Context()
	objectPath = strings.Trim(objectPath, "/")

	principal, err := h.authn.Authenticate(ctx, r)
	var principalPtr *identity.Principal
	if err == nil {
		principalPtr = &principal
	} else if err != identity.ErrUnauthenticated {
		protocol.WriteError(w, protocol.NewError(protocol.KindAuthenticationRequired, "invalid credential"))
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.handleRead(w, r, objectPath, principalPtr, r.Method == http.MethodHead)
	case http.MethodPut:
		h.handlePut(w, r, objectPath, principalPtr)
	default:
		protocol.WriteError(w, protocol.NewError(protocol.KindUnsupportedMethod,
			fmt.Sprintf("method %s is not supported by Maven repositories", r.Method)))
	}
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request, objectPath string, principal *identity.Principal, headOnly bool) {
	ctx := r.Context()
	meta, infoErr := h.backend.GetFileInformation(ctx, h.repo.ID, objectPath)
	isDir := infoErr == nil && meta != nil && meta.Kind == storage.KindDirectory

	if authErr := protocol.CheckRead(ctx, h.authz, principal, h.repo, isDir); authErr != nil {
		protocol.WriteError(w, authErr)
		return
	}

	if infoErr == storage.ErrNotFound {
		if SubType(h.repo.SubType) == SubTypeProxy && h.upstream != "" && !headOnly {
			h.proxyGet(w, r, objectPath)
			return
		}
		protocol.WriteError(w, protocol.NewError(protocol.KindNotFound, "artifact not found"))
		return
	}
	if infoErr != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "reading file information", infoErr))
		return
	}

	opened, err := h.backend.OpenFile(ctx, h.repo.ID, objectPath)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "opening file", err))
		return
	}
	if opened.Body != nil {
		defer opened.Body.Close()
	}

	w.Header().Set("Content-Type", contentTypeFor(opened.Meta))
	if headOnly {
		w.WriteHeader(http.StatusOK)
		return
	}
	if opened.Body != nil {
		io.Copy(w, opened.Body)
		return
	}
	protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, "cannot GET a directory"))
}

// proxyGet serves a local miss on a Proxy repository from the upstream,
// caching the bytes locally for subsequent requests.
func (h *Handler) proxyGet(w http.ResponseWriter, r *http.Request, objectPath string) {
	upstreamURL := strings.TrimRight(h.upstream, "/") + "/" + objectPath
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstreamURL, nil)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "building upstream request", err))
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindUpstreamUnavailable, "fetching from upstream", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		protocol.WriteError(w, protocol.NewError(protocol.KindNotFound, "artifact not found upstream"))
		return
	}
	if resp.StatusCode != http.StatusOK {
		protocol.WriteError(w, protocol.NewError(protocol.KindUpstreamUnavailable, "upstream returned an error"))
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindUpstreamUnavailable, "reading upstream body", err))
		return
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Write(body)

	if _, err := h.backend.SaveFile(r.Context(), h.repo.ID, objectPath, strings.NewReader(string(body))); err != nil && h.pipeline != nil {
		// Caching the proxied artifact is best-effort; a failure here must
		// not affect the response already sent to the client.
	}
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, objectPath string, principal *identity.Principal) {
	ctx := r.Context()

	if SubType(h.repo.SubType) == SubTypeProxy {
		protocol.WriteError(w, protocol.NewError(protocol.KindForbidden, "writes are not permitted on a proxy repository"))
		return
	}

	if authErr := protocol.CheckWrite(ctx, h.authz, principal, h.repo); authErr != nil {
		protocol.WriteError(w, authErr)
		return
	}

	version := versionFromPath(objectPath)
	rules, err := loadPushRules(ctx, h.cat, h.repo.ID)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "loading push rules", err))
		return
	}
	if version != "" {
		if policyErr := rules.checkPushPolicy(version); policyErr != nil {
			protocol.WriteError(w, protocol.NewError(protocol.KindBadRequest, policyErr.Error()))
			return
		}
	}
	if rules.MustUseAuthTokenForPush && (principal == nil || principal.Token == nil) {
		protocol.WriteError(w, protocol.NewError(protocol.KindForbidden, "this repository requires an auth token for push"))
		return
	}
	if rules.MustBeProjectMember {
		if memberErr := h.checkProjectMembership(ctx, objectPath, principal); memberErr != nil {
			protocol.WriteError(w, memberErr)
			return
		}
	}
	if !rules.AllowOverwrite {
		exists, err := h.backend.FileExists(ctx, h.repo.ID, objectPath)
		if err != nil {
			protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "checking existing file", err))
			return
		}
		if exists {
			protocol.WriteError(w, protocol.NewError(protocol.KindConflict, "artifact already exists and overwrite is disabled"))
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindBadRequest, "reading request body", err))
		return
	}
	if _, err := h.backend.SaveFile(ctx, h.repo.ID, objectPath, strings.NewReader(string(body))); err != nil {
		protocol.WriteError(w, protocol.WrapError(protocol.KindInternal, "saving artifact", err))
		return
	}

	if strings.HasSuffix(objectPath, ".pom") {
		h.indexPom(ctx, objectPath, principal, body)
	}

	w.WriteHeader(http.StatusCreated)
}

// indexPom parses an uploaded .pom file and enqueues catalog reconciliation
// in the background, so a slow or panicking indexer never holds up the
// artifact upload response. Malformed POMs are logged by the pipeline and
// never fail the upload.
func (h *Handler) indexPom(ctx context.Context, objectPath string, principal *identity.Principal, body []byte) {
	if h.pipeline == nil {
		return
	}
	pom, err := indexing.ParsePom(strings.NewReader(string(body)))
	if err != nil {
		return
	}
	var publisherID *int64
	if principal != nil && principal.User != nil {
		id := principal.User.ID
		publisherID = &id
	}
	detached := context.WithoutCancel(ctx)
	async.SafeGoNoError(detached, indexTimeout, "maven: index "+objectPath, func(ctx context.Context) {
		h.pipeline.Index(ctx, h.repo.ID, versionDirectory(objectPath), publisherID, pom.ToManifest())
	})
}

// checkProjectMembership rejects a push from a non-member when the target
// project already exists, per the must_be_project_member rule. A
// not-yet-created project has no members to check against, so the first
// publisher always succeeds.
func (h *Handler) checkProjectMembership(ctx context.Context, objectPath string, principal *identity.Principal) *protocol.Error {
	key := projectKeyFromPath(objectPath)
	if key == "" || principal == nil || principal.User == nil {
		return nil
	}
	project, err := h.cat.GetProjectByKey(ctx, h.repo.ID, key)
	if err == catalog.ErrNotFound {
		return nil
	}
	if err != nil {
		return protocol.WrapError(protocol.KindInternal, "looking up project", err)
	}
	hasMembers, err := h.cat.HasAnyProjectMembers(ctx, project.ID)
	if err != nil {
		return protocol.WrapError(protocol.KindInternal, "checking project membership", err)
	}
	if !hasMembers {
		// No one has been added as a member yet, so enforcing membership
		// would lock out every publisher, including whoever created the
		// project. Same bootstrap exemption as a not-yet-created project.
		return nil
	}
	isMember, err := h.cat.IsProjectMember(ctx, project.ID, principal.User.ID)
	if err != nil {
		return protocol.WrapError(protocol.KindInternal, "checking project membership", err)
	}
	if !isMember {
		return protocol.NewError(protocol.KindForbidden, "only existing project members may push to this project")
	}
	return nil
}

// projectKeyFromPath derives "<groupId>:<artifactId>" from a standard
// Maven 2 layout path, without needing to have parsed a POM yet.
func projectKeyFromPath(objectPath string) string {
	parts := strings.Split(strings.Trim(objectPath, "/"), "/")
	if len(parts) < 4 {
		return ""
	}
	artifactID := parts[len(parts)-3]
	groupID := strings.Join(parts[:len(parts)-3], ".")
	if groupID == "" || artifactID == "" {
		return ""
	}
	return groupID + ":" + artifactID
}

func contentTypeFor(meta storage.FileMeta) string {
	if meta.MimeType != "" {
		return meta.MimeType
	}
	return "application/octet-stream"
}
