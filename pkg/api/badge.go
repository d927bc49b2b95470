package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nitro-repo/nitro-repo/pkg/badge"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/protocol"
)

func (s *Server) writeBadge(w http.ResponseWriter, label, value string) {
	svg := badge.Render(badge.DefaultSettings(), label, value)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(svg))
}

// handleRepositoryBadge renders a badge naming the repository's ecosystem
// and visibility, for a repository with no single project identity to
// summarize (or as a landing badge before drilling into a project one).
func (s *Server) handleRepositoryBadge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, repo, err := s.registry.GetByName(r.Context(), vars["storage"], vars["repository"])
	if err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}
	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckRead(r.Context(), s.authz, principal, repo, false); perr != nil {
		protocol.WriteError(w, perr)
		return
	}
	s.writeBadge(w, string(repo.Type), string(repo.Visibility))
}

// handleProjectBadge renders the project's latest stable version as the
// badge value, falling back across release types the same way
// catalog.LatestVersion does, so a project with only snapshot releases
// still gets a badge instead of a 404.
func (s *Server) handleProjectBadge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, repo, err := s.registry.GetByName(r.Context(), vars["storage"], vars["repository"])
	if err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}
	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckRead(r.Context(), s.authz, principal, repo, false); perr != nil {
		protocol.WriteError(w, perr)
		return
	}

	project, err := s.cat.GetProjectByKey(r.Context(), repo.ID, strings.ToLower(vars["projectKey"]))
	if err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "project not found")
			return
		}
		writeInternal(w, err)
		return
	}

	for _, rt := range []catalog.ReleaseType{catalog.ReleaseStable, catalog.ReleaseCandidate, catalog.ReleaseBeta, catalog.ReleaseAlpha, catalog.ReleaseSnapshot} {
		version, err := s.cat.LatestVersion(r.Context(), project.ID, rt)
		if err == nil {
			s.writeBadge(w, project.Key, version.Version)
			return
		}
		if err != catalog.ErrNotFound {
			writeInternal(w, err)
			return
		}
	}
	httputil.WriteNotFoundError(w, "project has no published versions")
}
