package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/protocol"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

// browseEntry is one child in a directory listing, decorated with its
// catalog project identity when the child's name matches a known project
// key directly under the repository root.
type browseEntry struct {
	storage.FileMeta
	Project *catalog.Project `json:"project,omitempty"`
}

type browseResponse struct {
	Path    string        `json:"path"`
	Entries []browseEntry `json:"entries"`
}

func (s *Server) handleBrowseRoot(w http.ResponseWriter, r *http.Request) {
	s.browse(w, r, "")
}

func (s *Server) handleBrowsePath(w http.ResponseWriter, r *http.Request) {
	s.browse(w, r, mux.Vars(r)["path"])
}

func (s *Server) browse(w http.ResponseWriter, r *http.Request, path string) {
	storageName := mux.Vars(r)["storage"]
	repoName := mux.Vars(r)["repository"]

	_, repo, err := s.registry.GetByName(r.Context(), storageName, repoName)
	if err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}

	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckRead(r.Context(), s.authz, principal, repo, true); perr != nil {
		protocol.WriteError(w, perr)
		return
	}

	backend, _, err := s.registry.Backend(r.Context(), repo.ID)
	if err != nil {
		writeInternal(w, err)
		return
	}

	children, err := backend.StreamDirectory(r.Context(), repo.ID, path)
	if err != nil {
		if err == storage.ErrNotFound {
			httputil.WriteNotFoundError(w, "path not found")
			return
		}
		if err == storage.ErrExpectedDirectory {
			httputil.WriteBadRequest(w, "path is a file, not a directory")
			return
		}
		writeInternal(w, err)
		return
	}

	resp := browseResponse{Path: path, Entries: []browseEntry{}}
	decorateAtRoot := path == "" || path == "/"
	for child := range children {
		if child.Err != nil {
			writeInternal(w, child.Err)
			return
		}
		entry := browseEntry{FileMeta: child.Meta}
		if decorateAtRoot && child.Meta.Kind == storage.KindDirectory {
			if project, err := s.cat.GetProjectByKey(r.Context(), repo.ID, strings.ToLower(child.Meta.Name)); err == nil {
				entry.Project = project
			}
		}
		resp.Entries = append(resp.Entries, entry)
	}
	httputil.WriteSuccess(w, resp)
}
