package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/protocol"
)

// projectRepository resolves a project and write-authorizes the caller
// against its owning repository; membership itself grants no permissions
// of its own, it only narrows what a push rule like
// maven.PushRules.MustBeProjectMember additionally requires.
func (s *Server) projectRepository(w http.ResponseWriter, r *http.Request, projectID uuid.UUID) (*catalog.Project, bool) {
	project, err := s.cat.GetProjectByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project not found")
			return nil, false
		}
		writeInternal(w, err)
		return nil, false
	}
	repo, err := s.cat.GetRepository(r.Context(), project.RepositoryID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "repository not found")
			return nil, false
		}
		writeInternal(w, err)
		return nil, false
	}
	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckWrite(r.Context(), s.authz, principal, *repo); perr != nil {
		protocol.WriteError(w, perr)
		return nil, false
	}
	return project, true
}

func (s *Server) handleListProjectMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "projectID")
	if !ok {
		return
	}
	if _, ok := s.projectRepository(w, r, id); !ok {
		return
	}
	members, err := s.cat.ListProjectMembers(r.Context(), id)
	if err != nil {
		writeInternal(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

type setProjectMemberRequest struct {
	CanWrite  bool `json:"can_write"`
	CanManage bool `json:"can_manage"`
}

func (s *Server) handleSetProjectMember(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "projectID")
	if !ok {
		return
	}
	if _, ok := s.projectRepository(w, r, id); !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}
	var req setProjectMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	member := catalog.ProjectMember{ProjectID: id, UserID: userID, CanWrite: req.CanWrite, CanManage: req.CanManage}
	if err := s.cat.AddProjectMember(r.Context(), member); err != nil {
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataProjectUpdate, actorID(r), audit.ResourceTypeProject, id.String(), nil, "project member added")
	})
	httputil.WriteSuccess(w, member)
}

func (s *Server) handleRemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "projectID")
	if !ok {
		return
	}
	if _, ok := s.projectRepository(w, r, id); !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}
	if err := s.cat.RemoveProjectMember(r.Context(), id, userID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project member not found")
			return
		}
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataProjectUpdate, actorID(r), audit.ResourceTypeProject, id.String(), nil, "project member removed")
	})
	httputil.WriteNoContent(w)
}
