package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/protocol"
	"github.com/nitro-repo/nitro-repo/pkg/staging"
)

// stagingRepository resolves and write-authorizes the repository a stage
// belongs to. Every staging operation past creation re-checks this, since
// a stage outlives the request that created it and permissions can change
// in between.
func (s *Server) stagingRepository(w http.ResponseWriter, r *http.Request, stageID uuid.UUID) (catalog.Repository, bool) {
	stage, err := s.staging.Stage(stageID)
	if err != nil {
		if errors.Is(err, staging.ErrStageNotFound) {
			httputil.WriteNotFoundError(w, "stage not found")
			return catalog.Repository{}, false
		}
		writeInternal(w, err)
		return catalog.Repository{}, false
	}
	repo, err := s.cat.GetRepository(r.Context(), stage.RepositoryID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "repository not found")
			return catalog.Repository{}, false
		}
		writeInternal(w, err)
		return catalog.Repository{}, false
	}
	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckWrite(r.Context(), s.authz, principal, *repo); perr != nil {
		protocol.WriteError(w, perr)
		return catalog.Repository{}, false
	}
	return *repo, true
}

type createStageRequest struct {
	RepositoryID string          `json:"repository_id"`
	State        json.RawMessage `json:"state"`
}

type stageResponse struct {
	ID           uuid.UUID       `json:"id"`
	RepositoryID uuid.UUID       `json:"repository_id"`
	State        json.RawMessage `json:"state,omitempty"`
}

// handleCreateStage opens a new staged upload against a repository the
// caller already has write access to. The stage itself carries no
// permissions of its own; every later operation re-resolves and
// re-authorizes against its owning repository.
func (s *Server) handleCreateStage(w http.ResponseWriter, r *http.Request) {
	var req createStageRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	repoID, err := uuid.Parse(req.RepositoryID)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid repository_id")
		return
	}
	repo, err := s.cat.GetRepository(r.Context(), repoID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}
	principal := middleware.GetPrincipal(r)
	if perr := protocol.CheckWrite(r.Context(), s.authz, principal, *repo); perr != nil {
		protocol.WriteError(w, perr)
		return
	}

	creator := int64(0)
	if principal != nil && principal.User != nil {
		creator = principal.User.ID
	}
	stage, err := s.staging.CreateStage(r.Context(), repoID, creator, req.State)
	if err != nil {
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataFileUpload, actorID(r), audit.ResourceTypeStage, stage.ID.String(), nil, "stage created")
	})
	httputil.WriteCreated(w, stageResponse{ID: stage.ID, RepositoryID: stage.RepositoryID, State: stage.State})
}

// handleAddStageFile streams the request body straight into the staged
// file; nothing about the upload touches the catalog or the repository's
// real storage backend until the stage is promoted.
func (s *Server) handleAddStageFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "stageID")
	if !ok {
		return
	}
	if _, ok := s.stagingRepository(w, r, id); !ok {
		return
	}
	name, ok := httputil.ParsePathStringOrError(w, r, "path")
	if !ok {
		return
	}
	defer r.Body.Close()
	if err := s.staging.AddFile(r.Context(), id, name, r.Body); err != nil {
		if errors.Is(err, staging.ErrStageNotFound) {
			httputil.WriteNotFoundError(w, "stage not found")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleListStageFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "stageID")
	if !ok {
		return
	}
	if _, ok := s.stagingRepository(w, r, id); !ok {
		return
	}
	names, err := s.staging.ListFiles(r.Context(), id)
	if err != nil {
		if errors.Is(err, staging.ErrStageNotFound) {
			httputil.WriteNotFoundError(w, "stage not found")
			return
		}
		writeInternal(w, err)
		return
	}
	httputil.WriteSuccess(w, names)
}

// handlePromoteStage moves every staged file into the repository's real
// storage backend and discards the stage. Catalog reconciliation for any
// manifest among the promoted files happens the same way it would for a
// direct protocol upload: indexing runs against the backend, not here.
func (s *Server) handlePromoteStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "stageID")
	if !ok {
		return
	}
	repo, ok := s.stagingRepository(w, r, id)
	if !ok {
		return
	}
	backend, _, err := s.registry.Backend(r.Context(), repo.ID)
	if err != nil {
		writeInternal(w, err)
		return
	}
	if err := s.staging.PromoteStage(r.Context(), id, backend); err != nil {
		if errors.Is(err, staging.ErrStageNotFound) {
			httputil.WriteNotFoundError(w, "stage not found")
			return
		}
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataFileUpload, actorID(r), audit.ResourceTypeStage, id.String(), nil, "stage promoted")
	})
	httputil.WriteNoContent(w)
}

func (s *Server) handleAbandonStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "stageID")
	if !ok {
		return
	}
	if _, ok := s.stagingRepository(w, r, id); !ok {
		return
	}
	if err := s.staging.AbandonStage(r.Context(), id); err != nil {
		if errors.Is(err, staging.ErrStageNotFound) {
			httputil.WriteNotFoundError(w, "stage not found")
			return
		}
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataFileDelete, actorID(r), audit.ResourceTypeStage, id.String(), nil, "stage abandoned")
	})
	httputil.WriteNoContent(w)
}
