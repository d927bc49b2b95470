package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
)

type createRepositoryRequest struct {
	StorageID  string                 `json:"storage_id"`
	Name       string                 `json:"name"`
	Type       catalog.RepositoryType `json:"type"`
	SubType    string                 `json:"sub_type"`
	Visibility catalog.Visibility     `json:"visibility"`
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	var storageIDPtr *uuid.UUID
	if raw := r.URL.Query().Get("storage_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid storage_id")
			return
		}
		storageIDPtr = &id
	}
	repos, err := s.cat.ListRepositories(r.Context(), storageIDPtr)
	if err != nil {
		writeInternal(w, err)
		return
	}
	httputil.WriteSuccess(w, repos)
}

func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	var req createRepositoryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		func() (bool, string) { return req.Name != "", "name is required" },
		func() (bool, string) { return req.Type == catalog.RepositoryTypeMaven || req.Type == catalog.RepositoryTypeNpm, "type must be maven or npm" },
	) {
		return
	}
	storageID, err := uuid.Parse(req.StorageID)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid storage_id")
		return
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = catalog.VisibilityPublic
	}

	repo := &catalog.Repository{
		StorageID:  storageID,
		Name:       req.Name,
		Type:       req.Type,
		SubType:    req.SubType,
		Active:     true,
		Visibility: visibility,
	}
	if err := s.cat.CreateRepository(r.Context(), repo); err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			httputil.WriteConflict(w, "repository name already in use for this storage")
			return
		}
		writeInternal(w, err)
		return
	}

	if err := s.registry.Add(r.Context(), *repo); err != nil {
		s.requestLogger(r.Context()).WithError(err).WithField("repository", repo.Name).Warn("repository created but failed to load into registry")
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataRepositoryCreate, actorID(r), audit.ResourceTypeRepository, repo.ID.String(), nil, "repository created")
	})
	httputil.WriteCreated(w, repo)
}

type setRepositoryStateRequest struct {
	Active     *bool               `json:"active"`
	Visibility *catalog.Visibility `json:"visibility"`
}

func (s *Server) handleSetRepositoryState(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "repositoryID")
	if !ok {
		return
	}
	existing, err := s.cat.GetRepository(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}

	var req setRepositoryStateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	active, visibility := existing.Active, existing.Visibility
	if req.Active != nil {
		active = *req.Active
	}
	if req.Visibility != nil {
		visibility = *req.Visibility
	}
	if err := s.cat.SetRepositoryActiveVisibility(r.Context(), id, active, visibility); err != nil {
		writeInternal(w, err)
		return
	}
	if err := s.registry.Reload(r.Context(), id); err != nil {
		s.requestLogger(r.Context()).WithError(err).WithField("repository_id", id).Warn("repository state changed but reload into registry failed")
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		changes := &audit.ChangeDetails{
			Before: map[string]interface{}{"active": existing.Active, "visibility": existing.Visibility},
			After:  map[string]interface{}{"active": active, "visibility": visibility},
		}
		a.LogDataMutation(r.Context(), audit.EventTypeDataRepositoryUpdate, actorID(r), audit.ResourceTypeRepository, id.String(), changes, "repository state changed")
	})
	httputil.WriteNoContent(w)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "repositoryID")
	if !ok {
		return
	}
	if err := s.cat.DeleteRepository(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		writeInternal(w, err)
		return
	}
	s.registry.Remove(id)
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataRepositoryDelete, actorID(r), audit.ResourceTypeRepository, id.String(), nil, "repository deleted")
	})
	httputil.WriteNoContent(w)
}

func (s *Server) handleGetRepositoryConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "repositoryID")
	if !ok {
		return
	}
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}
	doc, err := s.cat.GetRepositoryConfig(r.Context(), id, key)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteNotFoundError(w, "config document not set")
			return
		}
		writeInternal(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(doc.Value)
}

func (s *Server) handleSetRepositoryConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "repositoryID")
	if !ok {
		return
	}
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}
	var raw json.RawMessage
	if !httputil.ParseJSONOrError(w, r, &raw) {
		return
	}
	if err := validateConfigDocument(key, raw); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := s.cat.SetRepositoryConfig(r.Context(), id, key, raw); err != nil {
		writeInternal(w, err)
		return
	}
	if err := s.registry.Reload(r.Context(), id); err != nil {
		s.requestLogger(r.Context()).WithError(err).WithField("repository_id", id).Warn("config changed but reload into registry failed")
	}
	httputil.WriteNoContent(w)
}

type setRepositoryPermissionRequest struct {
	Actions []catalog.Action `json:"actions"`
}

func (s *Server) handleSetRepositoryPermission(w http.ResponseWriter, r *http.Request) {
	repositoryID, ok := parseUUIDPathVar(w, r, "repositoryID")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}
	var req setRepositoryPermissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.cat.SetUserRepositoryPermission(r.Context(), userID, repositoryID, req.Actions); err != nil {
		writeInternal(w, err)
		return
	}
	if err := s.authz.Invalidate(r.Context(), userID, repositoryID); err != nil {
		s.requestLogger(r.Context()).WithError(err).Warn("failed to invalidate cached authorization decision")
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogAuthorization(r.Context(), audit.EventTypeAuthzPermissionGrant, actorID(r), audit.ResourceTypeRepository, repositoryID.String(), audit.EventStatusSuccess, "repository permission updated")
	})
	httputil.WriteNoContent(w)
}
