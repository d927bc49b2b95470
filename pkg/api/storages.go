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
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

// actorID returns the authenticated principal's user ID, or nil when
// called outside a request carrying one (only possible in tests).
func actorID(r *http.Request) *int64 {
	if p := middleware.GetPrincipal(r); p != nil && p.User != nil {
		return &p.User.ID
	}
	return nil
}

type createStorageRequest struct {
	Name   string          `json:"name"`
	Kind   storage.Kind    `json:"kind"`
	Config json.RawMessage `json:"config"`
}

func (s *Server) handleListStorages(w http.ResponseWriter, r *http.Request) {
	storages, err := s.cat.ListStorages(r.Context())
	if err != nil {
		writeInternal(w, err)
		return
	}
	httputil.WriteSuccess(w, storages)
}

// handleCreateStorage validates the kind-discriminated config document
// against its own Validate, plus a live probe via the constructed backend's
// ValidateConfigChange, before ever persisting the Storage row: a bad
// bucket or unwritable path should fail here, not on the first upload.
func (s *Server) handleCreateStorage(w http.ResponseWriter, r *http.Request) {
	var req createStorageRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	cfg := storage.Config{Kind: req.Kind}
	switch req.Kind {
	case storage.KindLocal:
		if err := json.Unmarshal(req.Config, &cfg.Local); err != nil {
			httputil.WriteBadRequest(w, "invalid local config: "+err.Error())
			return
		}
	case storage.KindS3:
		if err := json.Unmarshal(req.Config, &cfg.S3); err != nil {
			httputil.WriteBadRequest(w, "invalid s3 config: "+err.Error())
			return
		}
	default:
		httputil.WriteBadRequest(w, "unknown storage kind")
		return
	}
	if err := cfg.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	var backend storage.Backend
	var err error
	switch cfg.Kind {
	case storage.KindLocal:
		backend, err = storage.NewLocalBackend(cfg.Local.Path)
	case storage.KindS3:
		backend, err = storage.NewS3Backend(r.Context(), cfg.S3)
	}
	if err != nil {
		httputil.WriteValidationError(w, "constructing backend: "+err.Error())
		return
	}
	if err := backend.ValidateConfigChange(r.Context(), cfg); err != nil {
		httputil.WriteValidationError(w, "storage unreachable: "+err.Error())
		return
	}

	encoded, err := json.Marshal(cfg)
	if err != nil {
		writeInternal(w, err)
		return
	}
	row := &catalog.Storage{Name: req.Name, Kind: string(req.Kind), Config: encoded, Active: true}
	if err := s.cat.CreateStorage(r.Context(), row); err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			httputil.WriteConflict(w, "storage name already in use")
			return
		}
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataStorageCreate, actorID(r), audit.ResourceTypeStorage, row.ID.String(), nil, "storage created")
	})
	httputil.WriteCreated(w, row)
}

// handleDeactivateStorage marks a storage inactive without deleting it, the
// reversible half of the storage lifecycle; new repositories can no longer
// be created against it but existing ones keep serving.
func (s *Server) handleDeactivateStorage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "storageID")
	if !ok {
		return
	}
	if err := s.cat.DeactivateStorage(r.Context(), id); err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "storage not found")
			return
		}
		writeInternal(w, err)
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataStorageDeactivate, actorID(r), audit.ResourceTypeStorage, id.String(), nil, "storage deactivated")
	})
	httputil.WriteNoContent(w)
}

// handlePurgeStorage permanently deletes a storage row, refused while any
// repository still references it, per the storage lifecycle invariant.
func (s *Server) handlePurgeStorage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPathVar(w, r, "storageID")
	if !ok {
		return
	}
	if err := s.cat.DeleteStorage(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			httputil.WriteNotFoundError(w, "storage not found")
		case errors.Is(err, catalog.ErrConflict):
			httputil.WriteConflict(w, err.Error())
		default:
			writeInternal(w, err)
		}
		return
	}
	s.logAudit(r.Context(), func(a audit.Logger) {
		a.LogDataMutation(r.Context(), audit.EventTypeDataStoragePurge, actorID(r), audit.ResourceTypeStorage, id.String(), nil, "storage purged")
	})
	httputil.WriteNoContent(w)
}

func parseUUIDPathVar(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	raw, ok := httputil.ParsePathStringOrError(w, r, key)
	if !ok {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid id: "+raw)
		return uuid.UUID{}, false
	}
	return id, true
}

