package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/observability"
)

// Manifest is the ecosystem-neutral shape the reconciler works from; Maven
// and npm manifests both reduce to this before hitting the catalog.
type Manifest struct {
	Key         string
	Version     string
	DisplayName string
	Description string
	Authors     []string
	License     string
	Homepage    string
	Source      string
}

func (p *Pom) ToManifest() Manifest {
	return Manifest{Key: p.Key(), Version: p.Version, DisplayName: p.Name, Description: p.Description}
}

func (p *PackageJSON) ToManifest() Manifest {
	return Manifest{
		Key:         p.Key(),
		Version:     p.Version,
		Description: p.Description,
		Authors:     p.Authors,
		License:     p.License,
		Homepage:    p.Homepage,
	}
}

func (m Manifest) extraJSON() []byte {
	extra := struct {
		Description string   `json:"description,omitempty"`
		Authors     []string `json:"authors,omitempty"`
		License     string   `json:"license,omitempty"`
		Homepage    string   `json:"homepage,omitempty"`
		Source      string   `json:"source,omitempty"`
	}{m.Description, m.Authors, m.License, m.Homepage, m.Source}
	encoded, err := json.Marshal(extra)
	if err != nil {
		return []byte(`{}`)
	}
	return encoded
}

// Pipeline reconciles parsed manifests into the catalog and never lets a
// failure propagate back to the upload that triggered it.
type Pipeline struct {
	catalog *catalog.Catalog
	log     *observability.Logger
}

func NewPipeline(c *catalog.Catalog, log *observability.Logger) *Pipeline {
	return &Pipeline{catalog: c, log: log}
}

// Index reconciles one uploaded artifact's manifest. versionStoragePath is
// the storage-relative directory holding this version's files (its parent
// becomes the project's storage_path on first creation). publisherUserID
// may be nil for anonymous/proxy-sourced uploads. Errors are logged, never
// returned — callers invoke this fire-and-forget after the bytes land.
func (p *Pipeline) Index(ctx context.Context, repositoryID uuid.UUID, versionStoragePath string, publisherUserID *int64, m Manifest) {
	if err := p.reconcile(ctx, repositoryID, versionStoragePath, publisherUserID, m); err != nil && p.log != nil {
		p.log.WithField("project_key", m.Key).WithField("version", m.Version).WithError(err).Error("indexing: reconciliation failed")
	}
}

func (p *Pipeline) reconcile(ctx context.Context, repoID uuid.UUID, versionStoragePath string, publisherUserID *int64, m Manifest) error {
	key := strings.ToLower(m.Key)
	project, err := p.catalog.GetProjectByKey(ctx, repoID, key)
	if err != nil && err != catalog.ErrNotFound {
		return fmt.Errorf("looking up project: %w", err)
	}

	if err == catalog.ErrNotFound {
		project = &catalog.Project{
			RepositoryID: repoID,
			Key:          key,
			DisplayName:  m.DisplayName,
			Description:  m.Description,
			StoragePath:  path.Dir(versionStoragePath),
		}
		if createErr := p.catalog.CreateProject(ctx, project); createErr != nil {
			return fmt.Errorf("creating project: %w", createErr)
		}
		if publisherUserID != nil {
			if memberErr := p.catalog.AddProjectMember(ctx, catalog.ProjectMember{
				ProjectID: project.ID, UserID: *publisherUserID, CanWrite: true, CanManage: true,
			}); memberErr != nil {
				return fmt.Errorf("adding first project member: %w", memberErr)
			}
		}
	}

	releaseType := ClassifyRelease(m.Version)
	extra := m.extraJSON()

	version, err := p.catalog.GetVersion(ctx, project.ID, m.Version)
	switch {
	case err == catalog.ErrNotFound:
		version = &catalog.ProjectVersion{
			ProjectID:       project.ID,
			Version:         m.Version,
			ReleaseType:     releaseType,
			StoragePath:     versionStoragePath,
			PublisherUserID: publisherUserID,
			Extra:           extra,
		}
		if createErr := p.catalog.CreateVersion(ctx, version); createErr != nil {
			return fmt.Errorf("creating version: %w", createErr)
		}
	case err != nil:
		return fmt.Errorf("looking up version: %w", err)
	default:
		version.ReleaseType = releaseType
		version.Extra = extra
		if updateErr := p.catalog.UpdateVersion(ctx, version); updateErr != nil {
			return fmt.Errorf("updating version: %w", updateErr)
		}
	}

	return p.catalog.TouchProject(ctx, project.ID)
}
