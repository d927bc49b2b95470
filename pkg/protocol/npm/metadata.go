package npm

import (
	"encoding/json"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// PublishDocument is the body of a publish PUT: exactly one
// version in Versions and exactly one attachment in Attachments.
type PublishDocument struct {
	ID          string                 `json:"_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Versions    map[string]VersionDoc  `json:"versions"`
	Attachments map[string]Attachment  `json:"_attachments"`
}

// VersionDoc is one entry of a PublishDocument's "versions" map: the
// package.json contents for that version.
type VersionDoc struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	License     string          `json:"license"`
	Homepage    string          `json:"homepage"`
	Author      json.RawMessage `json:"author,omitempty"`
}

// Attachment is a base64-encoded tarball carried in a publish document.
type Attachment struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
	Length      int64  `json:"length"`
}

// MetadataDocument is the GET /<pkg> response: package metadata merged
// across every published version, the shape every npm client expects.
type MetadataDocument struct {
	ID          string                `json:"_id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	DistTags    map[string]string     `json:"dist-tags"`
	Versions    map[string]VersionDoc `json:"versions"`
}

// dist is embedded into each served version so a client knows where to
// fetch the tarball; npm's registry nests this under "dist" but this design
// keeps it as a sibling "dist.tarball" field added at serve time by the
// handler, which knows the request's base URL.

// BuildMetadataDocument merges a Project with its versions into the
// document a GET /<pkg> request expects. versions is assumed sorted
// newest-first, the same order ListVersions returns.
func BuildMetadataDocument(project catalog.Project, versions []catalog.ProjectVersion) MetadataDocument {
	doc := MetadataDocument{
		ID:          project.Key,
		Name:        project.Key,
		Description: project.Description,
		DistTags:    map[string]string{},
		Versions:    map[string]VersionDoc{},
	}

	latest := ""
	for _, v := range versions {
		extra := struct {
			Description string `json:"description"`
			License     string `json:"license"`
			Homepage    string `json:"homepage"`
		}{}
		_ = json.Unmarshal(v.Extra, &extra)

		doc.Versions[v.Version] = VersionDoc{
			Name:        project.Key,
			Version:     v.Version,
			Description: extra.Description,
			License:     extra.License,
			Homepage:    extra.Homepage,
		}
		if v.ReleaseType == catalog.ReleaseStable && latest == "" {
			latest = v.Version
		}
	}
	if latest == "" && len(versions) > 0 {
		latest = versions[0].Version
	}
	if latest != "" {
		doc.DistTags["latest"] = latest
	}
	return doc
}
