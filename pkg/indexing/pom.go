package indexing

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Pom is the subset of a Maven POM this pipeline cares about. Parent
// coordinates are consulted only to fill in groupId/version when the child
// POM omits them, the common case for multi-module projects.
type Pom struct {
	XMLName     xml.Name `xml:"project"`
	GroupID     string   `xml:"groupId"`
	ArtifactID  string   `xml:"artifactId"`
	Version     string   `xml:"version"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Parent      struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
}

// ParsePom parses a POM document and resolves groupId/version from the
// parent block when the child omits them.
func ParsePom(r io.Reader) (*Pom, error) {
	var pom Pom
	if err := xml.NewDecoder(r).Decode(&pom); err != nil {
		return nil, fmt.Errorf("indexing: parsing pom: %w", err)
	}
	if pom.ArtifactID == "" {
		return nil, fmt.Errorf("indexing: pom missing artifactId")
	}
	if pom.GroupID == "" {
		pom.GroupID = pom.Parent.GroupID
	}
	if pom.Version == "" {
		pom.Version = pom.Parent.Version
	}
	if pom.GroupID == "" || pom.Version == "" {
		return nil, fmt.Errorf("indexing: pom missing groupId or version and no parent supplies them")
	}
	return &pom, nil
}

// Key is the catalog Project key this POM resolves to: "<groupId>:<artifactId>".
func (p *Pom) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}
