package indexing

import (
	"encoding/json"
	"fmt"
	"io"
)

// PackageJSON is the subset of an npm package.json manifest this pipeline
// extracts. Author may be a plain string or an object in the wild; both
// forms are accepted.
type PackageJSON struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	License     string          `json:"license"`
	Homepage    string          `json:"homepage"`
	Repository  json.RawMessage `json:"repository"`
	Author      json.RawMessage `json:"author"`
	Authors     []string        `json:"-"`
}

// ParsePackageJSON parses an npm manifest and normalizes the author field.
func ParsePackageJSON(r io.Reader) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.NewDecoder(r).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("indexing: parsing package.json: %w", err)
	}
	if pkg.Name == "" || pkg.Version == "" {
		return nil, fmt.Errorf("indexing: package.json missing name or version")
	}
	pkg.Authors = normalizeAuthors(pkg.Author)
	return &pkg, nil
}

func normalizeAuthors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if json.Unmarshal(raw, &asString) == nil && asString != "" {
		return []string{asString}
	}
	var asObject struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &asObject) == nil && asObject.Name != "" {
		return []string{asObject.Name}
	}
	return nil
}

// Key is the catalog Project key: the npm package name as published,
// including its scope. It is returned unchanged; Pipeline.reconcile
// lowercases it before the catalog lookup.
func (p *PackageJSON) Key() string { return p.Name }
