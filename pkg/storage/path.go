package storage

import "strings"

// sidecarSuffix marks a file as metadata rather than object content. Sidecar
// files are never surfaced by directory streams or open_file.
const sidecarSuffix = ".nr-meta"

// Components splits a storage path into its non-empty, "/"-joined segments.
// An empty input yields the repository root (no segments).
func Components(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ValidatePath rejects paths containing empty components or traversal
// segments, returning ErrInvalidPath wrapped with the offending path.
func ValidatePath(repo, path string) error {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil // repository root is always valid
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "." || part == ".." {
			return newErr(ErrInvalidPath, repo, path, nil)
		}
	}
	return nil
}

func isSidecar(name string) bool {
	return strings.HasSuffix(name, sidecarSuffix)
}

func sidecarName(objectName string) string {
	return objectName + sidecarSuffix
}

func join(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}
