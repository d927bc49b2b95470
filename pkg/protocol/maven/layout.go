package maven

import (
	"strings"
)

// isSnapshot reports whether a Maven version string denotes a snapshot,
// the standard "-SNAPSHOT" suffix convention.
func isSnapshot(version string) bool {
	return strings.Contains(version, "-SNAPSHOT")
}

// versionFromPath extracts the version directory segment from a standard
// Maven 2 layout path: <group-with-slashes>/<artifact>/<version>/<file>.
// Returns "" if the path is too shallow to contain one.
func versionFromPath(objectPath string) string {
	parts := strings.Split(strings.Trim(objectPath, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// versionDirectory returns the storage-relative directory containing
// objectPath's file, i.e. objectPath with its final segment removed.
func versionDirectory(objectPath string) string {
	idx := strings.LastIndex(objectPath, "/")
	if idx < 0 {
		return ""
	}
	return objectPath[:idx]
}
