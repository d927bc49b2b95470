package indexing

import (
	"strings"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// ClassifyRelease derives a release type from a version string, per the
// ordered cascade. Order matters: "1.0.0-SNAPSHOT" must classify as
// Snapshot even though it also happens to contain no other marker, and a
// hypothetical "2.0-alpha-SNAPSHOT" must still land on Snapshot since that
// check runs first.
func ClassifyRelease(version string) catalog.ReleaseType {
	lower := strings.ToLower(version)
	switch {
	case strings.Contains(lower, "snapshot"):
		return catalog.ReleaseSnapshot
	case strings.Contains(lower, "alpha"):
		return catalog.ReleaseAlpha
	case strings.Contains(lower, "beta"):
		return catalog.ReleaseBeta
	case strings.Contains(lower, ".rc"):
		return catalog.ReleaseCandidate
	default:
		return catalog.ReleaseStable
	}
}
