package indexing

import (
	"testing"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

func TestClassifyRelease(t *testing.T) {
	cases := map[string]catalog.ReleaseType{
		"1.0.0-SNAPSHOT": catalog.ReleaseSnapshot,
		"1.0.0.rc1":       catalog.ReleaseCandidate,
		"2.0.0-beta":      catalog.ReleaseBeta,
		"2.0.0-Alpha.2":   catalog.ReleaseAlpha,
		"1.2.3":           catalog.ReleaseStable,
	}
	for version, want := range cases {
		if got := ClassifyRelease(version); got != want {
			t.Errorf("ClassifyRelease(%q) = %v, want %v", version, got, want)
		}
	}
}
