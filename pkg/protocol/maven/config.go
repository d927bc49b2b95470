package maven

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// PushPolicyKey is the well-known repository config key for PushRules.
const PushPolicyKey = "maven_push_rules"

// PushPolicy names a repository's accepted version shape for uploads.
type PushPolicy string

const (
	PushPolicyRelease  PushPolicy = "Release"
	PushPolicySnapshot PushPolicy = "Snapshot"
	PushPolicyMixed    PushPolicy = "Mixed"
)

// PushRules is the maven_push_rules config document.
type PushRules struct {
	PushPolicy               PushPolicy `json:"push_policy"`
	AllowOverwrite           bool       `json:"allow_overwrite"`
	MustUseAuthTokenForPush  bool       `json:"must_use_auth_token_for_push"`
	MustBeProjectMember      bool       `json:"must_be_project_member"`
}

// defaultPushRules is used when a repository carries no explicit config
// document: the most permissive shape, matching any version and allowing
// overwrite.
func defaultPushRules() PushRules {
	return PushRules{PushPolicy: PushPolicyMixed, AllowOverwrite: true}
}

func loadPushRules(ctx context.Context, cat *catalog.Catalog, repoID uuid.UUID) (PushRules, error) {
	doc, err := cat.GetRepositoryConfig(ctx, repoID, PushPolicyKey)
	if err == catalog.ErrNotFound {
		return defaultPushRules(), nil
	}
	if err != nil {
		return PushRules{}, err
	}
	var rules PushRules
	if err := json.Unmarshal(doc.Value, &rules); err != nil {
		return PushRules{}, err
	}
	return rules, nil
}

// checkPushPolicy reports whether version satisfies the configured policy,
// Release rejects SNAPSHOT versions, Snapshot
// rejects non-SNAPSHOT versions, Mixed accepts both.
func (r PushRules) checkPushPolicy(version string) error {
	snap := isSnapshot(version)
	switch r.PushPolicy {
	case PushPolicyRelease:
		if snap {
			return fmt.Errorf("push_policy=Release rejects SNAPSHOT version %q", version)
		}
	case PushPolicySnapshot:
		if !snap {
			return fmt.Errorf("push_policy=Snapshot requires a SNAPSHOT version, got %q", version)
		}
	}
	return nil
}
