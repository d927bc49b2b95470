package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

// Authorizer answers the allow question: a principal (user or token) may
// perform an action on a repository when either (1) the principal's
// resolved user-level actions cover it, or (2) a presented token narrows
// that to a subset that still covers it. Tokens never widen rights beyond
// what the owning user already has.
type Authorizer struct {
	catalog *catalog.Catalog
	cache   *redis.Client // optional; nil disables caching
	cacheTTL time.Duration
}

func NewAuthorizer(c *catalog.Catalog, cache *redis.Client, cacheTTL time.Duration) *Authorizer {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Authorizer{catalog: c, cache: cache, cacheTTL: cacheTTL}
}

// Principal is the resolved identity behind a request: always a user, and
// optionally a token narrowing that user's rights for this request.
type Principal struct {
	User  *catalog.User
	Token *catalog.AuthToken // nil for session/basic auth
}

// Can reports whether the principal may perform action on repositoryID.
func (a *Authorizer) Can(ctx context.Context, p Principal, repositoryID uuid.UUID, action catalog.Action) (bool, error) {
	userActions, err := a.resolveUserActions(ctx, p.User, repositoryID)
	if err != nil {
		return false, err
	}
	if !containsAction(userActions, action) {
		return false, nil
	}
	if p.Token == nil {
		return true, nil
	}

	// A token additionally needs its own scope to cover the action,
	// narrowing but never widening the user's underlying rights.
	tokenActions := tokenActionsFor(p.Token, repositoryID)
	return containsAction(tokenActions, action), nil
}

func (a *Authorizer) resolveUserActions(ctx context.Context, user *catalog.User, repositoryID uuid.UUID) ([]catalog.Action, error) {
	if a.cache == nil {
		return a.catalog.ResolveActions(ctx, user, repositoryID)
	}

	key := cacheKey(user.ID, repositoryID)
	if cached, err := a.cache.Get(ctx, key).Result(); err == nil {
		var actions []catalog.Action
		if json.Unmarshal([]byte(cached), &actions) == nil {
			return actions, nil
		}
	}

	actions, err := a.catalog.ResolveActions(ctx, user, repositoryID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(actions); err == nil {
		// Best-effort: a cache write failure should never fail the request.
		_ = a.cache.Set(ctx, key, encoded, a.cacheTTL).Err()
	}
	return actions, nil
}

// Invalidate drops a cached decision, called whenever a permission grant
// changes underneath a user.
func (a *Authorizer) Invalidate(ctx context.Context, userID int64, repositoryID uuid.UUID) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Del(ctx, cacheKey(userID, repositoryID)).Err()
}

func cacheKey(userID int64, repositoryID uuid.UUID) string {
	return fmt.Sprintf("nitro:authz:%d:%s", userID, repositoryID)
}

func tokenActionsFor(t *catalog.AuthToken, repositoryID uuid.UUID) []catalog.Action {
	for _, s := range t.RepositoryScopes {
		if s.RepositoryID == repositoryID {
			return s.Actions
		}
	}
	// No repository-specific scope recorded: fall back to the token's
	// global scopes, translated to the repository action vocabulary.
	var out []catalog.Action
	for _, s := range t.Scopes {
		switch s {
		case catalog.ScopeReadRepository:
			out = append(out, catalog.ActionRead)
		case catalog.ScopeWriteRepository:
			out = append(out, catalog.ActionWrite, catalog.ActionRead)
		case catalog.ScopeAdmin:
			out = append(out, catalog.ActionRead, catalog.ActionWrite, catalog.ActionAdmin)
		}
	}
	return out
}

func containsAction(actions []catalog.Action, want catalog.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
