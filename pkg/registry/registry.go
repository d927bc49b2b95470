package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/observability"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

// entry is one repository's built state. A non-nil err means the
// repository is recorded "bad": startup continues and the repository is
// served 5xx until it is reloaded successfully.
type entry struct {
	repository catalog.Repository
	handler    Handler
	err        error
}

type table map[uuid.UUID]entry

// Registry holds one handler per active repository in a read-mostly
// concurrent map, swapped atomically on reload so in-flight requests
// complete against the handler they started with.
type Registry struct {
	cat       *catalog.Catalog
	factories map[catalog.RepositoryType]Factory
	storages  sync.Map // uuid.UUID -> storage.Backend, built lazily per Storage row

	table atomic.Pointer[table]

	// nameCache front-caches (storage_name, repo_name) -> uuid lookups so
	// every protocol request doesn't round-trip the catalog just to find
	// the id; it only ever narrows a request, the registry table remains
	// the authority on what handler actually runs.
	nameCache *lru.Cache[string, uuid.UUID]

	log *observability.Logger
}

// New constructs an empty registry. Call LoadAll to populate it at startup.
func New(cat *catalog.Catalog, log *observability.Logger, nameCacheSize int) (*Registry, error) {
	r := &Registry{cat: cat, factories: map[catalog.RepositoryType]Factory{}, log: log}
	empty := table{}
	r.table.Store(&empty)

	if nameCacheSize > 0 {
		cache, err := lru.New[string, uuid.UUID](nameCacheSize)
		if err != nil {
			return nil, fmt.Errorf("registry: building name cache: %w", err)
		}
		r.nameCache = cache
	}
	return r, nil
}

// RegisterFactory wires a protocol's handler constructor for a repository
// type. Called once at startup per supported type (maven, npm).
func (r *Registry) RegisterFactory(t catalog.RepositoryType, f Factory) {
	r.factories[t] = f
}

// LoadAll enumerates active repositories and builds a handler for each.
// A build failure never aborts startup: the repository is
// recorded bad and will 503 until a reload succeeds.
func (r *Registry) LoadAll(ctx context.Context) error {
	repos, err := r.cat.ListActiveRepositories(ctx)
	if err != nil {
		return fmt.Errorf("registry: listing active repositories: %w", err)
	}

	next := table{}
	for _, repo := range repos {
		e := r.build(ctx, repo)
		next[repo.ID] = e
		if e.err != nil && r.log != nil {
			r.log.WithField("repository", repo.Name).WithError(e.err).Error("registry: repository failed to load, marked bad")
		}
	}
	r.table.Store(&next)
	return nil
}

func (r *Registry) build(ctx context.Context, repo catalog.Repository) entry {
	backend, err := r.backendFor(ctx, repo.StorageID)
	if err != nil {
		return entry{repository: repo, err: fmt.Errorf("resolving storage: %w", err)}
	}
	factory, ok := r.factories[repo.Type]
	if !ok {
		return entry{repository: repo, err: fmt.Errorf("no handler factory registered for type %q", repo.Type)}
	}
	handler, err := factory(repo, backend, r.cat)
	if err != nil {
		return entry{repository: repo, err: fmt.Errorf("building handler: %w", err)}
	}
	return entry{repository: repo, handler: handler}
}

func (r *Registry) backendFor(ctx context.Context, storageID uuid.UUID) (storage.Backend, error) {
	if cached, ok := r.storages.Load(storageID); ok {
		return cached.(storage.Backend), nil
	}

	row, err := r.cat.GetStorage(ctx, storageID)
	if err != nil {
		return nil, err
	}
	var cfg storage.Config
	if err := json.Unmarshal(row.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decoding storage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend storage.Backend
	switch cfg.Kind {
	case storage.KindLocal:
		backend, err = storage.NewLocalBackend(cfg.Local.Path)
	case storage.KindS3:
		backend, err = storage.NewS3Backend(ctx, cfg.S3)
	default:
		err = fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	actual, _ := r.storages.LoadOrStore(storageID, backend)
	return actual.(storage.Backend), nil
}

// Backends snapshots every storage backend built so far, for health probes
// and similar cross-cutting checks that don't belong on the hot path.
func (r *Registry) Backends() []storage.Backend {
	var backends []storage.Backend
	r.storages.Range(func(_, v any) bool {
		backends = append(backends, v.(storage.Backend))
		return true
	})
	return backends
}

// Backend resolves the storage.Backend serving a repository, for
// collaborators (the browse API) that need direct object access rather
// than a protocol Handler's ServeHTTP. The repository must already be
// loaded (active); an unknown or bad id behaves the same as Get.
func (r *Registry) Backend(ctx context.Context, id uuid.UUID) (storage.Backend, catalog.Repository, error) {
	t := *r.table.Load()
	e, ok := t[id]
	if !ok {
		return nil, catalog.Repository{}, catalog.ErrNotFound
	}
	if e.err != nil {
		return nil, e.repository, e.err
	}
	backend, err := r.backendFor(ctx, e.repository.StorageID)
	if err != nil {
		return nil, e.repository, err
	}
	return backend, e.repository, nil
}

// Get looks up a handler by repository UUID.
func (r *Registry) Get(id uuid.UUID) (Handler, catalog.Repository, error) {
	t := *r.table.Load()
	e, ok := t[id]
	if !ok {
		return nil, catalog.Repository{}, catalog.ErrNotFound
	}
	if e.err != nil {
		return nil, e.repository, e.err
	}
	return e.handler, e.repository, nil
}

// GetByName resolves (storage_name, repo_name) to a handler. The catalog
// remains the source of truth for the mapping; the name cache only saves a
// round trip on the hot path.
func (r *Registry) GetByName(ctx context.Context, storageName, repoName string) (Handler, catalog.Repository, error) {
	cacheKey := storageName + "/" + repoName
	if r.nameCache != nil {
		if id, ok := r.nameCache.Get(cacheKey); ok {
			if h, repo, err := r.Get(id); err == nil || err != catalog.ErrNotFound {
				return h, repo, err
			}
			r.nameCache.Remove(cacheKey)
		}
	}

	repo, err := r.cat.GetRepositoryByStorageAndName(ctx, storageName, repoName)
	if err != nil {
		return nil, catalog.Repository{}, err
	}
	if r.nameCache != nil {
		r.nameCache.Add(cacheKey, repo.ID)
	}
	return r.Get(repo.ID)
}

// Reload drops and rebuilds the handler for one repository, swapping it in
// atomically. In-flight requests holding the previous Handler value
// continue uninterrupted.
func (r *Registry) Reload(ctx context.Context, id uuid.UUID) error {
	repo, err := r.cat.GetRepository(ctx, id)
	if err != nil {
		return err
	}
	e := r.build(ctx, *repo)
	r.swap(id, &e)
	return e.err
}

// Add inserts a newly created repository into the registry without a full
// reload of every entry.
func (r *Registry) Add(ctx context.Context, repo catalog.Repository) error {
	e := r.build(ctx, repo)
	r.swap(repo.ID, &e)
	return e.err
}

// Remove drops a repository from the registry, e.g. after deletion.
func (r *Registry) Remove(id uuid.UUID) {
	for {
		old := r.table.Load()
		next := make(table, len(*old))
		for k, v := range *old {
			if k != id {
				next[k] = v
			}
		}
		if r.table.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (r *Registry) swap(id uuid.UUID, e *entry) {
	for {
		old := r.table.Load()
		next := make(table, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[id] = *e
		if r.table.CompareAndSwap(old, &next) {
			return
		}
	}
}
