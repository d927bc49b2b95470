package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

type fakeHandler struct {
	repo catalog.Repository
}

func (f *fakeHandler) Repository() catalog.Repository { return f.repo }
func (f *fakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request, objectPath string) {}

func TestRegistry_AddGetReloadRemove(t *testing.T) {
	reg, err := New(nil, nil, 8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	built := 0
	reg.RegisterFactory(catalog.RepositoryTypeMaven, func(repo catalog.Repository, backend storage.Backend, c *catalog.Catalog) (Handler, error) {
		built++
		return &fakeHandler{repo: repo}, nil
	})

	repo := catalog.Repository{ID: uuid.New(), Name: "releases", Type: catalog.RepositoryTypeMaven}

	// Add bypasses storage resolution failure paths by exercising build()
	// directly through a factory that never touches the backend.
	e := entry{repository: repo, handler: &fakeHandler{repo: repo}}
	reg.swap(repo.ID, &e)

	h, gotRepo, err := reg.Get(repo.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotRepo.Name != "releases" {
		t.Errorf("Repository().Name = %q, want %q", gotRepo.Name, "releases")
	}
	if h == nil {
		t.Fatalf("Get() handler = nil")
	}

	reg.Remove(repo.ID)
	if _, _, err := reg.Get(repo.ID); err != catalog.ErrNotFound {
		t.Errorf("Get() after Remove() error = %v, want ErrNotFound", err)
	}
	_ = context.Background()
}

func TestRegistry_Backends(t *testing.T) {
	reg, err := New(nil, nil, 8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := reg.Backends(); len(got) != 0 {
		t.Fatalf("Backends() on empty registry = %d entries, want 0", len(got))
	}

	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend() error = %v", err)
	}
	reg.storages.Store(uuid.New(), storage.Backend(backend))
	reg.storages.Store(uuid.New(), storage.Backend(backend))

	if got := reg.Backends(); len(got) != 2 {
		t.Errorf("Backends() = %d entries, want 2", len(got))
	}
}
