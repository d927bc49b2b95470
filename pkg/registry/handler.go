package registry

import (
	"net/http"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

// Handler serves requests for one built repository. Implementations are
// immutable after construction so they can be shared across concurrent
// requests without locking; pkg/protocol/maven and pkg/protocol/npm each
// provide one.
type Handler interface {
	Repository() catalog.Repository
	ServeHTTP(w http.ResponseWriter, r *http.Request, objectPath string)
}

// Factory builds a Handler for a repository. Registered per
// catalog.RepositoryType so the registry never needs to know about
// individual protocols.
type Factory func(repo catalog.Repository, backend storage.Backend, cat *catalog.Catalog) (Handler, error)
