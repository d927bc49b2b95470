package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/registry"
)

// repositoryDispatcher serves the `/repositories/<storage>/<repository>/...`
// root: it resolves the named repository's Handler out of the registry and
// hands it the remainder of the path, the one piece of wiring the registry
// itself deliberately stays ignorant of (it only knows repositories, not
// HTTP routing).
type repositoryDispatcher struct {
	registry *registry.Registry
}

func newRepositoryRouter(reg *registry.Registry) http.Handler {
	d := &repositoryDispatcher{registry: reg}
	r := mux.NewRouter()
	r.PathPrefix("/repositories/{storage}/{repository}").HandlerFunc(d.serve)
	return r
}

func (d *repositoryDispatcher) serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handler, _, err := d.registry.GetByName(r.Context(), vars["storage"], vars["repository"])
	if err != nil {
		if err == catalog.ErrNotFound {
			httputil.WriteNotFoundError(w, "repository not found")
			return
		}
		httputil.WriteServiceUnavailable(w, "repository unavailable")
		return
	}

	prefix := "/repositories/" + vars["storage"] + "/" + vars["repository"]
	objectPath := strings.TrimPrefix(r.URL.Path, prefix)
	objectPath = strings.TrimPrefix(objectPath, "/")
	handler.ServeHTTP(w, r, objectPath)
}
