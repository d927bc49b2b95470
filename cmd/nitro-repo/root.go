package main

import (
	"net/http"
	"strings"
)

// rootHandler fans out the orthogonal roots onto one http.Handler:
// /repositories/... (the Maven/npm wire protocols), /api/... and /badge/...
// (the admin/browse JSON surface and badge rendering), and the
// /openapi.yaml, /openapi.json, /swagger-ui, /api-docs documentation
// routes. Anything else 404s.
type rootHandler struct {
	repositories http.Handler
	api          http.Handler
	docs         http.Handler
}

func (h *rootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/repositories/"):
		h.repositories.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/badge/"):
		h.api.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, "/openapi.") || r.URL.Path == "/swagger-ui" || r.URL.Path == "/api-docs":
		h.docs.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}
