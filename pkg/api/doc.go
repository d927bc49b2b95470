// Package api implements the admin/browse JSON surface: users, storages,
// repositories and their config documents, project/version browsing,
// badges, and the install/login/token endpoints every other client of
// nitro-repo (the admin frontend, the CLI) talks to over `/api/...` and
// `/badge/...`.
//
// Server composes one gorilla/mux router out of per-concern route groups
// (users, storages, repositories, browse, badges) the same way
// pkg/registry composes protocol handlers: each group is a plain method on
// Server, registered once from setupRoutes, so the wiring lives in one
// place and the handlers stay small and independently testable.
package api
