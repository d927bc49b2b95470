// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including token and
// session authentication, admin authorization, and rate limiting (per-user
// and distributed).
//
// # Middleware Components
//
// AuthMiddleware: resolves the request's identity.Principal
//
//	router.Use(middleware.NewAuthMiddleware(authenticator, optional).Handler)
//	// Extracts Bearer token / session cookie / basic auth, adds a Principal to request context
//
// RequireAdmin: rejects requests whose Principal isn't an admin user
//
//	router.Use(middleware.RequireAdmin)
//
// RateLimitMiddleware: In-memory rate limiting
//
//	limiter := middleware.NewRateLimitMiddleware()
//	router.Use(limiter.Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	limiter := middleware.NewDistributedRateLimitMiddleware(redisClient)
//	router.Use(limiter.Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-User: 1000 req/min, 50 burst
// Per-Token (CI/CD publishers): 5000 req/min, 100 burst
//
// # Related Packages
//
//   - pkg/identity: Principal resolution, password/session/token auth
//   - pkg/catalog: User and permission storage
package middleware
