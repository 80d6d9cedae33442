// Package server provides the HTTP server: Gin served over HTTP/1.1 and
// h2c, with lifecycle hooks for the component registry.
//
// Middleware (server/middleware): recovery, request IDs, open CORS, body
// size limits, request logging with metrics, per-client rate limiting and
// optional HS256 bearer auth.
//
// Endpoints (server/endpoint): /info, /alive and /ready.
package server
