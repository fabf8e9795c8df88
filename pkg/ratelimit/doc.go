// Package ratelimit provides fixed-window per-client rate limiting
// middleware for Gin HTTP servers, backed by a pluggable counter store
// with automatic stale-entry cleanup.
package ratelimit
