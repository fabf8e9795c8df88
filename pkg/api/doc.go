// Package api implements the HTTP front door (Gin-based) for the
// smtp-relay service: cross-cutting middleware (request logging, panic
// recovery, CORS, security headers, body-size ceiling), the send-mail
// endpoint with its per-IP rate limit, the documentation page, and the
// health/metrics surfaces.
package api
