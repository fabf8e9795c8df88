// Package metrics defines Prometheus metrics for the smtp-relay service,
// covering relay request outcomes, SMTP send results, and rate limiting.
package metrics
