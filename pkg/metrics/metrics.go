package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RelayRequests counts /send-mail requests by outcome
	// (sent, invalid, rejected, rate_limited).
	RelayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smtprelay_requests_total",
		Help: "Total number of send-mail requests, grouped by outcome",
	}, []string{"outcome"})

	// Mail metrics. Labeled by target host only; usernames and sender
	// addresses are caller secrets and stay out of label values.
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smtprelay_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smtprelay_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	// RateLimited counts requests rejected by the per-client limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smtprelay_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)

// Outcome label values for RelayRequests.
const (
	OutcomeSent        = "sent"
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeRateLimited = "rate_limited"
)

func init() {
	prometheus.MustRegister(RelayRequests)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(RateLimited)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
