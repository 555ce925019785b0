package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider API metrics. The provider label is "github", "vercel" or "oauth".
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_provider_requests_total",
		Help: "Total number of requests sent to provider APIs",
	}, []string{"provider", "method", "code"})
	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deployer_provider_request_duration_seconds",
		Help:    "Latency of provider API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// Credential bootstrap metrics
	TokenVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_token_verifications_total",
		Help: "Total number of token verifications grouped by result",
	}, []string{"provider", "result"})
	CredentialsPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_credentials_persisted_total",
		Help: "Total number of credential records written",
	}, []string{"storage"})

	// Repository and deployment lifecycle
	RepositoriesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deployer_repositories_created_total",
		Help: "Total number of GitHub repositories created",
	})
	RepositoriesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deployer_repositories_deleted_total",
		Help: "Total number of GitHub repositories deleted",
	})
	DeploymentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_deployments_created_total",
		Help: "Total number of Vercel deployments grouped by outcome",
	}, []string{"outcome"})
	ProjectsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deployer_projects_deleted_total",
		Help: "Total number of Vercel projects deleted",
	})

	// Audit metrics
	AuditEventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_audit_events_written_total",
		Help: "Total number of audit events written per sink",
	}, []string{"sink"})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_audit_sink_errors_total",
		Help: "Total number of audit sink write failures",
	}, []string{"sink"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deployer_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	// Dashboard
	DashboardRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deployer_dashboard_rate_limited_total",
		Help: "Total number of dashboard API requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequests)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(TokenVerifications)
	prometheus.MustRegister(CredentialsPersisted)
	prometheus.MustRegister(RepositoriesCreated)
	prometheus.MustRegister(RepositoriesDeleted)
	prometheus.MustRegister(DeploymentsCreated)
	prometheus.MustRegister(ProjectsDeleted)
	prometheus.MustRegister(AuditEventsWritten)
	prometheus.MustRegister(AuditSinkErrors)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(DashboardRateLimited)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
