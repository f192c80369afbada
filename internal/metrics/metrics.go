package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banking/kyc-service/internal/domain"
)

// Assessment sources
const (
	SourceCombined     = "combined"
	SourceBaselineOnly = "baseline_only"
)

// Metrics provides observability for the KYC pipeline
type Metrics struct {
	Submissions       *prometheus.CounterVec
	DocumentStatus    *prometheus.CounterVec
	RiskAssessments   *prometheus.CounterVec
	OracleFallbacks   prometheus.Counter
	AuditFailures     prometheus.Counter
	AssessmentLatency prometheus.Histogram
	HTTPLatency       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all KYC metrics with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_submissions_total",
			Help: "Document submissions by result status",
		}, []string{"status"}), // SUCCESS, REJECTED, INTERNAL_ERROR, FAILED

		DocumentStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_document_status_total",
			Help: "Processed documents by verification status",
		}, []string{"status"}),

		RiskAssessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_risk_assessments_total",
			Help: "Risk assessments by level and scoring source",
		}, []string{"level", "source"}),

		OracleFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_oracle_fallbacks_total",
			Help: "Assessments that fell back to rule-based scoring",
		}),

		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_audit_failures_total",
			Help: "Audit records that could not be written",
		}),

		AssessmentLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kyc_assessment_duration_seconds",
			Help:    "Duration of risk assessment including the oracle call",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),

		gatherer: reg,
	}
}

// ObserveSubmission counts a submission outcome
func (m *Metrics) ObserveSubmission(status string) {
	if m != nil {
		m.Submissions.WithLabelValues(status).Inc()
	}
}

// ObserveDocument counts a decided document status
func (m *Metrics) ObserveDocument(status domain.VerificationStatus) {
	if m != nil {
		m.DocumentStatus.WithLabelValues(string(status)).Inc()
	}
}

// ObserveAssessment records a finished risk assessment
func (m *Metrics) ObserveAssessment(level domain.RiskLevel, fallback bool, d time.Duration) {
	if m == nil {
		return
	}
	source := SourceCombined
	if fallback {
		source = SourceBaselineOnly
		m.OracleFallbacks.Inc()
	}
	m.RiskAssessments.WithLabelValues(string(level), source).Inc()
	m.AssessmentLatency.Observe(d.Seconds())
}

// ObserveAuditFailure counts a swallowed audit write failure
func (m *Metrics) ObserveAuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

// ObserveHTTP records one handled request
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, route, code).Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
