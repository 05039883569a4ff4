// Package metrics defines the Prometheus metrics exported on /metrics.
//
// All recording methods are safe on a nil *Metrics, so components can be
// constructed without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Intent metrics
	IntentsTotal *prometheus.CounterVec

	// Bot module metrics
	HandlerRequestsTotal   *prometheus.CounterVec
	HandlerDurationSeconds *prometheus.HistogramVec

	// LLM fallback metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterDropped    *prometheus.CounterVec
	RateLimiterActiveKeys *prometheus.GaugeVec

	// Deposit metrics
	DepositsTotal      *prometheus.CounterVec
	DepositAmountTotal prometheus.Counter

	// Store metrics
	StoreOpsTotal          *prometheus.CounterVec
	StoreOpDurationSeconds *prometheus.HistogramVec
	StoreRecords           *prometheus.GaugeVec

	// Background job metrics
	JobsTotal          *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered on registry.
func New(registry prometheus.Registerer) *Metrics {
	f := promauto.With(registry)

	return &Metrics{
		WebhookRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_webhook_requests_total",
				Help: "Webhook events handled by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, rate_limited, ignored
		),
		WebhookDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omamori_webhook_duration_seconds",
				Help:    "Webhook event processing duration by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"}, // event_type: message, postback, follow, join
		),

		IntentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_intents_total",
				Help: "Classified messages by intent kind and the rule or source that matched",
			},
			[]string{"kind", "rule"}, // rule: router rule name, or llm
		),

		HandlerRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_handler_requests_total",
				Help: "Bot module invocations by module and status",
			},
			[]string{"module", "status"}, // status: success, error
		),
		HandlerDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omamori_handler_duration_seconds",
				Help:    "Bot module processing duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"module"},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_llm_requests_total",
				Help: "NLU fallback calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, no_intent
		),
		LLMDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omamori_llm_duration_seconds",
				Help:    "NLU fallback latency by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"provider"},
		),

		RateLimiterDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_rate_limiter_dropped_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"}, // limiter: user, llm, global
		),
		RateLimiterActiveKeys: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omamori_rate_limiter_active_keys",
				Help: "Keys currently tracked by a per-key rate limiter",
			},
			[]string{"limiter"},
		),

		DepositsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_deposits_total",
				Help: "Deposit notifications by status",
			},
			[]string{"status"}, // status: success, not_found, invalid, error
		),
		DepositAmountTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "omamori_deposit_amount_yen_total",
				Help: "Sum of accepted deposits in yen",
			},
		),

		StoreOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_store_operations_total",
				Help: "Store calls by operation and status",
			},
			[]string{"operation", "status"}, // status: success, not_found, error
		),
		StoreOpDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omamori_store_operation_duration_seconds",
				Help:    "Store call latency by operation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		StoreRecords: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omamori_store_records",
				Help: "Records held by the store",
			},
			[]string{"kind"}, // kind: profiles, families
		),

		JobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_jobs_total",
				Help: "Background job runs by job and status",
			},
			[]string{"job", "status"}, // job: snapshot_upload, snapshot_restore
		),
		JobDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omamori_job_duration_seconds",
				Help:    "Background job duration",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job"},
		),

		HTTPErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omamori_http_errors_total",
				Help: "Errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, line_api, parse, etc.
		),
	}
}

// RecordWebhook records one processed webhook event.
func (m *Metrics) RecordWebhook(eventType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordIntent records a classified message.
func (m *Metrics) RecordIntent(kind, rule string) {
	if m == nil {
		return
	}
	m.IntentsTotal.WithLabelValues(kind, rule).Inc()
}

// RecordHandler records one bot module invocation.
func (m *Metrics) RecordHandler(module, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HandlerRequestsTotal.WithLabelValues(module, status).Inc()
	m.HandlerDurationSeconds.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordLLM records one NLU fallback call.
func (m *Metrics) RecordLLM(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRateLimiterDrop records a rejected request.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterActive sets the number of keys a limiter tracks.
func (m *Metrics) SetRateLimiterActive(limiter string, count int) {
	if m == nil {
		return
	}
	m.RateLimiterActiveKeys.WithLabelValues(limiter).Set(float64(count))
}

// RecordDeposit records a deposit notification. amount is added to the
// running total only for successful deposits.
func (m *Metrics) RecordDeposit(status string, amount int64) {
	if m == nil {
		return
	}
	m.DepositsTotal.WithLabelValues(status).Inc()
	if status == "success" && amount > 0 {
		m.DepositAmountTotal.Add(float64(amount))
	}
}

// RecordStoreOp records one store call. It satisfies storage.OpRecorder.
func (m *Metrics) RecordStoreOp(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOpsTotal.WithLabelValues(op, status).Inc()
	m.StoreOpDurationSeconds.WithLabelValues(op).Observe(duration.Seconds())
}

// SetStoreRecords sets the record gauges.
func (m *Metrics) SetStoreRecords(profiles, families int) {
	if m == nil {
		return
	}
	m.StoreRecords.WithLabelValues("profiles").Set(float64(profiles))
	m.StoreRecords.WithLabelValues("families").Set(float64(families))
}

// RecordJob records a background job run.
func (m *Metrics) RecordJob(job, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(job, status).Inc()
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordHTTPError records an error by type and module.
func (m *Metrics) RecordHTTPError(errorType, module string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}
