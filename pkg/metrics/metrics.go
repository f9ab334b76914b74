// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMDuration tracks model call duration.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// GuardrailRejections counts questions refused by the guardrail.
	GuardrailRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardrail_rejections_total",
			Help: "Questions refused by the safety check",
		},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"tenant_id"},
	)

	// MessagesTotal tracks total messages written to the ledger.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages written",
		},
		[]string{"tenant_id", "role"},
	)

	// PairReplaysTotal counts paired writes that were already stored.
	PairReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "message_pair_replays_total",
			Help: "Paired writes skipped because both messages already existed",
		},
	)

	// BillingCostTotal tracks accumulated cost per tenant.
	BillingCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_cost_total",
			Help: "Accumulated billing cost",
		},
		[]string{"tenant_id"},
	)

	// BillingTokensTotal tracks billed tokens per tenant.
	BillingTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_tokens_total",
			Help: "Billed tokens",
		},
		[]string{"tenant_id", "direction"},
	)

	// FeedbackTotal tracks feedback posts.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_total",
			Help: "Feedback posts",
		},
		[]string{"kind"},
	)

	// PersistQueueTotal tracks outcomes of queued paired writes.
	PersistQueueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_queue_messages_total",
			Help: "Queued paired writes by outcome",
		},
		[]string{"outcome"},
	)

	// NATSStreamMessages tracks messages in NATS stream.
	NATSStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_messages",
			Help: "Number of messages in NATS stream",
		},
		[]string{"stream"},
	)

	// NATSConsumerPending tracks pending messages for consumers.
	NATSConsumerPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_consumer_pending",
			Help: "Pending messages for NATS consumer",
		},
		[]string{"stream", "consumer"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLM records metrics for a model call.
func RecordLLM(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordBilling records one accumulation against a tenant.
func RecordBilling(tenantID string, tokensIn, tokensOut int, cost float64) {
	BillingCostTotal.WithLabelValues(tenantID).Add(cost)
	BillingTokensTotal.WithLabelValues(tenantID, "in").Add(float64(tokensIn))
	BillingTokensTotal.WithLabelValues(tenantID, "out").Add(float64(tokensOut))
}
