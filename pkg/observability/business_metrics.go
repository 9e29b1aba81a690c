package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment requests sent to the processor
	paymentRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_requests_total",
		Help: "Total signed payment requests built",
	}, []string{
		"payment_code", // vnpay
		"status",       // created, rejected
	})

	// Reconciliation outcomes per channel
	paymentReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Total processor results applied to orders",
	}, []string{
		"channel", // return, ipn
		"outcome", // paid, failed, already_processed, rejected
	})

	paymentAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_total",
		Help: "Total confirmed payment amount in whole currency units",
	}, []string{
		"currency",
	})

	paymentReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_reconcile_duration_seconds",
		Help:    "Time to verify and apply a processor result",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{
		"channel",
	})

	// Security events
	signatureFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_signature_failures_total",
		Help: "Total processor payloads rejected for a bad signature",
	}, []string{
		"channel",
	})

	amountMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_amount_mismatches_total",
		Help: "Total notifications whose amount disagreed with the stored order",
	})

	// IPN acknowledgements returned to the processor
	ipnResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_ipn_responses_total",
		Help: "Total IPN acknowledgements by response code",
	}, []string{
		"rsp_code", // 00, 01, 02, 04, 97, 99
	})

	sideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_side_effect_failures_total",
		Help: "Total post-payment side effects that failed and were skipped",
	}, []string{
		"effect", // clear_cart
	})
)

// RecordPaymentRequest records a payment request build attempt
func RecordPaymentRequest(paymentCode, status string) {
	paymentRequestsTotal.WithLabelValues(paymentCode, status).Inc()
}

// RecordReconciliation records the outcome of applying a processor result
func RecordReconciliation(channel, outcome string, duration float64) {
	paymentReconciliationsTotal.WithLabelValues(channel, outcome).Inc()
	paymentReconcileDuration.WithLabelValues(channel).Observe(duration)
}

// RecordConfirmedAmount adds a confirmed payment to revenue
func RecordConfirmedAmount(currency string, amount int64) {
	paymentAmountTotal.WithLabelValues(currency).Add(float64(amount))
}

// RecordSignatureFailure records a payload rejected for a bad signature
func RecordSignatureFailure(channel string) {
	signatureFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordAmountMismatch records a notification rejected for a wrong amount
func RecordAmountMismatch() {
	amountMismatchesTotal.Inc()
}

// RecordIPNResponse records the acknowledgement code sent back to the processor
func RecordIPNResponse(rspCode string) {
	ipnResponsesTotal.WithLabelValues(rspCode).Inc()
}

// RecordSideEffectFailure records a swallowed post-payment side effect failure
func RecordSideEffectFailure(effect string) {
	sideEffectFailuresTotal.WithLabelValues(effect).Inc()
}
