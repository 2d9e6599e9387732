package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts workflow transition attempts by transition and result
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestay_workflow_transitions_total",
		Help: "Workflow transition attempts by transition and result",
	}, []string{"transition", "result"})

	// PaymentInitiationsTotal counts gateway requests built, split by test mode
	PaymentInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestay_payment_initiations_total",
		Help: "Payment attempts sent to the treasury gateway",
	}, []string{"mode"})

	// CallbacksTotal counts gateway callbacks by outcome
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestay_payment_callbacks_total",
		Help: "Treasury gateway callbacks by outcome",
	}, []string{"outcome"})

	// VerificationsTotal counts double verification calls by outcome
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestay_payment_verifications_total",
		Help: "Double verification calls by outcome",
	}, []string{"outcome"})

	// NotificationsTotal counts outbox deliveries by result
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestay_notifications_total",
		Help: "Notification outbox deliveries by result",
	}, []string{"result"})

	// HTTPRequestDuration tracks handler latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "homestay_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ReconcileTotal counts reconciliation sweep results per attempt
var ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "homestay_payment_reconcile_total",
	Help: "Reconciliation sweep results per stale payment attempt",
}, []string{"result"})
