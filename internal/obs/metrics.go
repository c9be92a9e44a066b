package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceQueries counts findPrice outcomes by result: found, not_found,
	// unavailable.
	PriceQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_queries_total",
		Help: "Price query outcomes.",
	}, []string{"result"})

	// BreakerTransitions counts circuit breaker state changes.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_transitions_total",
		Help: "Circuit breaker state transitions.",
	}, []string{"operation", "to"})

	// AuditEventsDropped counts audit events discarded because the
	// pipeline queue was full.
	AuditEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit events dropped on queue saturation.",
	})

	// AuditFailures counts swallowed audit side-effect failures by stage:
	// store, publish.
	AuditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_failures_total",
		Help: "Audit persistence and publish failures.",
	}, []string{"stage"})
)
