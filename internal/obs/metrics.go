package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutation outcomes by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartReadsTotal counts read-only cart request outcomes by operation.
	CartReadsTotal *prometheus.CounterVec
	// CartEventsEmittedTotal counts emitted cart notifications by topic.
	CartEventsEmittedTotal *prometheus.CounterVec
	// CleanupDeletedTotal counts line items removed by expiry cleanup.
	CleanupDeletedTotal prometheus.Counter
	// CleanupRunsTotal counts cleanup executions by outcome.
	CleanupRunsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutation outcomes by operation.",
		}, []string{"op", "result"})
		CartReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_reads_total",
			Help:      "Count of read-only cart request outcomes by operation.",
		}, []string{"op", "result"})
		CartEventsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_events_emitted_total",
			Help:      "Count of emitted cart notifications by topic.",
		}, []string{"topic"})
		CleanupDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deleted_total",
			Help:      "Number of expired line items removed by cleanup.",
		})
		CleanupRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Count of cleanup executions by outcome.",
		}, []string{"result"})

		reg.MustRegister(CartMutationsTotal, CartReadsTotal, CartEventsEmittedTotal, CleanupDeletedTotal, CleanupRunsTotal)
	})
}
