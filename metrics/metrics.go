package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_events_observed_total",
			Help: "Canonical events decoded from chain notifications",
		},
		[]string{"chain", "kind"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_events_dropped_total",
			Help: "Chain notifications dropped by the translators",
		},
		[]string{"chain", "reason"},
	)

	SubscriptionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dlc_observer_subscription_status",
			Help: "Chain subscription status (1=connected, 0=disconnected)",
		},
		[]string{"chain"},
	)

	Reconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_subscription_reconnects_total",
			Help: "Chain subscription reconnect attempts",
		},
		[]string{"chain"},
	)

	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_writes_total",
			Help: "On-chain writes by operation and result",
		},
		[]string{"chain", "op", "result"},
	)

	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_oracle_calls_total",
			Help: "Attestor calls by operation and result",
		},
		[]string{"op", "result"},
	)

	OutcomeMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_outcome_mismatches_total",
			Help: "Close events whose outcome disagrees with the attestor",
		},
		[]string{"chain"},
	)

	ReconcileSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlc_observer_reconcile_sweeps_total",
		Help: "Reconciliation sweeps run",
	})

	ReconcileCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlc_observer_reconcile_candidates_total",
			Help: "Reconciliation candidates by decision",
		},
		[]string{"decision"},
	)

	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlc_observer_registry_vaults",
		Help: "Vaults tracked by the registry",
	})
)

const (
	ResultOk     = "ok"
	ResultFailed = "failed"
	ResultSkip   = "skipped"
)

func Result(err error) string {
	if err != nil {
		return ResultFailed
	}

	return ResultOk
}
