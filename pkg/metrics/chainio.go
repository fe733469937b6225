package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "triggerx"

// TxMetrics instruments the transaction manager.
type TxMetrics struct {
	Submitted        prometheus.Counter
	Broadcasts       *prometheus.CounterVec // by kind: initial, replacement, unconfirmed, rebroadcast
	Confirmed        prometheus.Counter
	Failed           *prometheus.CounterVec // by reason
	Reorgs           prometheus.Counter
	InFlight         prometheus.Gauge
	NonceReserved    prometheus.Counter
	NonceReleased    prometheus.Counter
	GasTipCapGwei    prometheus.Gauge
	GasFeeCapGwei    prometheus.Gauge
	ConfirmationTime prometheus.Histogram
}

// NewTxMetrics registers on reg; a nil reg gets a private registry so
// components can be built in tests without clashing.
func NewTxMetrics(reg prometheus.Registerer, namespace string) *TxMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	f := promauto.With(reg)
	const subsystem = "txmgr"
	return &TxMetrics{
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "submitted_total", Help: "Transaction requests accepted by Submit",
		}),
		Broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "broadcasts_total", Help: "Signed transactions sent to the network",
		}, []string{"kind"}),
		Confirmed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "confirmed_total", Help: "Transactions that reached confirmation depth",
		}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "failed_total", Help: "Transactions that ended in a terminal failure",
		}, []string{"reason"}),
		Reorgs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "reorgs_total", Help: "Inclusions undone by chain reorganisations",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "in_flight", Help: "Tracked transaction records",
		}),
		NonceReserved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "nonce_reserved_total", Help: "Nonces handed out by the ledger",
		}),
		NonceReleased: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "nonce_released_total", Help: "Nonces returned to the reuse pool",
		}),
		GasTipCapGwei: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "gas_tip_cap_gwei", Help: "Latest market priority fee estimate",
		}),
		GasFeeCapGwei: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "gas_fee_cap_gwei", Help: "Latest market max fee estimate",
		}),
		ConfirmationTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "confirmation_seconds",
			Help:    "Time from submission to confirmation",
			Buckets: prometheus.ExponentialBuckets(2, 2, 10),
		}),
	}
}

// QuorumMetrics instruments the quorum coordinator.
type QuorumMetrics struct {
	Rounds            *prometheus.CounterVec // by outcome
	ActiveRounds      prometheus.Gauge
	PartialSignatures *prometheus.CounterVec // by result
	RoundDuration     prometheus.Histogram
}

func NewQuorumMetrics(reg prometheus.Registerer, namespace string) *QuorumMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	f := promauto.With(reg)
	const subsystem = "quorum"
	return &QuorumMetrics{
		Rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "rounds_total", Help: "Quorum rounds by final outcome",
		}, []string{"outcome"}),
		ActiveRounds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "active_rounds", Help: "Rounds currently collecting signatures",
		}),
		PartialSignatures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "partial_signatures_total", Help: "Partial signatures received by result",
		}, []string{"result"}),
		RoundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "round_duration_seconds",
			Help:    "Time from round start to threshold",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
