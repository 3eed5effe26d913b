package metrics

import (
	"math/big"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// BountyMetrics tracks puzzle lifecycle activity on the node.
type BountyMetrics struct {
	created       prometheus.Counter
	solved        prometheus.Counter
	rejected      *prometheus.CounterVec
	treasuryTotal prometheus.Gauge
	escrowed      prometheus.Gauge
}

var (
	bountyOnce     sync.Once
	bountyRegistry *BountyMetrics
)

// Bounty returns the lazily registered bounty metrics.
func Bounty() *BountyMetrics {
	bountyOnce.Do(func() {
		bountyRegistry = &BountyMetrics{
			created: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bounty",
				Name:      "puzzles_created_total",
				Help:      "Count of puzzles opened with an escrowed reward.",
			}),
			solved: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bounty",
				Name:      "puzzles_solved_total",
				Help:      "Count of puzzles settled by a correct factor pair.",
			}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bounty",
				Name:      "rejected_total",
				Help:      "Count of rejected requests segmented by operation and reason.",
			}, []string{"operation", "reason"}),
			treasuryTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bounty",
				Name:      "treasury_total",
				Help:      "Running total credited to the treasury by settlements.",
			}),
			escrowed: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bounty",
				Name:      "escrowed_rewards",
				Help:      "Sum of rewards escrowed since start minus rewards settled.",
			}),
		}
		prometheus.MustRegister(
			bountyRegistry.created,
			bountyRegistry.solved,
			bountyRegistry.rejected,
			bountyRegistry.treasuryTotal,
			bountyRegistry.escrowed,
		)
	})
	return bountyRegistry
}

func (m *BountyMetrics) RecordCreated(reward *uint256.Int) {
	if m == nil {
		return
	}
	m.created.Inc()
	m.escrowed.Add(toFloat(reward))
}

func (m *BountyMetrics) RecordSolved(reward *uint256.Int) {
	if m == nil {
		return
	}
	m.solved.Inc()
	m.escrowed.Sub(toFloat(reward))
}

// RecordRejected counts a failed request. Reasons should be stable codes.
func (m *BountyMetrics) RecordRejected(operation, reason string) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unspecified"
	}
	m.rejected.WithLabelValues(operation, reason).Inc()
}

func (m *BountyMetrics) SetTreasuryTotal(total *uint256.Int) {
	if m == nil {
		return
	}
	m.treasuryTotal.Set(toFloat(total))
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	if v.IsUint64() {
		return float64(v.Uint64())
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
