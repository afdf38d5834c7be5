// Package pccmetrics exposes the engine's per-connection state as
// Prometheus metrics: a Collector created once and registered against a
// Registerer.
package pccmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heistp/pcc/internal/pcc"
)

const (
	namespace = "pcc"
	subsystem = "controller"
)

// Collector holds all engine Prometheus metrics.
type Collector struct {
	// PacingRate reports the Controller's NextRate per connection: the rate
	// the engine has settled on. While a decision quartet runs, the rate
	// published to the transport is that rate perturbed up or down, which
	// this gauge does not show.
	PacingRate *prometheus.GaugeVec

	// State reports the FSM state per connection as a 0..6 gauge, following
	// pcc.FSMState's iota ordering.
	State *prometheus.GaugeVec

	// Utility reports the utility score of the most recently closed
	// monitor interval per connection.
	Utility *prometheus.GaugeVec

	// DecisionAttempts reports the number of perturbation attempts made in
	// the connection's current decision-making cycle.
	DecisionAttempts *prometheus.GaugeVec

	// RateAdjustmentTries reports the number of RateAdjustment steps taken
	// since the connection's current direction was chosen.
	RateAdjustmentTries *prometheus.GaugeVec

	// Decisions counts completed decision-quartet outcomes, labeled by
	// whether the direction chosen was up or down or inconsistent.
	Decisions *prometheus.CounterVec

	// BytesLost counts bytes the engine has attributed to loss, per
	// connection, across all closed intervals.
	BytesLost *prometheus.CounterVec

	mu   sync.Mutex
	seen map[string]*cumulative
}

// cumulative tracks the last cumulative values read off a Controller, so
// repeated Observe polls can turn its running totals into counter deltas.
type cumulative struct {
	bytesLost             float64
	decisionsUp           float64
	decisionsDown         float64
	decisionsInconsistent float64
}

const (
	labelConn      = "conn_id"
	labelDirection = "direction"

	directionUp           = "up"
	directionDown         = "down"
	directionInconsistent = "inconsistent"
)

// NewCollector creates a Collector with all engine metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := newMetrics()
	reg.MustRegister(c.PacingRate, c.State, c.Utility, c.DecisionAttempts,
		c.RateAdjustmentTries, c.Decisions, c.BytesLost)
	return c
}

func newMetrics() *Collector {
	connLabels := []string{labelConn}
	return &Collector{
		PacingRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pacing_rate_bytes_per_second",
			Help:      "Rate the engine has settled on for the connection (next_rate), without decision-quartet perturbations.",
		}, connLabels),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fsm_state",
			Help:      "Current rate-selection FSM state (0=Start .. 6=RateAdjustment).",
		}, connLabels),
		Utility: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "utility",
			Help:      "Utility score of the most recently closed monitor interval.",
		}, connLabels),
		DecisionAttempts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decision_attempts",
			Help:      "Perturbation attempts made in the current decision-making cycle.",
		}, connLabels),
		RateAdjustmentTries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_adjustment_tries",
			Help:      "RateAdjustment steps taken since the current direction was chosen.",
		}, connLabels),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Completed decision-quartet outcomes, labeled by direction.",
		}, []string{labelConn, labelDirection}),
		BytesLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_lost_total",
			Help:      "Bytes attributed to loss across closed monitor intervals.",
		}, connLabels),
		seen: make(map[string]*cumulative),
	}
}

// Observe updates every metric for ctrl under its connection id. PacingRate,
// State, Utility, DecisionAttempts and RateAdjustmentTries are snapshotted
// directly since they reflect current state; Decisions and BytesLost are
// running totals on the Controller, so Observe tracks the last value seen
// per connection and adds only the delta to the counter.
func (c *Collector) Observe(ctrl *pcc.Controller) {
	if ctrl == nil {
		return
	}
	id := ctrl.ID.String()
	c.PacingRate.WithLabelValues(id).Set(float64(ctrl.NextRate()))
	c.State.WithLabelValues(id).Set(float64(ctrl.State()))
	c.Utility.WithLabelValues(id).Set(ctrl.LastUtility().ToFloat())
	c.DecisionAttempts.WithLabelValues(id).Set(float64(ctrl.DecisionAttempts()))
	c.RateAdjustmentTries.WithLabelValues(id).Set(float64(ctrl.RateAdjustmentTries()))

	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.seen[id]
	if !ok {
		last = &cumulative{}
		c.seen[id] = last
	}
	addDelta(c.BytesLost.WithLabelValues(id), &last.bytesLost, float64(ctrl.BytesLost()))
	addDelta(c.Decisions.WithLabelValues(id, directionUp), &last.decisionsUp, float64(ctrl.DecisionsUp()))
	addDelta(c.Decisions.WithLabelValues(id, directionDown), &last.decisionsDown, float64(ctrl.DecisionsDown()))
	addDelta(c.Decisions.WithLabelValues(id, directionInconsistent), &last.decisionsInconsistent, float64(ctrl.DecisionsInconsistent()))
}

// addDelta adds the growth in current over *last to counter and advances
// *last to current. A current that has gone backwards (the Controller was
// replaced after a release) resets *last instead of adding a negative delta.
func addDelta(counter prometheus.Counter, last *float64, current float64) {
	if current >= *last {
		counter.Add(current - *last)
	}
	*last = current
}
