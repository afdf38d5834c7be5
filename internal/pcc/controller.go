// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/heistp/pcc/internal/fixedpoint"
)

// Name is the module registration identifier, used as the Prometheus
// metrics namespace and the zap logger name.
func Name() string { return "pcc" }

// Controller is the per-connection engine state. It holds a MonitorRing,
// the seven-state FSM's variables, and the connection's decision-quartet
// scratch space. A Controller is only ever driven by its own connection's
// hooks, cooperatively and without internal concurrency, so none of its
// fields need synchronization.
type Controller struct {
	ID uuid.UUID

	ring *MonitorRing

	state    FSMState
	nextRate Rate
	lastRTT  time.Duration

	decisionAttempts     int
	rateAdjustmentTries  int
	direction            int
	decisionSigns        [4]int
	quartet              [4]MonitorInterval

	lastUtility fixedpoint.Q32
	bytesLost   Bytes

	decisionsUp           int
	decisionsDown         int
	decisionsInconsistent int

	sndCount uint64

	mss Bytes
	cfg Config
	log Logger
}

// NewController returns a freshly initialized Controller for one connection,
// with state=Start and next_rate=InitialRate.
func NewController(mss Bytes, cfg Config, log Logger) *Controller {
	if log == nil {
		log = NopLogger{}
	}
	id := uuid.New()
	signs := defaultDecisionSigns
	if cfg.Experimental.ShuffleDirections {
		seed := int64(id[0])<<56 | int64(id[1])<<48 | int64(id[2])<<40 | int64(id[3])<<32 |
			int64(id[4])<<24 | int64(id[5])<<16 | int64(id[6])<<8 | int64(id[7])
		ShuffleDecisionDirections(rand.New(rand.NewSource(seed)), &signs)
	}
	return &Controller{
		ID:            id,
		ring:          NewMonitorRing(),
		state:         StateStart,
		nextRate:      InitialRate,
		decisionSigns: signs,
		mss:           mss,
		cfg:           cfg,
		log:           log,
	}
}

// State returns the Controller's current FSM state, useful for metrics and
// inspection tooling (cmd/pccctl).
func (c *Controller) State() FSMState { return c.state }

// NextRate returns the rate the engine has most recently settled on.
func (c *Controller) NextRate() Rate { return c.nextRate }

// LastUtility returns the utility score computed for the most recently
// closed interval, or Zero if none has closed yet.
func (c *Controller) LastUtility() fixedpoint.Q32 { return c.lastUtility }

// BytesLost returns the cumulative bytes the engine has attributed to loss
// across all intervals closed so far on this connection.
func (c *Controller) BytesLost() Bytes { return c.bytesLost }

// DecisionAttempts returns the number of perturbation attempts made in the
// current decision-making cycle.
func (c *Controller) DecisionAttempts() int { return c.decisionAttempts }

// RateAdjustmentTries returns the number of RateAdjustment steps taken
// since the current direction was chosen.
func (c *Controller) RateAdjustmentTries() int { return c.rateAdjustmentTries }

// DecisionsUp returns the cumulative number of decision-quartet outcomes
// that chose to raise the rate.
func (c *Controller) DecisionsUp() int { return c.decisionsUp }

// DecisionsDown returns the cumulative number of decision-quartet outcomes
// that chose to lower the rate.
func (c *Controller) DecisionsDown() int { return c.decisionsDown }

// DecisionsInconsistent returns the cumulative number of decision-quartet
// outcomes that were inconsistent and triggered a retry.
func (c *Controller) DecisionsInconsistent() int { return c.decisionsInconsistent }

// Init implements the init(connection) hook. It runs before any
// Controller exists, so it is a free function: the host sets the initial
// pacing rate directly, and the Controller itself is constructed lazily on
// the first subsequent hook call (see ConnState.ensure).
func Init(t Transport) {
	t.SetPacingRate(InitialRate)
}

// updateSendProgress mirrors the transport's data_segs_out counter and
// attributes newly sent segments to the current interval, if one is open.
func (c *Controller) updateSendProgress(t Transport) {
	newCount := t.DataSegsOut()
	delta := newCount - c.sndCount
	c.sndCount = newCount
	if delta == 0 {
		return
	}
	if c.ring.Current().Valid {
		c.ring.NoteSent(int(delta), t.NextSeqToSend())
	}
}

// openCurrent opens a fresh interval for the connection's current FSM state
// and publishes its rate to the transport.
func (c *Controller) openCurrent(t Transport, now time.Time) {
	rate, fromState, decisionID := c.selectRateOnOpen()
	rtt := c.lastRTT
	if rtt == 0 {
		rtt = t.SRTT()
	}
	c.ring.OpenCurrent(now, rate, rtt, fromState, t.NextSeqToSend())
	if decisionID != 0 {
		c.ring.Current().DecisionID = decisionID
	}
	t.SetPacingRate(rate)
}

// doChecks is the engine's cooperative heartbeat, run from the ssthresh and
// pkts_acked hooks: it records send progress, advances the ring past
// any graduated interval, closes and scores any interval whose ACK frontier
// has caught up, and opens a fresh interval if the current slot is now
// invalid.
func (c *Controller) doChecks(t Transport) {
	now := t.Now()
	c.updateSendProgress(t)
	c.ring.AdvanceIfDue(now, c.log)
	c.ring.Sweep(now, func(idx int, iv *MonitorInterval) {
		computeUtility(iv, c.mss, c.log)
		c.onClose(idx, iv, c.log)
	})
	if !c.ring.Current().Valid {
		c.openCurrent(t, now)
	}
}

// ConnState is the per-connection scratch area a host allocates once and
// passes to every hook. OnSSThreshQuery and OnPktsAcked lazily construct the
// Controller whenever none exists; OnInAckEvent is a no-op until then,
// including after OnRelease. Go's allocator has no
// analogous failure mode to a C-style allocation-failure return, so the
// "Controller not yet allocated" case is modeled purely with a nil check
// instead of an error return.
type ConnState struct {
	ctrl *Controller
	cfg  Config
	log  Logger
}

// NewConnState returns an empty ConnState ready to receive hook calls.
func NewConnState(cfg Config, log Logger) *ConnState {
	return &ConnState{cfg: cfg, log: log}
}

func (cs *ConnState) ensure(t Transport) {
	if cs.ctrl == nil {
		cs.ctrl = NewController(t.AdvMSS(), cs.cfg, cs.log)
	}
}

// OnSSThreshQuery implements the ssthresh(connection) hook: it
// always reports an effectively infinite threshold and, as a side effect,
// drives doChecks so that rate decisions keep progressing even on
// connections that query ssthresh more often than they receive ACKs.
func (cs *ConnState) OnSSThreshQuery(t Transport) uint32 {
	cs.ensure(t)
	cs.ctrl.doChecks(t)
	return InfiniteSsthresh
}

// OnPktsAcked implements the pkts_acked(connection, sample) hook: it feeds
// the ACK sample into AckAccounting, drives doChecks, and keeps the
// congestion window pinned open since the engine paces by rate, not by
// window.
func (cs *ConnState) OnPktsAcked(t Transport, sample AckSample) {
	cs.ensure(t)
	cs.ctrl.applyAck(sample)
	cs.ctrl.doChecks(t)
	t.SetCWND(LargeCWND)
	if cs.cfg.SndWndClampEnabled {
		t.SetSndWnd(cs.cfg.SndWndClamp)
	}
}

// OnInAckEvent implements the in_ack_event(connection, flags) hook: a
// lighter-weight ACK event carrying no ack_sample of its own, so the sample
// is read directly off the transport instead. flags is accepted to match
// the host's hook signature but unused.
func (cs *ConnState) OnInAckEvent(t Transport, flags uint32) {
	if cs.ctrl == nil {
		return
	}
	cs.ctrl.applyAck(AckSample{SndUna: t.SndUna(), SACK: t.SACKBlocks()})
}

// OnRelease implements the release(connection) hook: it drops
// the Controller, after which OnInAckEvent is a no-op, while OnSSThreshQuery
// and OnPktsAcked lazily reconstruct one on their next call, matching a fresh
// connection reusing the same host-side scratch area.
func (cs *ConnState) OnRelease() {
	cs.ctrl = nil
}

// CongControl implements the cong_control(connection) hook: the engine
// paces entirely from pkts_acked/in_ack_event, so this hook is
// intentionally inert.
func (cs *ConnState) CongControl(t Transport) {}

// Controller exposes the lazily-constructed Controller for inspection
// (metrics, cmd/pccctl); it returns nil before the first hook call.
func (cs *ConnState) Controller() *Controller { return cs.ctrl }
