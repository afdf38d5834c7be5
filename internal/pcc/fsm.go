// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

import "math/rand"

// FSMState is one of the seven rate-selection states.
type FSMState int

const (
	StateStart FSMState = iota
	StateDM1
	StateDM2
	StateDM3
	StateDM4
	StateWaitForDecision
	StateRateAdjustment
)

func (s FSMState) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateDM1:
		return "DM1"
	case StateDM2:
		return "DM2"
	case StateDM3:
		return "DM3"
	case StateDM4:
		return "DM4"
	case StateWaitForDecision:
		return "WaitForDecision"
	case StateRateAdjustment:
		return "RateAdjustment"
	default:
		return "Unknown"
	}
}

// decisionEpsilon is the per-attempt rate perturbation used in the
// decision-making quartet.
const decisionEpsilon = 0.01

// defaultDecisionSigns is the fixed (+,-,+,-) sign pattern applied across a
// decision-making quartet.
var defaultDecisionSigns = [4]int{1, -1, 1, -1}

// ShuffleDecisionDirections randomly permutes signs. It is never called
// unless the host explicitly opts in via configuration; the default
// (+,-,+,-) pattern is always used otherwise.
func ShuffleDecisionDirections(rng *rand.Rand, signs *[4]int) {
	rng.Shuffle(len(signs), func(i, j int) {
		signs[i], signs[j] = signs[j], signs[i]
	})
}

// selectRateOnOpen implements the FSM's "on open" transition table. It
// mutates FSM state, next_rate, and per-state counters as a side effect and
// returns the (unclamped-until-return) rate chosen for the interval about to
// open along with the FSM state the engine was in when the choice was made
// (recorded on the interval as StateAtStart) and the decision-quartet slot
// the interval belongs to, if any.
func (c *Controller) selectRateOnOpen() (rate Rate, fromState FSMState, decisionID int) {
	fromState = c.state
	switch fromState {
	case StateStart:
		chosen := clampRate(Rate(float64(c.nextRate) * 2))
		c.nextRate = chosen
		rate = chosen
	case StateDM1:
		rate = clampRate(c.decisionRate(0))
		c.state = StateDM2
		decisionID = 1
	case StateDM2:
		rate = clampRate(c.decisionRate(1))
		c.state = StateDM3
		decisionID = 2
	case StateDM3:
		rate = clampRate(c.decisionRate(2))
		c.state = StateDM4
		decisionID = 3
	case StateDM4:
		rate = clampRate(c.decisionRate(3))
		c.state = StateWaitForDecision
		decisionID = 4
	case StateRateAdjustment:
		rate = clampRate(c.rateAdjustmentRate())
	case StateWaitForDecision:
		rate = clampRate(c.nextRate)
	}
	return
}

// decisionRate computes next_rate * (1 + sign*epsilon*attempts) for the
// given quartet slot (0..3), without changing next_rate itself (the table's
// "Effect on next_rate: unchanged" for all DM* rows).
func (c *Controller) decisionRate(slot int) Rate {
	sign := c.decisionSigns[slot]
	factor := 1 + float64(sign)*decisionEpsilon*float64(c.decisionAttempts)
	return Rate(float64(c.nextRate) * factor)
}

// rateAdjustmentRate implements the RateAdjustment row of the table,
// including a snap-back when the adjustment factor would go non-positive.
func (c *Controller) rateAdjustmentRate() Rate {
	tries := c.rateAdjustmentTries
	factor := 1 + decisionEpsilon*float64(c.direction)*float64(tries)
	if factor <= 0 {
		c.rateAdjustmentTries = 1
		return c.nextRate
	}
	chosen := Rate(float64(c.nextRate) * factor)
	c.nextRate = chosen
	c.rateAdjustmentTries = tries + 1
	return chosen
}

// onClose implements the FSM's "on close" rules for a single interval that
// the ring has just determined is closable. idx is the interval's ring
// index, used to find the chronologically previous interval via (idx-1) mod
// N.
func (c *Controller) onClose(idx int, iv *MonitorInterval, log Logger) {
	c.bytesLost += iv.BytesLost
	if iv.UtilityComputed {
		c.lastUtility = iv.Utility
	}
	prev := c.ring.At(c.ring.prior(idx))
	if iv.UtilityComputed && prev.UtilityComputed &&
		(iv.StateAtStart == StateStart || iv.StateAtStart == StateRateAdjustment) &&
		c.sndCount > 3 && iv.Utility.LT(prev.Utility) {
		c.state = StateDM1
		c.decisionAttempts = 1
		if iv.StateAtStart == StateStart {
			c.nextRate = prev.ActualRate
		} else {
			c.nextRate = prev.TargetRate
		}
		if log != nil {
			log.Infof("fsm: utility regression in state %s, entering DM1, next_rate=%s",
				iv.StateAtStart, c.nextRate)
		}
	}
	if iv.DecisionID >= 1 && iv.DecisionID <= 4 {
		c.quartet[iv.DecisionID-1] = *iv
	}
	if iv.DecisionID == 4 {
		c.makeDecision(log)
	}
}

// makeDecision implements the quartet-consistency MakeDecision rule.
func (c *Controller) makeDecision(log Logger) {
	q := &c.quartet
	switch {
	case q[0].Utility.GT(q[1].Utility) && q[2].Utility.GT(q[3].Utility):
		c.direction = 1
		c.nextRate = q[0].TargetRate
		c.state = StateRateAdjustment
		c.rateAdjustmentTries = 1
		c.quartet = [4]MonitorInterval{}
		c.decisionAttempts = 0
		c.decisionsUp++
		if log != nil {
			log.Infof("fsm: decision made, direction=+1, next_rate=%s", c.nextRate)
		}
	case q[0].Utility.LT(q[1].Utility) && q[2].Utility.LT(q[3].Utility):
		c.direction = -1
		c.nextRate = q[1].TargetRate
		c.state = StateRateAdjustment
		c.rateAdjustmentTries = 1
		c.quartet = [4]MonitorInterval{}
		c.decisionAttempts = 0
		c.decisionsDown++
		if log != nil {
			log.Infof("fsm: decision made, direction=-1, next_rate=%s", c.nextRate)
		}
	default:
		c.state = StateDM1
		c.decisionAttempts++
		c.decisionsInconsistent++
		if log != nil {
			log.Infof("fsm: inconsistent quartet, retrying DM1, attempts=%d", c.decisionAttempts)
		}
	}
}
