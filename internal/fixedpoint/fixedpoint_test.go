// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package fixedpoint_test

import (
	"math"
	"testing"

	"github.com/heistp/pcc/internal/fixedpoint"
)

func TestFromFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 0.5, 123.456, -9999.125} {
		q := fixedpoint.FromFloat(f)
		if got := q.ToFloat(); math.Abs(got-f) > 1e-6 {
			t.Errorf("FromFloat(%v).ToFloat() = %v, want ~%v", f, got, f)
		}
	}
}

func TestMulDiv(t *testing.T) {
	a := fixedpoint.FromFloat(3.0)
	b := fixedpoint.FromFloat(2.0)
	if got := a.Mul(b).ToFloat(); math.Abs(got-6.0) > 1e-6 {
		t.Errorf("3*2 = %v, want 6", got)
	}
	if got := a.Div(b).ToFloat(); math.Abs(got-1.5) > 1e-6 {
		t.Errorf("3/2 = %v, want 1.5", got)
	}
}

func TestDivByZero(t *testing.T) {
	a := fixedpoint.FromFloat(3.0)
	if got := a.Div(fixedpoint.Zero); got != fixedpoint.Zero {
		t.Errorf("Div by zero = %v, want Zero", got)
	}
}

func TestExp(t *testing.T) {
	q := fixedpoint.FromFloat(0)
	if got := q.Exp().ToFloat(); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("exp(0) = %v, want 1", got)
	}
	q = fixedpoint.FromFloat(1)
	if got := q.Exp().ToFloat(); math.Abs(got-math.E) > 1e-4 {
		t.Errorf("exp(1) = %v, want e", got)
	}
}

func TestAddSubNeg(t *testing.T) {
	a := fixedpoint.FromFloat(5)
	b := fixedpoint.FromFloat(2)
	if got := a.Add(b).ToFloat(); got != 7 {
		t.Errorf("5+2 = %v, want 7", got)
	}
	if got := a.Sub(b).ToFloat(); got != 3 {
		t.Errorf("5-2 = %v, want 3", got)
	}
	if got := a.Neg().ToFloat(); got != -5 {
		t.Errorf("-5 = %v, want -5", got)
	}
}

func TestCompare(t *testing.T) {
	a := fixedpoint.FromFloat(1)
	b := fixedpoint.FromFloat(2)
	if !a.LT(b) || a.GT(b) {
		t.Errorf("expected 1 < 2")
	}
}
