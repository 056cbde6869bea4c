// Package irr computes the internal rate of return for an irregularly
// dated cash-flow series (XIRR).
package irr

import (
	"errors"
	"math"
	"time"
)

// CashFlow is one dated flow from the investor's perspective: contributions
// negative, distributions and terminal value positive.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

var (
	ErrTooFewFlows   = errors.New("xirr needs at least two cash flows")
	ErrSameSignFlows = errors.New("xirr needs both negative and positive flows")
	ErrNoConvergence = errors.New("xirr did not converge")
)

const (
	maxIterations = 100
	tolerance     = 1e-9
	initialGuess  = 0.1
)

// XIRR solves for the rate r where the net present value of the flows,
// discounted by actual/365 year fractions from the first flow, is zero.
// Newton's method with the analytic derivative, starting from 10%.
func XIRR(flows []CashFlow) (float64, error) {
	if len(flows) < 2 {
		return 0, ErrTooFewFlows
	}
	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0, ErrSameSignFlows
	}

	t0 := flows[0].Date
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(t0).Hours() / 24 / 365
	}

	rate := initialGuess
	for i := 0; i < maxIterations; i++ {
		var npv, dnpv float64
		for j, f := range flows {
			disc := math.Pow(1+rate, years[j])
			npv += f.Amount / disc
			dnpv -= f.Amount * years[j] / (disc * (1 + rate))
		}
		if math.Abs(npv) < tolerance {
			return rate, nil
		}
		if dnpv == 0 || math.IsNaN(dnpv) || math.IsInf(dnpv, 0) {
			return 0, ErrNoConvergence
		}
		next := rate - npv/dnpv
		if next <= -1 {
			// Rates at or below -100% blow up the discount factor;
			// back off toward the boundary instead.
			next = (rate - 1) / 2
		}
		if math.Abs(next-rate) < tolerance {
			return next, nil
		}
		rate = next
	}
	return 0, ErrNoConvergence
}
