package ladder

import (
	"errors"
	"math"
)

// Validation errors
var (
	ErrHardStopNotNegative = errors.New("hard stop must be negative basis points")
	ErrNoDrawdownTriggers  = errors.New("at least one drawdown trigger required")
	ErrNonPositiveTrigger  = errors.New("drawdown triggers must be positive")
	ErrNonPositiveCapital  = errors.New("capital must be positive")
	ErrNoFractions         = errors.New("variant requires at least one allocation fraction")
	ErrNonPositiveFraction = errors.New("allocation fractions must be positive")
	ErrFractionSum         = errors.New("allocation fractions must sum to 1")
)

// fractionSumTolerance absorbs float noise in catalogs like 15/25/60.
const fractionSumTolerance = 0.01

// Params holds the simulation knobs shared by every ladder variant.
type Params struct {
	// BaseProfitTargetBps is the take-profit threshold with a single
	// ladder step filled.
	BaseProfitTargetBps float64
	// HardStopBps is the loss threshold that abandons the position.
	// Always negative.
	HardStopBps float64
	// ProfitStepBps widens the take-profit target for every ladder
	// step beyond the first.
	ProfitStepBps float64
	// DrawdownTriggers holds the drawdown percentages that release the
	// next ladder step, indexed by steps already filled. The last
	// entry repeats for deeper ladders.
	DrawdownTriggers []float64
	// CapitalSol is the total SOL allocated across the ladder.
	CapitalSol float64
}

// DefaultParams returns the parameter set the trading process runs
// with.
func DefaultParams() Params {
	return Params{
		BaseProfitTargetBps: 300,
		HardStopBps:         -2500,
		ProfitStepBps:       100,
		DrawdownTriggers:    []float64{3, 5, 8, 12},
		CapitalSol:          1.0,
	}
}

// Validate checks the parameter set for values the simulator cannot
// work with.
func (p Params) Validate() error {
	if p.HardStopBps >= 0 {
		return ErrHardStopNotNegative
	}
	if len(p.DrawdownTriggers) == 0 {
		return ErrNoDrawdownTriggers
	}
	for _, trig := range p.DrawdownTriggers {
		if trig <= 0 || math.IsNaN(trig) || math.IsInf(trig, 0) {
			return ErrNonPositiveTrigger
		}
	}
	if p.CapitalSol <= 0 {
		return ErrNonPositiveCapital
	}
	return nil
}

// targetBps returns the take-profit threshold in force with stepsUsed
// ladder entries filled: base plus one step increment per entry beyond
// the first.
func targetBps(p Params, stepsUsed int) float64 {
	extra := stepsUsed - 1
	if extra < 0 {
		extra = 0
	}
	return p.BaseProfitTargetBps + p.ProfitStepBps*float64(extra)
}

// triggerBps returns the drawdown threshold, in basis points, that
// releases the next ladder step. The trigger table holds percentages
// indexed by the current step count; the index clamps to the last
// entry for ladders deeper than the table.
func triggerBps(p Params, stepsUsed int) float64 {
	idx := stepsUsed
	if idx >= len(p.DrawdownTriggers) {
		idx = len(p.DrawdownTriggers) - 1
	}
	return p.DrawdownTriggers[idx] * 100
}
