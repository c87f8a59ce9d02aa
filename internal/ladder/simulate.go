package ladder

import (
	"errors"

	"solana-ladder-lab/internal/domain"
)

// Simulation errors
var (
	ErrEmptySeries      = errors.New("empty price series")
	ErrNonPositivePrice = errors.New("non-positive price at first sample")
)

// Simulate replays one ladder variant against a trade's price series.
//
// The first ladder step buys unconditionally at the first sample. Each
// later sample is checked in order: take-profit, hard stop, then a
// drawdown-triggered add of the next unfilled step at that sample's
// price. Take-profit is evaluated before the hard stop, so a sample
// crossing both closes as a win. A position still open after the last
// sample is force-closed at the last price.
func Simulate(series []domain.PriceSample, variant domain.LadderVariant, params Params) (*domain.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateVariant(variant); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	if series[0].Price <= 0 {
		return nil, ErrNonPositivePrice
	}

	var (
		totalSpent  float64
		totalTokens float64
		stepsUsed   int
	)

	buyStep := func(price float64) {
		spend := variant.Fractions[stepsUsed] * params.CapitalSol
		totalSpent += spend
		totalTokens += spend / price
		stepsUsed++
	}

	closeAt := func(idx int, price float64, kind string) *domain.SimulationResult {
		realized := totalTokens * price
		pnl := realized - totalSpent
		return &domain.SimulationResult{
			VariantName:     variant.Name,
			ExitIndex:       idx,
			StepsUsed:       stepsUsed,
			RealizedPnlSol:  pnl,
			PnlBps:          pnl / totalSpent * 10000,
			TargetBpsAtExit: targetBps(params, stepsUsed),
			ExitKind:        kind,
		}
	}

	buyStep(series[0].Price)

	for i := 1; i < len(series); i++ {
		price := series[i].Price
		avgCost := totalSpent / totalTokens
		pnlBps := (price - avgCost) / avgCost * 10000

		if pnlBps >= targetBps(params, stepsUsed) {
			return closeAt(i, price, domain.ExitKindTakeProfit), nil
		}
		if pnlBps <= params.HardStopBps {
			return closeAt(i, price, domain.ExitKindHardStop), nil
		}
		if stepsUsed < len(variant.Fractions) && price > 0 && -pnlBps >= triggerBps(params, stepsUsed) {
			buyStep(price)
		}
	}

	last := series[len(series)-1]
	return closeAt(len(series)-1, last.Price, domain.ExitKindForcedClose), nil
}
