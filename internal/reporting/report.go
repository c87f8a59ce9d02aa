package reporting

import (
	"time"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/ladder"
)

// Report is the fully shaped render model for one replay run.
type Report struct {
	GeneratedAtMs int64
	// Location controls how millisecond timestamps render; defaults to
	// the local zone when nil.
	Location      *time.Location
	WindowSeconds int64
	Params        ladder.Params
	Variants      []domain.LadderVariant
	Trades        []TradeSection
}

// TradeSection is one reconstructed trade with its derived data. Only
// trades with a non-empty price series make it into the report.
type TradeSection struct {
	Index       int // 1-based position in the report
	Trade       *domain.ReconstructedTrade
	Levels      *domain.PriceLevels
	SampleCount int
	// Results holds one simulation per variant. Empty when the series
	// was unusable, such as a non-positive first price.
	Results []*domain.SimulationResult
}

func (r *Report) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}
