package series

import (
	"math"
	"sort"

	"solana-ladder-lab/internal/domain"
)

// Extract returns the trade's price path: every metric sample inside
// [entry, exit] (inclusive) carrying a finite price, in log order.
func Extract(trade *domain.ReconstructedTrade, samples []*domain.MetricSample) []domain.PriceSample {
	var out []domain.PriceSample
	for _, s := range samples {
		if s.TimestampMs < trade.EntryTimestampMs || s.TimestampMs > trade.ExitTimestampMs {
			continue
		}
		if s.Price == nil || math.IsNaN(*s.Price) || math.IsInf(*s.Price, 0) {
			continue
		}
		out = append(out, domain.PriceSample{TimestampMs: s.TimestampMs, Price: *s.Price})
	}
	return out
}

// ComputeLevels summarizes a price series. Returns nil for an empty
// series. Mid is the lower-middle element of the sorted prices, so a
// four-sample series takes the second element.
func ComputeLevels(samples []domain.PriceSample) *domain.PriceLevels {
	if len(samples) == 0 {
		return nil
	}

	prices := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = s.Price
	}
	sort.Float64s(prices)

	min := prices[0]
	max := prices[len(prices)-1]
	mid := prices[(len(prices)-1)/2]

	rangePct := 0.0
	if mid != 0 {
		rangePct = (max - min) / mid * 100
	}

	return &domain.PriceLevels{
		Min:      min,
		Mid:      mid,
		Max:      max,
		RangePct: rangePct,
	}
}
