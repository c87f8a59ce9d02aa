package ladder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"solana-ladder-lab/internal/domain"
)

// DefaultVariants returns the built-in ladder catalog: all-in, two
// halves, and the two staged ladders the trading process was tuned
// against.
func DefaultVariants() []domain.LadderVariant {
	return []domain.LadderVariant{
		{Name: "100", Fractions: []float64{1.0}},
		{Name: "50/50", Fractions: []float64{0.50, 0.50}},
		{Name: "15/25/60", Fractions: []float64{0.15, 0.25, 0.60}},
		{Name: "10/15/25/50", Fractions: []float64{0.10, 0.15, 0.25, 0.50}},
	}
}

// ValidateVariant checks that a variant's allocation fractions are
// usable: at least one, all positive, summing to 1 within tolerance.
func ValidateVariant(v domain.LadderVariant) error {
	if len(v.Fractions) == 0 {
		return ErrNoFractions
	}
	sum := 0.0
	for _, frac := range v.Fractions {
		if frac <= 0 || math.IsNaN(frac) || math.IsInf(frac, 0) {
			return ErrNonPositiveFraction
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > fractionSumTolerance {
		return ErrFractionSum
	}
	return nil
}

// ParseVariants parses a catalog override such as
// "100,50/50,15/25/60". Entries are comma-separated; each entry is a
// slash-separated list of percentages that becomes both the variant
// name and its fractions.
func ParseVariants(spec string) ([]domain.LadderVariant, error) {
	var variants []domain.LadderVariant

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, "/")
		fractions := make([]float64, 0, len(parts))
		for _, part := range parts {
			pct, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("variant %q: bad percentage %q: %w", entry, part, err)
			}
			fractions = append(fractions, pct/100)
		}

		v := domain.LadderVariant{Name: entry, Fractions: fractions}
		if err := ValidateVariant(v); err != nil {
			return nil, fmt.Errorf("variant %q: %w", entry, err)
		}
		variants = append(variants, v)
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("no variants in %q", spec)
	}
	return variants, nil
}
