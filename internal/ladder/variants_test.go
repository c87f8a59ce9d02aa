package ladder

import (
	"errors"
	"testing"

	"solana-ladder-lab/internal/domain"
)

func TestDefaultVariants(t *testing.T) {
	variants := DefaultVariants()
	if len(variants) != 4 {
		t.Fatalf("expected 4 built-in variants, got %d", len(variants))
	}

	wantNames := []string{"100", "50/50", "15/25/60", "10/15/25/50"}
	for i, v := range variants {
		if v.Name != wantNames[i] {
			t.Errorf("variant %d: expected %s, got %s", i, wantNames[i], v.Name)
		}
		if err := ValidateVariant(v); err != nil {
			t.Errorf("variant %s failed validation: %v", v.Name, err)
		}
	}

	if len(variants[3].Fractions) != 4 {
		t.Errorf("expected 4 fractions in %s, got %d", variants[3].Name, len(variants[3].Fractions))
	}
}

func TestParseVariants(t *testing.T) {
	variants, err := ParseVariants(" 100 , 50/50 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(variants))
	}

	if variants[0].Name != "100" || len(variants[0].Fractions) != 1 || variants[0].Fractions[0] != 1.0 {
		t.Errorf("unexpected first variant: %+v", variants[0])
	}
	if variants[1].Name != "50/50" || len(variants[1].Fractions) != 2 {
		t.Errorf("unexpected second variant: %+v", variants[1])
	}
	if variants[1].Fractions[0] != 0.5 || variants[1].Fractions[1] != 0.5 {
		t.Errorf("unexpected fractions: %v", variants[1].Fractions)
	}
}

func TestParseVariants_BadPercentage(t *testing.T) {
	if _, err := ParseVariants("100,fifty/50"); err == nil {
		t.Fatal("expected error for non-numeric percentage")
	}
}

func TestParseVariants_BadSum(t *testing.T) {
	_, err := ParseVariants("50/20")
	if !errors.Is(err, ErrFractionSum) {
		t.Fatalf("expected ErrFractionSum, got %v", err)
	}
}

func TestParseVariants_Empty(t *testing.T) {
	if _, err := ParseVariants(""); err == nil {
		t.Fatal("expected error for empty catalog")
	}
	if _, err := ParseVariants(" , "); err == nil {
		t.Fatal("expected error for blank entries")
	}
}

func TestValidateVariant(t *testing.T) {
	valid := domain.LadderVariant{Name: "30/70", Fractions: []float64{0.3, 0.7}}
	if err := ValidateVariant(valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	negative := domain.LadderVariant{Name: "bad", Fractions: []float64{1.5, -0.5}}
	if err := ValidateVariant(negative); !errors.Is(err, ErrNonPositiveFraction) {
		t.Errorf("expected ErrNonPositiveFraction, got %v", err)
	}

	none := domain.LadderVariant{Name: "none"}
	if err := ValidateVariant(none); !errors.Is(err, ErrNoFractions) {
		t.Errorf("expected ErrNoFractions, got %v", err)
	}
}

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("default params must validate: %v", err)
	}
	if params.BaseProfitTargetBps != 300 || params.HardStopBps != -2500 {
		t.Errorf("unexpected thresholds: %+v", params)
	}
	if len(params.DrawdownTriggers) != 4 {
		t.Errorf("expected 4 triggers, got %d", len(params.DrawdownTriggers))
	}
}

func TestTriggerBpsClampsToLastEntry(t *testing.T) {
	params := DefaultParams() // triggers 3, 5, 8, 12

	tests := []struct {
		stepsUsed int
		want      float64
	}{
		{1, 500},
		{2, 800},
		{3, 1200},
		{4, 1200},
		{9, 1200},
	}
	for _, tt := range tests {
		if got := triggerBps(params, tt.stepsUsed); got != tt.want {
			t.Errorf("triggerBps(%d) = %v, want %v", tt.stepsUsed, got, tt.want)
		}
	}
}

func TestTargetBpsRaisesPerStep(t *testing.T) {
	params := DefaultParams()

	tests := []struct {
		stepsUsed int
		want      float64
	}{
		{0, 300},
		{1, 300},
		{2, 400},
		{4, 600},
	}
	for _, tt := range tests {
		if got := targetBps(params, tt.stepsUsed); got != tt.want {
			t.Errorf("targetBps(%d) = %v, want %v", tt.stepsUsed, got, tt.want)
		}
	}
}
