package memory

import (
	"context"
	"errors"
	"testing"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

func TestSimulationStore_InsertAndGet(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	rec := &domain.SimulationRecord{
		SimulationID:    "sim1",
		TradeID:         "trade1",
		VariantName:     "single-shot",
		ParamsDigest:    "digest1",
		ExitIndex:       1,
		StepsUsed:       1,
		RealizedPnlSol:  0.05,
		PnlBps:          500,
		TargetBpsAtExit: 300,
		ExitKind:        domain.ExitKindTakeProfit,
		CreatedAtMs:     1700000000000,
	}

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTradeID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByTradeID failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}
	if got[0].PnlBps != 500 {
		t.Errorf("PnlBps mismatch: got %f, want 500", got[0].PnlBps)
	}
	if got[0].ExitKind != domain.ExitKindTakeProfit {
		t.Errorf("ExitKind mismatch: got %s", got[0].ExitKind)
	}
}

func TestSimulationStore_DuplicateKey(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	rec := &domain.SimulationRecord{SimulationID: "sim1", TradeID: "trade1", VariantName: "single-shot"}

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSimulationStore_GetByTradeIDOrdering(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	records := []*domain.SimulationRecord{
		{SimulationID: "sim3", TradeID: "trade1", VariantName: "two-step-even"},
		{SimulationID: "sim1", TradeID: "trade1", VariantName: "back-loaded-3"},
		{SimulationID: "sim2", TradeID: "trade1", VariantName: "single-shot"},
		{SimulationID: "sim4", TradeID: "trade2", VariantName: "single-shot"},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTradeID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByTradeID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	want := []string{"back-loaded-3", "single-shot", "two-step-even"}
	for i, name := range want {
		if got[i].VariantName != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, got[i].VariantName)
		}
	}
}

func TestSimulationStore_GetByVariant(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	records := []*domain.SimulationRecord{
		{SimulationID: "sim1", TradeID: "tradeB", VariantName: "single-shot"},
		{SimulationID: "sim2", TradeID: "tradeA", VariantName: "single-shot"},
		{SimulationID: "sim3", TradeID: "tradeA", VariantName: "two-step-even"},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByVariant(ctx, "single-shot")
	if err != nil {
		t.Fatalf("GetByVariant failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].TradeID != "tradeA" || got[1].TradeID != "tradeB" {
		t.Errorf("Expected trade-ordered tradeA, tradeB; got %s, %s", got[0].TradeID, got[1].TradeID)
	}
}

func TestSimulationStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	batch := []*domain.SimulationRecord{
		{SimulationID: "sim1", TradeID: "trade1", VariantName: "single-shot"},
		{SimulationID: "sim1", TradeID: "trade1", VariantName: "single-shot"},
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Expected count 0 after failed batch, got %d", count)
	}
}

func TestSimulationStore_InvalidInput(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SimulationRecord{TradeID: "trade1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty simulation_id, got %v", err)
	}
}
