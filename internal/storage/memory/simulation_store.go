package memory

import (
	"context"
	"sort"
	"sync"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

// SimulationStore is an in-memory implementation of storage.SimulationStore.
type SimulationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRecord // keyed by simulation_id
}

// NewSimulationStore creates a new in-memory simulation store.
func NewSimulationStore() *SimulationStore {
	return &SimulationStore{
		data: make(map[string]*domain.SimulationRecord),
	}
}

// Insert adds a new simulation record. Returns ErrDuplicateKey if simulation_id exists.
func (s *SimulationStore) Insert(_ context.Context, rec *domain.SimulationRecord) error {
	if rec == nil || rec.SimulationID == "" || rec.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.SimulationID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *rec
	s.data[rec.SimulationID] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SimulationStore) InsertBulk(_ context.Context, recs []*domain.SimulationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(recs))

	for _, rec := range recs {
		if rec == nil || rec.SimulationID == "" || rec.TradeID == "" {
			return storage.ErrInvalidInput
		}

		if _, exists := s.data[rec.SimulationID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[rec.SimulationID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[rec.SimulationID] = struct{}{}
	}

	for _, rec := range recs {
		copy := *rec
		s.data[rec.SimulationID] = &copy
	}

	return nil
}

// GetByTradeID retrieves all simulations for a trade, ordered by variant name ASC.
func (s *SimulationStore) GetByTradeID(_ context.Context, tradeID string) ([]*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRecord
	for _, rec := range s.data {
		if rec.TradeID == tradeID {
			copy := *rec
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].VariantName < result[j].VariantName
	})

	return result, nil
}

// GetByVariant retrieves all simulations for a variant.
func (s *SimulationStore) GetByVariant(_ context.Context, variantName string) ([]*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRecord
	for _, rec := range s.data {
		if rec.VariantName == variantName {
			copy := *rec
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TradeID != result[j].TradeID {
			return result[i].TradeID < result[j].TradeID
		}
		return result[i].SimulationID < result[j].SimulationID
	})

	return result, nil
}

// Count returns the number of stored simulation records.
func (s *SimulationStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

var _ storage.SimulationStore = (*SimulationStore)(nil)
