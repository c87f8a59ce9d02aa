package memory

import (
	"context"
	"sort"
	"sync"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data map[string][]domain.PriceSample // keyed by trade_id
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		data: make(map[string][]domain.PriceSample),
	}
}

// InsertBulk adds the price path of one trade. Re-inserting an
// already stored trade is a no-op.
func (s *PriceSampleStore) InsertBulk(_ context.Context, tradeID string, samples []domain.PriceSample) error {
	if tradeID == "" {
		return storage.ErrInvalidInput
	}
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tradeID]; exists {
		return nil
	}

	path := make([]domain.PriceSample, len(samples))
	copy(path, samples)
	s.data[tradeID] = path
	return nil
}

// GetByTradeID retrieves a trade's price path, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByTradeID(_ context.Context, tradeID string) ([]domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]domain.PriceSample, len(path))
	copy(result, path)

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// Count returns the number of stored price samples.
func (s *PriceSampleStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, path := range s.data {
		total += int64(len(path))
	}
	return total, nil
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
