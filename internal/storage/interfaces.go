package storage

import (
	"context"

	"solana-ladder-lab/internal/domain"
)

// TradeStore provides access to reconstructed trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.ReconstructedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.ReconstructedTrade) error

	// GetByTradeID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByTradeID(ctx context.Context, tradeID string) (*domain.ReconstructedTrade, error)

	// GetByTimeRange retrieves trades whose entry falls within [start, end] (inclusive),
	// ordered by entry timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ReconstructedTrade, error)

	// Count returns the number of stored trades.
	Count(ctx context.Context) (int64, error)
}

// SimulationStore provides access to ladder simulation storage.
type SimulationStore interface {
	// Insert adds a new simulation record. Returns ErrDuplicateKey if simulation_id exists.
	Insert(ctx context.Context, rec *domain.SimulationRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, recs []*domain.SimulationRecord) error

	// GetByTradeID retrieves all simulations for a trade, ordered by variant name ASC.
	GetByTradeID(ctx context.Context, tradeID string) ([]*domain.SimulationRecord, error)

	// GetByVariant retrieves all simulations for a variant.
	GetByVariant(ctx context.Context, variantName string) ([]*domain.SimulationRecord, error)

	// Count returns the number of stored simulation records.
	Count(ctx context.Context) (int64, error)
}

// PriceSampleStore provides access to per-trade price path storage.
type PriceSampleStore interface {
	// InsertBulk adds the price path of one trade.
	InsertBulk(ctx context.Context, tradeID string, samples []domain.PriceSample) error

	// GetByTradeID retrieves a trade's price path, ordered by timestamp ASC.
	GetByTradeID(ctx context.Context, tradeID string) ([]domain.PriceSample, error)

	// Count returns the number of stored price samples.
	Count(ctx context.Context) (int64, error)
}
