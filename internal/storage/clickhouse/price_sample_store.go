package clickhouse

import (
	"context"
	"fmt"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk adds the price path of one trade. A trade that already
// has samples is left untouched so idempotent archival reruns stay
// cheap. MergeTree does not enforce uniqueness, so the check is an
// explicit count.
func (s *PriceSampleStore) InsertBulk(ctx context.Context, tradeID string, samples []domain.PriceSample) error {
	if tradeID == "" {
		return storage.ErrInvalidInput
	}
	if len(samples) == 0 {
		return nil
	}

	exists, err := s.exists(ctx, tradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (trade_id, timestamp_ms, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		if err := batch.Append(tradeID, uint64(p.TimestampMs), p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTradeID retrieves a trade's price path, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByTradeID(ctx context.Context, tradeID string) ([]domain.PriceSample, error) {
	query := `
		SELECT timestamp_ms, price
		FROM price_samples
		WHERE trade_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("query by trade id: %w", err)
	}
	defer rows.Close()

	samples, err := scanPriceSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, storage.ErrNotFound
	}
	return samples, nil
}

// Count returns the number of stored price samples.
func (s *PriceSampleStore) Count(ctx context.Context) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM price_samples`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count price samples: %w", err)
	}
	return int64(count), nil
}

// exists checks if any samples are stored for the trade.
func (s *PriceSampleStore) exists(ctx context.Context, tradeID string) (bool, error) {
	query := `SELECT count(*) FROM price_samples WHERE trade_id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tradeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]domain.PriceSample, error) {
	var samples []domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var timestampMs uint64

		if err := rows.Scan(&timestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		samples = append(samples, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
