package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, mint, mint_on_curve,
		entry_ms, entry_sol_balance,
		exit_ms, exit_sol_balance,
		sell_marker_ms, max_step
	) VALUES (
		$1, $2, $3,
		$4, $5,
		$6, $7,
		$8, $9
	)
`

const selectTradeColumns = `
	trade_id, mint, mint_on_curve,
	entry_ms, entry_sol_balance,
	exit_ms, exit_sol_balance,
	sell_marker_ms, max_step
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.ReconstructedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery,
		t.TradeID, t.Mint, t.MintOnCurve,
		t.EntryTimestampMs, t.EntrySolBalance,
		t.ExitTimestampMs, t.ExitSolBalance,
		t.SellMarkerMs, t.MaxStepReached,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.ReconstructedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}

		_, err := tx.Exec(ctx, insertTradeQuery,
			t.TradeID, t.Mint, t.MintOnCurve,
			t.EntryTimestampMs, t.EntrySolBalance,
			t.ExitTimestampMs, t.ExitSolBalance,
			t.SellMarkerMs, t.MaxStepReached,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTradeID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByTradeID(ctx context.Context, tradeID string) (*domain.ReconstructedTrade, error) {
	query := `SELECT` + selectTradeColumns + `FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByTimeRange retrieves trades whose entry falls within [start, end] (inclusive),
// ordered by entry timestamp ASC.
func (s *TradeStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ReconstructedTrade, error) {
	query := `
		SELECT` + selectTradeColumns + `
		FROM trades
		WHERE entry_ms >= $1 AND entry_ms <= $2
		ORDER BY entry_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Count returns the number of stored trades.
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM trades`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}

// scanTrade scans a single row into a ReconstructedTrade.
func scanTrade(row pgx.Row) (*domain.ReconstructedTrade, error) {
	var t domain.ReconstructedTrade

	err := row.Scan(
		&t.TradeID, &t.Mint, &t.MintOnCurve,
		&t.EntryTimestampMs, &t.EntrySolBalance,
		&t.ExitTimestampMs, &t.ExitSolBalance,
		&t.SellMarkerMs, &t.MaxStepReached,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTrades scans multiple rows into a slice of ReconstructedTrade.
func scanTrades(rows pgx.Rows) ([]*domain.ReconstructedTrade, error) {
	var trades []*domain.ReconstructedTrade

	for rows.Next() {
		var t domain.ReconstructedTrade

		err := rows.Scan(
			&t.TradeID, &t.Mint, &t.MintOnCurve,
			&t.EntryTimestampMs, &t.EntrySolBalance,
			&t.ExitTimestampMs, &t.ExitSolBalance,
			&t.SellMarkerMs, &t.MaxStepReached,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
