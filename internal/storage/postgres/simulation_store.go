package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/storage"
)

// SimulationStore implements storage.SimulationStore using PostgreSQL.
type SimulationStore struct {
	pool *Pool
}

// NewSimulationStore creates a new SimulationStore.
func NewSimulationStore(pool *Pool) *SimulationStore {
	return &SimulationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationStore = (*SimulationStore)(nil)

const insertSimulationQuery = `
	INSERT INTO simulations (
		simulation_id, trade_id, variant_name, params_digest,
		exit_index, steps_used,
		realized_pnl_sol, pnl_bps, target_bps_at_exit, exit_kind,
		created_at_ms
	) VALUES (
		$1, $2, $3, $4,
		$5, $6,
		$7, $8, $9, $10,
		$11
	)
`

const selectSimulationColumns = `
	simulation_id, trade_id, variant_name, params_digest,
	exit_index, steps_used,
	realized_pnl_sol, pnl_bps, target_bps_at_exit, exit_kind,
	created_at_ms
`

// Insert adds a new simulation record. Returns ErrDuplicateKey if simulation_id exists.
func (s *SimulationStore) Insert(ctx context.Context, rec *domain.SimulationRecord) error {
	if rec == nil || rec.SimulationID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertSimulationQuery,
		rec.SimulationID, rec.TradeID, rec.VariantName, rec.ParamsDigest,
		rec.ExitIndex, rec.StepsUsed,
		rec.RealizedPnlSol, rec.PnlBps, rec.TargetBpsAtExit, rec.ExitKind,
		rec.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SimulationStore) InsertBulk(ctx context.Context, recs []*domain.SimulationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		if rec == nil || rec.SimulationID == "" {
			return storage.ErrInvalidInput
		}

		_, err := tx.Exec(ctx, insertSimulationQuery,
			rec.SimulationID, rec.TradeID, rec.VariantName, rec.ParamsDigest,
			rec.ExitIndex, rec.StepsUsed,
			rec.RealizedPnlSol, rec.PnlBps, rec.TargetBpsAtExit, rec.ExitKind,
			rec.CreatedAtMs,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert simulation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTradeID retrieves all simulations for a trade, ordered by variant name ASC.
func (s *SimulationStore) GetByTradeID(ctx context.Context, tradeID string) ([]*domain.SimulationRecord, error) {
	query := `
		SELECT` + selectSimulationColumns + `
		FROM simulations
		WHERE trade_id = $1
		ORDER BY variant_name ASC, simulation_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get simulations by trade id: %w", err)
	}
	defer rows.Close()

	return scanSimulations(rows)
}

// GetByVariant retrieves all simulations for a variant.
func (s *SimulationStore) GetByVariant(ctx context.Context, variantName string) ([]*domain.SimulationRecord, error) {
	query := `
		SELECT` + selectSimulationColumns + `
		FROM simulations
		WHERE variant_name = $1
		ORDER BY trade_id ASC, simulation_id ASC
	`

	rows, err := s.pool.Query(ctx, query, variantName)
	if err != nil {
		return nil, fmt.Errorf("get simulations by variant: %w", err)
	}
	defer rows.Close()

	return scanSimulations(rows)
}

// Count returns the number of stored simulation records.
func (s *SimulationStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM simulations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count simulations: %w", err)
	}
	return count, nil
}

// scanSimulations scans multiple rows into a slice of SimulationRecord.
func scanSimulations(rows pgx.Rows) ([]*domain.SimulationRecord, error) {
	var recs []*domain.SimulationRecord

	for rows.Next() {
		var rec domain.SimulationRecord

		err := rows.Scan(
			&rec.SimulationID, &rec.TradeID, &rec.VariantName, &rec.ParamsDigest,
			&rec.ExitIndex, &rec.StepsUsed,
			&rec.RealizedPnlSol, &rec.PnlBps, &rec.TargetBpsAtExit, &rec.ExitKind,
			&rec.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan simulation row: %w", err)
		}

		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation rows: %w", err)
	}

	return recs, nil
}
