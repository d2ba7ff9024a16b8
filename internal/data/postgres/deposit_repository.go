// Package postgres provides PostgreSQL implementations of the domain
// repositories. Counterpart participants and transaction references are
// stored as JSONB; everything queried on has its own column.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// DepositRepository implements the deposit.Repository interface for PostgreSQL
type DepositRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDepositRepository creates a new PostgreSQL deposit repository
func NewDepositRepository(logger *slog.Logger, db *persistence.PostgresDB) deposit.Repository {
	return &DepositRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const depositColumns = `id, end_to_end_id, tx_id, amount, client, third_part, description, state, operation_id, failed_code, failed_message, created_at, updated_at`

func scanDeposit(row pgx.Row) (*deposit.Deposit, error) {
	var d deposit.Deposit
	err := row.Scan(
		&d.ID,
		&d.EndToEndID,
		&d.TxID,
		&d.Amount,
		&d.Client,
		&d.ThirdPart,
		&d.Description,
		&d.State,
		&d.OperationID,
		&d.FailedCode,
		&d.FailedMessage,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create stores a new deposit. The primary key makes duplicate intake of
// the same deposit id a constraint error.
func (r *DepositRepository) Create(ctx context.Context, d *deposit.Deposit) error {
	query := `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.EndToEndID,
		d.TxID,
		d.Amount,
		d.Client,
		d.ThirdPart,
		d.Description,
		d.State,
		d.OperationID,
		d.FailedCode,
		d.FailedMessage,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create deposit", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// GetByID retrieves a deposit by its ID
func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	d, err := scanDeposit(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deposit.ErrDepositNotFound{ID: id}
		}
		r.logger.Error("Failed to get deposit", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	return d, nil
}

// GetByEndToEndID retrieves a deposit by its Pix end-to-end identifier
func (r *DepositRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*deposit.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE end_to_end_id = $1`

	d, err := scanDeposit(r.querier.QueryRow(ctx, query, endToEndID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deposit.ErrDepositNotFound{}
		}
		r.logger.Error("Failed to get deposit by end-to-end id", "end_to_end_id", endToEndID, "error", err)
		return nil, fmt.Errorf("failed to get deposit by end-to-end id: %w", err)
	}

	return d, nil
}

// Update persists a deposit state transition
func (r *DepositRepository) Update(ctx context.Context, d *deposit.Deposit) error {
	query := `
		UPDATE deposits
		SET state = $1, operation_id = $2, failed_code = $3, failed_message = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		d.State,
		d.OperationID,
		d.FailedCode,
		d.FailedMessage,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update deposit", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update deposit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return deposit.ErrDepositNotFound{ID: d.ID}
	}

	return nil
}
