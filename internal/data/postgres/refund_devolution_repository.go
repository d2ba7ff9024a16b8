package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// RefundDevolutionRepository implements the refund.DevolutionRepository
// interface for PostgreSQL
type RefundDevolutionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRefundDevolutionRepository creates a new PostgreSQL refund devolution repository
func NewRefundDevolutionRepository(logger *slog.Logger, db *persistence.PostgresDB) refund.DevolutionRepository {
	return &RefundDevolutionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const refundDevolutionColumns = `id, end_to_end_id, refund_id, transaction_kind, transaction_id, amount, description, state, operation_id, failed_code, failed_message, created_at, updated_at`

func scanRefundDevolution(row pgx.Row) (*refund.Devolution, error) {
	var d refund.Devolution
	err := row.Scan(
		&d.ID,
		&d.EndToEndID,
		&d.RefundID,
		&d.Transaction.Kind,
		&d.Transaction.ID,
		&d.Amount,
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

// Create stores a new refund devolution
func (r *RefundDevolutionRepository) Create(ctx context.Context, d *refund.Devolution) error {
	query := `
		INSERT INTO refund_devolutions (` + refundDevolutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.EndToEndID,
		d.RefundID,
		d.Transaction.Kind,
		d.Transaction.ID,
		d.Amount,
		d.Description,
		d.State,
		d.OperationID,
		d.FailedCode,
		d.FailedMessage,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create refund devolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create refund devolution: %w", err)
	}

	return nil
}

// GetByID retrieves a refund devolution by its ID
func (r *RefundDevolutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*refund.Devolution, error) {
	query := `SELECT ` + refundDevolutionColumns + ` FROM refund_devolutions WHERE id = $1`

	d, err := scanRefundDevolution(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrDevolutionNotFound{ID: id}
		}
		r.logger.Error("Failed to get refund devolution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get refund devolution: %w", err)
	}

	return d, nil
}

// GetByEndToEndID retrieves a refund devolution by its Pix end-to-end identifier
func (r *RefundDevolutionRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*refund.Devolution, error) {
	query := `SELECT ` + refundDevolutionColumns + ` FROM refund_devolutions WHERE end_to_end_id = $1`

	d, err := scanRefundDevolution(r.querier.QueryRow(ctx, query, endToEndID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrDevolutionNotFound{}
		}
		r.logger.Error("Failed to get refund devolution by end-to-end id", "end_to_end_id", endToEndID, "error", err)
		return nil, fmt.Errorf("failed to get refund devolution by end-to-end id: %w", err)
	}

	return d, nil
}

// Update persists a refund devolution state transition
func (r *RefundDevolutionRepository) Update(ctx context.Context, d *refund.Devolution) error {
	query := `
		UPDATE refund_devolutions
		SET end_to_end_id = $1, state = $2, operation_id = $3, failed_code = $4, failed_message = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		d.EndToEndID,
		d.State,
		d.OperationID,
		d.FailedCode,
		d.FailedMessage,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update refund devolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update refund devolution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return refund.ErrDevolutionNotFound{ID: d.ID}
	}

	return nil
}

// ListByStateUpdatedBefore returns a reconciliation batch of refund
// devolutions stuck in the given state since before the threshold,
// oldest first.
func (r *RefundDevolutionRepository) ListByStateUpdatedBefore(ctx context.Context, state refund.DevolutionState, threshold time.Time, limit int) ([]*refund.Devolution, error) {
	query := `
		SELECT ` + refundDevolutionColumns + `
		FROM refund_devolutions
		WHERE state = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, state, threshold, limit)
	if err != nil {
		r.logger.Error("Failed to list refund devolutions for reconciliation", "state", string(state), "error", err)
		return nil, fmt.Errorf("failed to list refund devolutions for reconciliation: %w", err)
	}
	defer rows.Close()

	var devolutions []*refund.Devolution
	for rows.Next() {
		d, err := scanRefundDevolution(rows)
		if err != nil {
			r.logger.Error("Failed to scan refund devolution", "error", err)
			return nil, fmt.Errorf("failed to scan refund devolution: %w", err)
		}
		devolutions = append(devolutions, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over refund devolutions", "error", err)
		return nil, fmt.Errorf("error iterating over refund devolutions: %w", err)
	}

	return devolutions, nil
}
