package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// RefundRepository implements the refund.Repository interface for PostgreSQL
type RefundRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRefundRepository creates a new PostgreSQL refund repository
func NewRefundRepository(logger *slog.Logger, db *persistence.PostgresDB) refund.Repository {
	return &RefundRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const refundColumns = `id, solicitation_id, transaction_kind, transaction_id, amount, reason, description, state, analysis_result, created_at, updated_at`

func scanRefund(row pgx.Row) (*refund.Refund, error) {
	var rf refund.Refund
	err := row.Scan(
		&rf.ID,
		&rf.SolicitationID,
		&rf.Transaction.Kind,
		&rf.Transaction.ID,
		&rf.Amount,
		&rf.Reason,
		&rf.Description,
		&rf.State,
		&rf.AnalysisResult,
		&rf.CreatedAt,
		&rf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}

// Create stores a new refund
func (r *RefundRepository) Create(ctx context.Context, rf *refund.Refund) error {
	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		rf.ID,
		rf.SolicitationID,
		rf.Transaction.Kind,
		rf.Transaction.ID,
		rf.Amount,
		rf.Reason,
		rf.Description,
		rf.State,
		rf.AnalysisResult,
		rf.CreatedAt,
		rf.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create refund", "id", rf.ID.String(), "error", err)
		return fmt.Errorf("failed to create refund: %w", err)
	}

	return nil
}

// GetByID retrieves a refund by its ID
func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	rf, err := scanRefund(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrRefundNotFound{ID: id}
		}
		r.logger.Error("Failed to get refund", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}

	return rf, nil
}

// GetBySolicitationID retrieves a refund by the PSP solicitation reference
func (r *RefundRepository) GetBySolicitationID(ctx context.Context, solicitationID string) (*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE solicitation_id = $1`

	rf, err := scanRefund(r.querier.QueryRow(ctx, query, solicitationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrRefundNotFound{}
		}
		r.logger.Error("Failed to get refund by solicitation id", "solicitation_id", solicitationID, "error", err)
		return nil, fmt.Errorf("failed to get refund by solicitation id: %w", err)
	}

	return rf, nil
}

// Update persists a refund state transition
func (r *RefundRepository) Update(ctx context.Context, rf *refund.Refund) error {
	query := `
		UPDATE refunds
		SET state = $1, analysis_result = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		rf.State,
		rf.AnalysisResult,
		rf.UpdatedAt,
		rf.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update refund", "id", rf.ID.String(), "error", err)
		return fmt.Errorf("failed to update refund: %w", err)
	}

	if result.RowsAffected() == 0 {
		return refund.ErrRefundNotFound{ID: rf.ID}
	}

	return nil
}
