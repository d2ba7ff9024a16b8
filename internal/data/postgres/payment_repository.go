package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const paymentColumns = `id, end_to_end_id, wallet_id, amount, owner, beneficiary, description, priority, state, payment_date, operation_id, failed_code, failed_message, created_at, updated_at`

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.EndToEndID,
		&p.WalletID,
		&p.Amount,
		&p.Owner,
		&p.Beneficiary,
		&p.Description,
		&p.Priority,
		&p.State,
		&p.PaymentDate,
		&p.OperationID,
		&p.FailedCode,
		&p.FailedMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a new payment
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.EndToEndID,
		p.WalletID,
		p.Amount,
		p.Owner,
		p.Beneficiary,
		p.Description,
		p.Priority,
		p.State,
		p.PaymentDate,
		p.OperationID,
		p.FailedCode,
		p.FailedMessage,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{ID: id}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetByEndToEndID retrieves a payment by its Pix end-to-end identifier
func (r *PaymentRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE end_to_end_id = $1`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, endToEndID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{}
		}
		r.logger.Error("Failed to get payment by end-to-end id", "end_to_end_id", endToEndID, "error", err)
		return nil, fmt.Errorf("failed to get payment by end-to-end id: %w", err)
	}

	return p, nil
}

// Update persists a payment state transition
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments
		SET end_to_end_id = $1, state = $2, operation_id = $3, failed_code = $4, failed_message = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		p.EndToEndID,
		p.State,
		p.OperationID,
		p.FailedCode,
		p.FailedMessage,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update payment", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrPaymentNotFound{ID: p.ID}
	}

	return nil
}

// ListByStateUpdatedBefore returns a reconciliation batch: payments of the
// given priority stuck in the given state since before the threshold,
// oldest first.
func (r *PaymentRepository) ListByStateUpdatedBefore(ctx context.Context, state payment.State, priority payment.PriorityType, threshold time.Time, limit int) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE state = $1 AND priority = $2 AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`

	rows, err := r.querier.Query(ctx, query, state, priority, threshold, limit)
	if err != nil {
		r.logger.Error("Failed to list payments for reconciliation", "state", string(state), "error", err)
		return nil, fmt.Errorf("failed to list payments for reconciliation: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment", "error", err)
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payments", "error", err)
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}

	return payments, nil
}
