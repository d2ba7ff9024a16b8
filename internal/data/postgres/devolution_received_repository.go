package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// DevolutionReceivedRepository implements the devolution.ReceivedRepository
// interface for PostgreSQL. Received devolutions are settled at intake, so
// there is no update path.
type DevolutionReceivedRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDevolutionReceivedRepository creates a new PostgreSQL received devolution repository
func NewDevolutionReceivedRepository(logger *slog.Logger, db *persistence.PostgresDB) devolution.ReceivedRepository {
	return &DevolutionReceivedRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const devolutionReceivedColumns = `id, end_to_end_id, payment_id, amount, client, third_part, description, state, operation_id, created_at, updated_at`

func scanDevolutionReceived(row pgx.Row) (*devolution.Received, error) {
	var d devolution.Received
	err := row.Scan(
		&d.ID,
		&d.EndToEndID,
		&d.PaymentID,
		&d.Amount,
		&d.Client,
		&d.ThirdPart,
		&d.Description,
		&d.State,
		&d.OperationID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create stores a new inbound devolution
func (r *DevolutionReceivedRepository) Create(ctx context.Context, d *devolution.Received) error {
	query := `
		INSERT INTO devolutions_received (` + devolutionReceivedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.EndToEndID,
		d.PaymentID,
		d.Amount,
		d.Client,
		d.ThirdPart,
		d.Description,
		d.State,
		d.OperationID,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create received devolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create received devolution: %w", err)
	}

	return nil
}

// GetByID retrieves an inbound devolution by its ID
func (r *DevolutionReceivedRepository) GetByID(ctx context.Context, id uuid.UUID) (*devolution.Received, error) {
	query := `SELECT ` + devolutionReceivedColumns + ` FROM devolutions_received WHERE id = $1`

	d, err := scanDevolutionReceived(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, devolution.ErrReceivedNotFound{ID: id}
		}
		r.logger.Error("Failed to get received devolution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get received devolution: %w", err)
	}

	return d, nil
}

// GetByEndToEndID retrieves an inbound devolution by its Pix end-to-end identifier
func (r *DevolutionReceivedRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*devolution.Received, error) {
	query := `SELECT ` + devolutionReceivedColumns + ` FROM devolutions_received WHERE end_to_end_id = $1`

	d, err := scanDevolutionReceived(r.querier.QueryRow(ctx, query, endToEndID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, devolution.ErrReceivedNotFound{}
		}
		r.logger.Error("Failed to get received devolution by end-to-end id", "end_to_end_id", endToEndID, "error", err)
		return nil, fmt.Errorf("failed to get received devolution by end-to-end id: %w", err)
	}

	return d, nil
}
