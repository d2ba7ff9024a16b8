package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// DevolutionRepository implements the devolution.Repository interface for PostgreSQL
type DevolutionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDevolutionRepository creates a new PostgreSQL devolution repository
func NewDevolutionRepository(logger *slog.Logger, db *persistence.PostgresDB) devolution.Repository {
	return &DevolutionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const devolutionColumns = `id, end_to_end_id, deposit_id, amount, description, state, operation_id, failed_code, failed_message, created_at, updated_at`

func scanDevolution(row pgx.Row) (*devolution.Devolution, error) {
	var d devolution.Devolution
	err := row.Scan(
		&d.ID,
		&d.EndToEndID,
		&d.DepositID,
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

// Create stores a new outbound devolution
func (r *DevolutionRepository) Create(ctx context.Context, d *devolution.Devolution) error {
	query := `
		INSERT INTO devolutions (` + devolutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.EndToEndID,
		d.DepositID,
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
		r.logger.Error("Failed to create devolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create devolution: %w", err)
	}

	return nil
}

// GetByID retrieves a devolution by its ID
func (r *DevolutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*devolution.Devolution, error) {
	query := `SELECT ` + devolutionColumns + ` FROM devolutions WHERE id = $1`

	d, err := scanDevolution(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, devolution.ErrDevolutionNotFound{ID: id}
		}
		r.logger.Error("Failed to get devolution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get devolution: %w", err)
	}

	return d, nil
}

// GetByEndToEndID retrieves a devolution by its Pix end-to-end identifier
func (r *DevolutionRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*devolution.Devolution, error) {
	query := `SELECT ` + devolutionColumns + ` FROM devolutions WHERE end_to_end_id = $1`

	d, err := scanDevolution(r.querier.QueryRow(ctx, query, endToEndID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, devolution.ErrDevolutionNotFound{}
		}
		r.logger.Error("Failed to get devolution by end-to-end id", "end_to_end_id", endToEndID, "error", err)
		return nil, fmt.Errorf("failed to get devolution by end-to-end id: %w", err)
	}

	return d, nil
}

// Update persists a devolution state transition
func (r *DevolutionRepository) Update(ctx context.Context, d *devolution.Devolution) error {
	query := `
		UPDATE devolutions
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
		r.logger.Error("Failed to update devolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update devolution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return devolution.ErrDevolutionNotFound{ID: d.ID}
	}

	return nil
}

// ListByStateUpdatedBefore returns a reconciliation batch of devolutions
// stuck in the given state since before the threshold, oldest first.
func (r *DevolutionRepository) ListByStateUpdatedBefore(ctx context.Context, state devolution.State, threshold time.Time, limit int) ([]*devolution.Devolution, error) {
	query := `
		SELECT ` + devolutionColumns + `
		FROM devolutions
		WHERE state = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, state, threshold, limit)
	if err != nil {
		r.logger.Error("Failed to list devolutions for reconciliation", "state", string(state), "error", err)
		return nil, fmt.Errorf("failed to list devolutions for reconciliation: %w", err)
	}
	defer rows.Close()

	var devolutions []*devolution.Devolution
	for rows.Next() {
		d, err := scanDevolution(rows)
		if err != nil {
			r.logger.Error("Failed to scan devolution", "error", err)
			return nil, fmt.Errorf("failed to scan devolution: %w", err)
		}
		devolutions = append(devolutions, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over devolutions", "error", err)
		return nil, fmt.Errorf("error iterating over devolutions: %w", err)
	}

	return devolutions, nil
}
