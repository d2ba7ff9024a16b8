package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// FraudDetectionRepository implements the infraction.FraudDetectionRepository
// interface for PostgreSQL
type FraudDetectionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFraudDetectionRepository creates a new PostgreSQL fraud detection repository
func NewFraudDetectionRepository(logger *slog.Logger, db *persistence.PostgresDB) infraction.FraudDetectionRepository {
	return &FraudDetectionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const fraudDetectionColumns = `id, external_id, document, key, fraud_type, state, created_at, updated_at`

func scanFraudDetection(row pgx.Row) (*infraction.FraudDetection, error) {
	var f infraction.FraudDetection
	err := row.Scan(
		&f.ID,
		&f.ExternalID,
		&f.Document,
		&f.Key,
		&f.FraudType,
		&f.State,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create stores a new fraud detection
func (r *FraudDetectionRepository) Create(ctx context.Context, f *infraction.FraudDetection) error {
	query := `
		INSERT INTO fraud_detections (` + fraudDetectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		f.ID,
		f.ExternalID,
		f.Document,
		f.Key,
		f.FraudType,
		f.State,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create fraud detection", "id", f.ID.String(), "error", err)
		return fmt.Errorf("failed to create fraud detection: %w", err)
	}

	return nil
}

// GetByID retrieves a fraud detection by its ID
func (r *FraudDetectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	query := `SELECT ` + fraudDetectionColumns + ` FROM fraud_detections WHERE id = $1`

	f, err := scanFraudDetection(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infraction.ErrFraudDetectionNotFound{ID: id}
		}
		r.logger.Error("Failed to get fraud detection", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get fraud detection: %w", err)
	}

	return f, nil
}

// GetByExternalID retrieves a fraud detection by the PSP reference
func (r *FraudDetectionRepository) GetByExternalID(ctx context.Context, externalID string) (*infraction.FraudDetection, error) {
	query := `SELECT ` + fraudDetectionColumns + ` FROM fraud_detections WHERE external_id = $1`

	f, err := scanFraudDetection(r.querier.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infraction.ErrFraudDetectionNotFound{}
		}
		r.logger.Error("Failed to get fraud detection by external id", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get fraud detection by external id: %w", err)
	}

	return f, nil
}

// Update persists a fraud detection state transition
func (r *FraudDetectionRepository) Update(ctx context.Context, f *infraction.FraudDetection) error {
	query := `
		UPDATE fraud_detections
		SET external_id = $1, state = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		f.ExternalID,
		f.State,
		f.UpdatedAt,
		f.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update fraud detection", "id", f.ID.String(), "error", err)
		return fmt.Errorf("failed to update fraud detection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return infraction.ErrFraudDetectionNotFound{ID: f.ID}
	}

	return nil
}
