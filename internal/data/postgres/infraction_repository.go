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

// InfractionRepository implements the infraction.Repository interface for PostgreSQL
type InfractionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInfractionRepository creates a new PostgreSQL infraction repository
func NewInfractionRepository(logger *slog.Logger, db *persistence.PostgresDB) infraction.Repository {
	return &InfractionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const infractionColumns = `id, report_id, type, transaction_kind, transaction_id, description, state, created_at, updated_at`

func scanInfraction(row pgx.Row) (*infraction.Infraction, error) {
	var i infraction.Infraction
	err := row.Scan(
		&i.ID,
		&i.ReportID,
		&i.Type,
		&i.Transaction.Kind,
		&i.Transaction.ID,
		&i.Description,
		&i.State,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create stores a new infraction
func (r *InfractionRepository) Create(ctx context.Context, i *infraction.Infraction) error {
	query := `
		INSERT INTO infractions (` + infractionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		i.ID,
		i.ReportID,
		i.Type,
		i.Transaction.Kind,
		i.Transaction.ID,
		i.Description,
		i.State,
		i.CreatedAt,
		i.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create infraction", "id", i.ID.String(), "error", err)
		return fmt.Errorf("failed to create infraction: %w", err)
	}

	return nil
}

// GetByID retrieves an infraction by its ID
func (r *InfractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	query := `SELECT ` + infractionColumns + ` FROM infractions WHERE id = $1`

	i, err := scanInfraction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infraction.ErrInfractionNotFound{ID: id}
		}
		r.logger.Error("Failed to get infraction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get infraction: %w", err)
	}

	return i, nil
}

// GetByReportID retrieves an infraction by the PSP report reference
func (r *InfractionRepository) GetByReportID(ctx context.Context, reportID string) (*infraction.Infraction, error) {
	query := `SELECT ` + infractionColumns + ` FROM infractions WHERE report_id = $1`

	i, err := scanInfraction(r.querier.QueryRow(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infraction.ErrInfractionNotFound{}
		}
		r.logger.Error("Failed to get infraction by report id", "report_id", reportID, "error", err)
		return nil, fmt.Errorf("failed to get infraction by report id: %w", err)
	}

	return i, nil
}

// Update persists an infraction state transition
func (r *InfractionRepository) Update(ctx context.Context, i *infraction.Infraction) error {
	query := `
		UPDATE infractions
		SET report_id = $1, state = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		i.ReportID,
		i.State,
		i.UpdatedAt,
		i.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update infraction", "id", i.ID.String(), "error", err)
		return fmt.Errorf("failed to update infraction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return infraction.ErrInfractionNotFound{ID: i.ID}
	}

	return nil
}
