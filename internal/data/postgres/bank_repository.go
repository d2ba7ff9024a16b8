package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// BankRepository resolves participant institutions by their ISPB code.
type BankRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBankRepository creates a new PostgreSQL bank repository
func NewBankRepository(logger *slog.Logger, db *persistence.PostgresDB) *BankRepository {
	return &BankRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByISPB retrieves a bank by its eight digit ISPB code
func (r *BankRepository) GetByISPB(ctx context.Context, ispb string) (*shared.Bank, error) {
	query := `SELECT ispb, name FROM banks WHERE ispb = $1`

	var b shared.Bank
	err := r.querier.QueryRow(ctx, query, ispb).Scan(&b.ISPB, &b.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "bank", ID: ispb}
		}
		r.logger.Error("Failed to get bank", "ispb", ispb, "error", err)
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}

	return &b, nil
}
