package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
)

// WalletRepository resolves client wallets. Wallets are owned by the core
// banking system; this engine only reads them.
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) *WalletRepository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a wallet by its ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.Wallet, error) {
	query := `SELECT id, user_id, state FROM wallets WHERE id = $1`

	var w shared.Wallet
	err := r.querier.QueryRow(ctx, query, id).Scan(&w.ID, &w.UserID, &w.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "wallet", ID: id.String()}
		}
		r.logger.Error("Failed to get wallet", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// GetByAccount retrieves a wallet by its branch and account number
func (r *WalletRepository) GetByAccount(ctx context.Context, branch, accountNumber string) (*shared.Wallet, error) {
	query := `SELECT id, user_id, state FROM wallets WHERE branch = $1 AND account_number = $2`

	var w shared.Wallet
	err := r.querier.QueryRow(ctx, query, branch, accountNumber).Scan(&w.ID, &w.UserID, &w.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "wallet", ID: branch + "/" + accountNumber}
		}
		r.logger.Error("Failed to get wallet by account", "branch", branch, "account_number", accountNumber, "error", err)
		return nil, fmt.Errorf("failed to get wallet by account: %w", err)
	}

	return &w, nil
}
