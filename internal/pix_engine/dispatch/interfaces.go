package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// WalletGetter resolves the wallet debited by an outbound dispatch.
type WalletGetter interface {
	GetByAccount(ctx context.Context, branch, accountNumber string) (*shared.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*shared.Wallet, error)
}
