package intake

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// WalletGetter resolves client wallets for integrity checks. Lookups
// return a shared.NotFoundError when the wallet does not exist.
type WalletGetter interface {
	GetByAccount(ctx context.Context, branch, accountNumber string) (*shared.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*shared.Wallet, error)
}

// BankDirectory resolves participant banks by ISPB.
type BankDirectory interface {
	GetByISPB(ctx context.Context, ispb string) (*shared.Bank, error)
}
