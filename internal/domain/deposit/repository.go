package deposit

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines deposit persistence operations. Implementations must
// make the read-check-write sequence of a single transition effectively
// atomic (transaction or optimistic version check).
type Repository interface {
	Create(ctx context.Context, d *Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Deposit, error)
	GetByEndToEndID(ctx context.Context, endToEndID string) (*Deposit, error)
	Update(ctx context.Context, d *Deposit) error
}

// ErrDepositNotFound indicates a missing deposit.
type ErrDepositNotFound struct {
	ID uuid.UUID
}

func (e ErrDepositNotFound) Error() string {
	return "deposit not found: " + e.ID.String()
}

func (e ErrDepositNotFound) Is(target error) bool {
	_, ok := target.(ErrDepositNotFound)
	return ok
}
