package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines payment persistence operations.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByEndToEndID(ctx context.Context, endToEndID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error

	// ListByStateUpdatedBefore returns payments in the given state whose
	// last update is older than the threshold, for reconciliation.
	ListByStateUpdatedBefore(ctx context.Context, state State, priority PriorityType, threshold time.Time, limit int) ([]*Payment, error)
}

// ErrPaymentNotFound indicates a missing payment.
type ErrPaymentNotFound struct {
	ID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.ID.String()
}

func (e ErrPaymentNotFound) Is(target error) bool {
	_, ok := target.(ErrPaymentNotFound)
	return ok
}
