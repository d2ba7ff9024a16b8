package refund

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines refund persistence operations.
type Repository interface {
	Create(ctx context.Context, r *Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*Refund, error)
	GetBySolicitationID(ctx context.Context, solicitationID string) (*Refund, error)
	Update(ctx context.Context, r *Refund) error
}

// DevolutionRepository defines refund devolution persistence operations.
type DevolutionRepository interface {
	Create(ctx context.Context, d *Devolution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Devolution, error)
	GetByEndToEndID(ctx context.Context, endToEndID string) (*Devolution, error)
	Update(ctx context.Context, d *Devolution) error
	ListByStateUpdatedBefore(ctx context.Context, state DevolutionState, threshold time.Time, limit int) ([]*Devolution, error)
}

// ErrRefundNotFound indicates a missing refund.
type ErrRefundNotFound struct {
	ID uuid.UUID
}

func (e ErrRefundNotFound) Error() string {
	return "refund not found: " + e.ID.String()
}

func (e ErrRefundNotFound) Is(target error) bool {
	_, ok := target.(ErrRefundNotFound)
	return ok
}

// ErrDevolutionNotFound indicates a missing refund devolution.
type ErrDevolutionNotFound struct {
	ID uuid.UUID
}

func (e ErrDevolutionNotFound) Error() string {
	return "refund devolution not found: " + e.ID.String()
}

func (e ErrDevolutionNotFound) Is(target error) bool {
	_, ok := target.(ErrDevolutionNotFound)
	return ok
}
