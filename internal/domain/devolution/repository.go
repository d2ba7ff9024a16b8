package devolution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines outbound devolution persistence operations.
type Repository interface {
	Create(ctx context.Context, d *Devolution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Devolution, error)
	GetByEndToEndID(ctx context.Context, endToEndID string) (*Devolution, error)
	Update(ctx context.Context, d *Devolution) error
	ListByStateUpdatedBefore(ctx context.Context, state State, threshold time.Time, limit int) ([]*Devolution, error)
}

// ReceivedRepository defines inbound devolution persistence operations.
type ReceivedRepository interface {
	Create(ctx context.Context, r *Received) error
	GetByID(ctx context.Context, id uuid.UUID) (*Received, error)
	GetByEndToEndID(ctx context.Context, endToEndID string) (*Received, error)
}

// ErrDevolutionNotFound indicates a missing devolution.
type ErrDevolutionNotFound struct {
	ID uuid.UUID
}

func (e ErrDevolutionNotFound) Error() string {
	return "devolution not found: " + e.ID.String()
}

func (e ErrDevolutionNotFound) Is(target error) bool {
	_, ok := target.(ErrDevolutionNotFound)
	return ok
}

// ErrReceivedNotFound indicates a missing inbound devolution.
type ErrReceivedNotFound struct {
	ID uuid.UUID
}

func (e ErrReceivedNotFound) Error() string {
	return "devolution received not found: " + e.ID.String()
}

func (e ErrReceivedNotFound) Is(target error) bool {
	_, ok := target.(ErrReceivedNotFound)
	return ok
}
