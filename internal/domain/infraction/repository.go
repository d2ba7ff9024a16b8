package infraction

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines infraction persistence operations.
type Repository interface {
	Create(ctx context.Context, i *Infraction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Infraction, error)
	GetByReportID(ctx context.Context, reportID string) (*Infraction, error)
	Update(ctx context.Context, i *Infraction) error
}

// FraudDetectionRepository defines fraud detection persistence operations.
type FraudDetectionRepository interface {
	Create(ctx context.Context, f *FraudDetection) error
	GetByID(ctx context.Context, id uuid.UUID) (*FraudDetection, error)
	GetByExternalID(ctx context.Context, externalID string) (*FraudDetection, error)
	Update(ctx context.Context, f *FraudDetection) error
}

// ErrInfractionNotFound indicates a missing infraction.
type ErrInfractionNotFound struct {
	ID uuid.UUID
}

func (e ErrInfractionNotFound) Error() string {
	return "infraction not found: " + e.ID.String()
}

func (e ErrInfractionNotFound) Is(target error) bool {
	_, ok := target.(ErrInfractionNotFound)
	return ok
}

// ErrFraudDetectionNotFound indicates a missing fraud detection.
type ErrFraudDetectionNotFound struct {
	ID uuid.UUID
}

func (e ErrFraudDetectionNotFound) Error() string {
	return "fraud detection not found: " + e.ID.String()
}

func (e ErrFraudDetectionNotFound) Is(target error) bool {
	_, ok := target.(ErrFraudDetectionNotFound)
	return ok
}
