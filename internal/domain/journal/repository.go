package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines transition journal persistence. Append failures must
// not fail the transition that produced the entry; callers log and move on.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByEntityID(ctx context.Context, entityID uuid.UUID) ([]*Entry, error)
}
