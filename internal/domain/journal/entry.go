package journal

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one committed state transition for audit and support
// tooling. Entries are append-only.
type Entry struct {
	ID        uuid.UUID `json:"id" bson:"id"`
	Entity    string    `json:"entity" bson:"entity"`
	EntityID  uuid.UUID `json:"entity_id" bson:"entity_id"`
	FromState string    `json:"from_state" bson:"from_state"`
	ToState   string    `json:"to_state" bson:"to_state"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	At        time.Time `json:"at" bson:"at"`
}

// NewEntry builds a journal entry for a transition committed now.
func NewEntry(entity string, entityID uuid.UUID, fromState, toState, reason string) *Entry {
	return &Entry{
		ID:        uuid.New(),
		Entity:    entity,
		EntityID:  entityID,
		FromState: fromState,
		ToState:   toState,
		Reason:    reason,
		At:        time.Now(),
	}
}
