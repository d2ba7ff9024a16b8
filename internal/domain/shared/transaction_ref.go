package shared

import "github.com/google/uuid"

// TransactionKind tags the entity family a TransactionRef points at.
type TransactionKind string

const (
	TransactionKindDeposit            TransactionKind = "DEPOSIT"
	TransactionKindDevolutionReceived TransactionKind = "DEVOLUTION_RECEIVED"
)

// TransactionRef is a tagged reference to the transaction originating a
// refund or infraction. Only deposits and received devolutions can be
// referenced; resolution is two repository lookups, never a shared base
// type.
type TransactionRef struct {
	Kind TransactionKind `json:"kind"`
	ID   uuid.UUID       `json:"id"`
}

// Zero reports whether the reference is unset.
func (r TransactionRef) Zero() bool {
	return r.Kind == "" && r.ID == uuid.Nil
}
