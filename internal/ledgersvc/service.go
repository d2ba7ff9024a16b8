// Package ledgersvc defines the boundary with the internal double-entry
// operation service that debits and credits wallets.
package ledgersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Operation is a double-entry record to be created at the ledger.
// The id is supplied by the caller so ledger calls are idempotent too.
type Operation struct {
	ID          uuid.UUID `json:"id"`
	RawValue    int64     `json:"raw_value"` // minor units
	Description string    `json:"description,omitempty"`
}

// CreatedOperations carries the ledger-side ids of a created pair.
type CreatedOperations struct {
	OwnerID       uuid.UUID `json:"owner_id"`
	BeneficiaryID uuid.UUID `json:"beneficiary_id,omitempty"`
}

// Service is the narrow interface consumed by the engine. Operations are
// immutable once accepted; correction happens only via RevertOperation.
type Service interface {
	// CreateAndAcceptOperation creates and accepts an operation in one
	// call, debiting ownerWalletID and/or crediting beneficiaryWalletID.
	CreateAndAcceptOperation(ctx context.Context, tag string, op *Operation, ownerWalletID, beneficiaryWalletID *uuid.UUID) error

	// CreateOperation creates a pending operation pair.
	CreateOperation(ctx context.Context, tag string, op *Operation, walletID uuid.UUID, counterWalletID *uuid.UUID, allowNegativeAvailable bool) (*CreatedOperations, error)

	// RevertOperation reverses a previously accepted operation.
	RevertOperation(ctx context.Context, operationID uuid.UUID) error
}

// LedgerError is a ledger service refusal (inactive wallet, insufficient
// balance). It is permanent from the engine's point of view.
type LedgerError struct {
	Code    string
	Message string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger refused operation [%s]: %s", e.Code, e.Message)
}

// IsLedgerError reports whether err is a ledger refusal.
func IsLedgerError(err error) bool {
	var le *LedgerError
	return errors.As(err, &le)
}
