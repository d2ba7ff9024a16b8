package refund

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// DevolutionState enumerates the refund devolution lifecycle. It mirrors
// the outbound payment family: the funds leave through the PSP and the
// outcome may only be learned by reconciliation.
type DevolutionState string

const (
	DevolutionStatePending   DevolutionState = "PENDING"
	DevolutionStateWaiting   DevolutionState = "WAITING"
	DevolutionStateConfirmed DevolutionState = "CONFIRMED"
	DevolutionStateReverted  DevolutionState = "REVERTED"
)

// DevolutionTransitions defines the legal refund devolution state machine.
var DevolutionTransitions = shared.Transitions[DevolutionState]{
	DevolutionStatePending: {DevolutionStateWaiting, DevolutionStateReverted},
	DevolutionStateWaiting: {DevolutionStateConfirmed, DevolutionStateReverted},
}

// Devolution pays an accepted refund back through the PSP.
type Devolution struct {
	ID            uuid.UUID             `json:"id"`
	EndToEndID    string                `json:"end_to_end_id,omitempty"`
	RefundID      uuid.UUID             `json:"refund_id"`
	Transaction   shared.TransactionRef `json:"transaction"`
	Amount        int64                 `json:"amount"` // minor units
	Description   string                `json:"description,omitempty"`
	State         DevolutionState       `json:"state"`
	OperationID   uuid.UUID             `json:"operation_id,omitempty"`
	FailedCode    string                `json:"failed_code,omitempty"`
	FailedMessage string                `json:"failed_message,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NewDevolution builds a pending refund devolution.
func NewDevolution(id, refundID uuid.UUID, transaction shared.TransactionRef, amount int64, description string) *Devolution {
	now := time.Now()
	return &Devolution{
		ID:          id,
		RefundID:    refundID,
		Transaction: transaction,
		Amount:      amount,
		Description: description,
		State:       DevolutionStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (d *Devolution) transition(to DevolutionState, op string) error {
	if !DevolutionTransitions.Allowed(d.State, to) {
		return shared.InvalidStateError{Entity: "refund devolution", ID: d.ID.String(), State: string(d.State), Operation: op}
	}
	d.State = to
	d.UpdatedAt = time.Now()
	return nil
}

// MarkWaiting records the PSP acceptance of the dispatch.
func (d *Devolution) MarkWaiting(endToEndID string, operationID uuid.UUID) error {
	if err := d.transition(DevolutionStateWaiting, "dispatch"); err != nil {
		return err
	}
	if d.EndToEndID == "" {
		d.EndToEndID = endToEndID
	}
	d.OperationID = operationID
	return nil
}

// MarkConfirmed finalizes a settled refund devolution.
func (d *Devolution) MarkConfirmed() error {
	return d.transition(DevolutionStateConfirmed, "confirm")
}

// MarkReverted finalizes a rejected refund devolution.
func (d *Devolution) MarkReverted(code, message string) error {
	if err := d.transition(DevolutionStateReverted, "revert"); err != nil {
		return err
	}
	d.FailedCode = code
	d.FailedMessage = message
	return nil
}
