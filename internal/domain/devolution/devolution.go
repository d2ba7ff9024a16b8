// Package devolution models the return of a received deposit: the
// outbound PixDevolution sent by this bank and the inbound
// PixDevolutionReceived credited to one of its clients.
package devolution

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// State enumerates the outbound devolution lifecycle.
type State string

const (
	StatePending   State = "PENDING"
	StateWaiting   State = "WAITING"
	StateConfirmed State = "CONFIRMED"
	StateReverted  State = "REVERTED"
)

// Transitions defines the legal outbound devolution state machine.
var Transitions = shared.Transitions[State]{
	StatePending: {StateWaiting, StateReverted},
	StateWaiting: {StateConfirmed, StateReverted},
}

// Devolution returns part or all of a received deposit to its sender.
type Devolution struct {
	ID            uuid.UUID `json:"id"`
	EndToEndID    string    `json:"end_to_end_id,omitempty"`
	DepositID     uuid.UUID `json:"deposit_id"`
	Amount        int64     `json:"amount"` // minor units
	Description   string    `json:"description,omitempty"`
	State         State     `json:"state"`
	OperationID   uuid.UUID `json:"operation_id,omitempty"`
	FailedCode    string    `json:"failed_code,omitempty"`
	FailedMessage string    `json:"failed_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New builds a pending devolution of the given deposit.
func New(id, depositID uuid.UUID, amount int64, description string) *Devolution {
	now := time.Now()
	return &Devolution{
		ID:          id,
		DepositID:   depositID,
		Amount:      amount,
		Description: description,
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (d *Devolution) transition(to State, op string) error {
	if !Transitions.Allowed(d.State, to) {
		return shared.InvalidStateError{Entity: "devolution", ID: d.ID.String(), State: string(d.State), Operation: op}
	}
	d.State = to
	d.UpdatedAt = time.Now()
	return nil
}

// MarkWaiting records the PSP acceptance of the dispatch.
func (d *Devolution) MarkWaiting(endToEndID string, operationID uuid.UUID) error {
	if err := d.transition(StateWaiting, "dispatch"); err != nil {
		return err
	}
	if d.EndToEndID == "" {
		d.EndToEndID = endToEndID
	}
	d.OperationID = operationID
	return nil
}

// MarkConfirmed finalizes a settled devolution.
func (d *Devolution) MarkConfirmed() error {
	return d.transition(StateConfirmed, "confirm")
}

// MarkReverted finalizes a rejected devolution with the translated
// failure reason.
func (d *Devolution) MarkReverted(code, message string) error {
	if err := d.transition(StateReverted, "revert"); err != nil {
		return err
	}
	d.FailedCode = code
	d.FailedMessage = message
	return nil
}
