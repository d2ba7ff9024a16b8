// Package infraction models infraction reports and fraud detections
// exchanged with the PSP over suspected irregular transactions.
package infraction

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// State enumerates the infraction lifecycle. Reports received from the
// PSP start at RECEIVE_PENDING; reports opened by this bank start at
// REGISTERED_PENDING.
type State string

const (
	StateReceivePending            State = "RECEIVE_PENDING"
	StateReceiveConfirmed          State = "RECEIVE_CONFIRMED"
	StateRegisteredPending         State = "REGISTERED_PENDING"
	StateRegisteredConfirmed       State = "REGISTERED_CONFIRMED"
	StateCancelRegisteredPending   State = "CANCELED_REGISTERED_PENDING"
	StateCancelRegisteredConfirmed State = "CANCELED_REGISTERED_CONFIRMED"
)

// Type classifies the reported irregularity.
type Type string

const (
	TypeFraud            Type = "FRAUD"
	TypeRefundRequest    Type = "REFUND_REQUEST"
	TypeCancelDevolution Type = "CANCEL_DEVOLUTION"
)

// Transitions defines the legal infraction state machine.
var Transitions = shared.Transitions[State]{
	StateReceivePending:          {StateReceiveConfirmed},
	StateRegisteredPending:       {StateRegisteredConfirmed},
	StateRegisteredConfirmed:     {StateCancelRegisteredPending},
	StateCancelRegisteredPending: {StateCancelRegisteredConfirmed},
}

// Infraction is a report of a suspected irregular transaction, either
// received from the PSP or opened by this bank.
type Infraction struct {
	ID          uuid.UUID             `json:"id"`
	ReportID    string                `json:"report_id,omitempty"` // PSP reference
	Type        Type                  `json:"type"`
	Transaction shared.TransactionRef `json:"transaction,omitempty"`
	Description string                `json:"description,omitempty"`
	State       State                 `json:"state"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// New builds an infraction opened by this bank, awaiting registration at
// the PSP.
func New(id uuid.UUID, typ Type, transaction shared.TransactionRef, description string) *Infraction {
	now := time.Now()
	return &Infraction{
		ID:          id,
		Type:        typ,
		Transaction: transaction,
		Description: description,
		State:       StateRegisteredPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewReceived builds an infraction reported by the PSP.
func NewReceived(id uuid.UUID, reportID string, typ Type, transaction shared.TransactionRef, description string) *Infraction {
	i := New(id, typ, transaction, description)
	i.ReportID = reportID
	i.State = StateReceivePending
	return i
}

func (i *Infraction) transition(to State, op string) error {
	if !Transitions.Allowed(i.State, to) {
		return shared.InvalidStateError{Entity: "infraction", ID: i.ID.String(), State: string(i.State), Operation: op}
	}
	i.State = to
	i.UpdatedAt = time.Now()
	return nil
}

// MarkReceiveConfirmed acknowledges receipt of the report to the PSP.
func (i *Infraction) MarkReceiveConfirmed() error {
	return i.transition(StateReceiveConfirmed, "confirm receive")
}

// MarkRegisteredConfirmed records the PSP acceptance of the registration.
func (i *Infraction) MarkRegisteredConfirmed(reportID string) error {
	if err := i.transition(StateRegisteredConfirmed, "register"); err != nil {
		return err
	}
	if i.ReportID == "" {
		i.ReportID = reportID
	}
	return nil
}

// MarkCancelRegisteredPending starts the cancellation round trip.
func (i *Infraction) MarkCancelRegisteredPending() error {
	return i.transition(StateCancelRegisteredPending, "cancel")
}

// MarkCancelRegisteredConfirmed finalizes the cancellation.
func (i *Infraction) MarkCancelRegisteredConfirmed() error {
	return i.transition(StateCancelRegisteredConfirmed, "cancel")
}
