// Package refund models PSP-initiated refund requests against transactions
// this bank received, and the refund devolutions that pay them back.
package refund

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// State enumerates the refund lifecycle.
type State string

const (
	StateReceivePending   State = "RECEIVE_PENDING"
	StateReceiveConfirmed State = "RECEIVE_CONFIRMED"
	StateCancelPending    State = "CANCEL_PENDING"
	StateCancelled        State = "CANCELLED"
)

// Reason classifies why the PSP opened the refund.
type Reason string

const (
	ReasonFraud         Reason = "FRAUD"
	ReasonOperationFlaw Reason = "OPERATIONAL_FLAW"
	ReasonRefundCancel  Reason = "REFUND_CANCELLED"
)

// Transitions defines the legal refund state machine.
var Transitions = shared.Transitions[State]{
	StateReceivePending:   {StateReceiveConfirmed, StateCancelPending},
	StateReceiveConfirmed: {StateCancelPending},
	StateCancelPending:    {StateCancelled},
}

// Refund is a PSP-initiated request to return funds from a transaction
// this bank received (a deposit or a received devolution).
type Refund struct {
	ID             uuid.UUID             `json:"id"`
	SolicitationID string                `json:"solicitation_id"` // PSP reference
	Transaction    shared.TransactionRef `json:"transaction"`
	Amount         int64                 `json:"amount"` // minor units
	Reason         Reason                `json:"reason"`
	Description    string                `json:"description,omitempty"`
	State          State                 `json:"state"`
	AnalysisResult string                `json:"analysis_result,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// New builds a refund in RECEIVE_PENDING.
func New(id uuid.UUID, solicitationID string, transaction shared.TransactionRef, amount int64, reason Reason, description string) *Refund {
	now := time.Now()
	return &Refund{
		ID:             id,
		SolicitationID: solicitationID,
		Transaction:    transaction,
		Amount:         amount,
		Reason:         reason,
		Description:    description,
		State:          StateReceivePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *Refund) transition(to State, op string) error {
	if !Transitions.Allowed(r.State, to) {
		return shared.InvalidStateError{Entity: "refund", ID: r.ID.String(), State: string(r.State), Operation: op}
	}
	r.State = to
	r.UpdatedAt = time.Now()
	return nil
}

// MarkReceiveConfirmed acknowledges receipt of the refund to the PSP.
func (r *Refund) MarkReceiveConfirmed() error {
	return r.transition(StateReceiveConfirmed, "confirm receive")
}

// MarkCancelPending starts the cancellation round trip with the PSP.
func (r *Refund) MarkCancelPending(analysisResult string) error {
	if err := r.transition(StateCancelPending, "cancel"); err != nil {
		return err
	}
	r.AnalysisResult = analysisResult
	return nil
}

// MarkCancelled finalizes the cancellation.
func (r *Refund) MarkCancelled() error {
	return r.transition(StateCancelled, "cancel")
}
