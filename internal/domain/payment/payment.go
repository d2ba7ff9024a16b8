package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// State enumerates the outbound payment lifecycle.
type State string

const (
	StatePending   State = "PENDING"
	StateScheduled State = "SCHEDULED"
	StateWaiting   State = "WAITING"
	StateConfirmed State = "CONFIRMED"
	StateReverted  State = "REVERTED"
)

// PriorityType selects the reconciliation staleness threshold applied to
// a waiting payment.
type PriorityType string

const (
	PriorityNormal PriorityType = "NORMAL"
	PriorityUrgent PriorityType = "URGENT"
)

// Transitions defines the legal payment state machine. WAITING is reached
// after a successful PSP dispatch; CONFIRMED and REVERTED are reached
// either synchronously or by the reconciliation sweep.
var Transitions = shared.Transitions[State]{
	StatePending:   {StateWaiting, StateReverted},
	StateScheduled: {StatePending, StateWaiting, StateReverted},
	StateWaiting:   {StateConfirmed, StateReverted},
}

// Payment is an outbound instant-payment debit initiated by a client.
type Payment struct {
	ID            uuid.UUID          `json:"id"`
	EndToEndID    string             `json:"end_to_end_id,omitempty"`
	WalletID      uuid.UUID          `json:"wallet_id"`
	Amount        int64              `json:"amount"` // minor units
	Owner         shared.Participant `json:"owner"`
	Beneficiary   shared.Participant `json:"beneficiary"`
	Description   string             `json:"description,omitempty"`
	Priority      PriorityType       `json:"priority"`
	State         State              `json:"state"`
	PaymentDate   *time.Time         `json:"payment_date,omitempty"` // set for SCHEDULED
	OperationID   uuid.UUID          `json:"operation_id,omitempty"`
	FailedCode    string             `json:"failed_code,omitempty"`
	FailedMessage string             `json:"failed_message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// New builds a payment in PENDING, or SCHEDULED when paymentDate is in the
// future.
func New(id, walletID uuid.UUID, amount int64, owner, beneficiary shared.Participant, description string, priority PriorityType, paymentDate *time.Time) *Payment {
	now := time.Now()
	state := StatePending
	if paymentDate != nil && paymentDate.After(now) {
		state = StateScheduled
	}
	if priority == "" {
		priority = PriorityNormal
	}
	return &Payment{
		ID:          id,
		WalletID:    walletID,
		Amount:      amount,
		Owner:       owner,
		Beneficiary: beneficiary,
		Description: description,
		Priority:    priority,
		State:       state,
		PaymentDate: paymentDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Payment) transition(to State, op string) error {
	if !Transitions.Allowed(p.State, to) {
		return shared.InvalidStateError{Entity: "payment", ID: p.ID.String(), State: string(p.State), Operation: op}
	}
	p.State = to
	p.UpdatedAt = time.Now()
	return nil
}

// MarkWaiting records the PSP acceptance of the dispatch. The PSP-assigned
// end-to-end id never changes after assignment.
func (p *Payment) MarkWaiting(endToEndID string, operationID uuid.UUID) error {
	if err := p.transition(StateWaiting, "dispatch"); err != nil {
		return err
	}
	if p.EndToEndID == "" {
		p.EndToEndID = endToEndID
	}
	p.OperationID = operationID
	return nil
}

// MarkConfirmed finalizes a settled payment.
func (p *Payment) MarkConfirmed() error {
	return p.transition(StateConfirmed, "confirm")
}

// MarkReverted finalizes a definitively rejected payment with the
// translated failure reason.
func (p *Payment) MarkReverted(code, message string) error {
	if err := p.transition(StateReverted, "revert"); err != nil {
		return err
	}
	p.FailedCode = code
	p.FailedMessage = message
	return nil
}
