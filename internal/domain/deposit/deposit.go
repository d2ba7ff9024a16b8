package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// State enumerates the deposit lifecycle.
type State string

const (
	StateNew            State = "NEW"
	StateWaiting        State = "WAITING"
	StateReceived       State = "RECEIVED"
	StateReceivedFailed State = "RECEIVED_FAILED"
)

// Transitions defines the legal deposit state machine. WAITING deposits
// are held for review and released to RECEIVED out of band.
var Transitions = shared.Transitions[State]{
	StateNew:     {StateWaiting, StateReceived, StateReceivedFailed},
	StateWaiting: {StateReceived},
}

// Deposit is an inbound instant-payment credit observed from the PSP.
type Deposit struct {
	ID            uuid.UUID          `json:"id"`
	EndToEndID    string             `json:"end_to_end_id"`
	TxID          string             `json:"tx_id,omitempty"`
	Amount        int64              `json:"amount"` // minor units
	Client        shared.Participant `json:"client"`
	ThirdPart     shared.Participant `json:"third_part"`
	Description   string             `json:"description,omitempty"`
	State         State              `json:"state"`
	OperationID   uuid.UUID          `json:"operation_id,omitempty"`
	FailedCode    string             `json:"failed_code,omitempty"`
	FailedMessage string             `json:"failed_message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// New builds a deposit in its initial state.
func New(id uuid.UUID, endToEndID string, amount int64, client, thirdPart shared.Participant, description string) *Deposit {
	now := time.Now()
	return &Deposit{
		ID:          id,
		EndToEndID:  endToEndID,
		Amount:      amount,
		Client:      client,
		ThirdPart:   thirdPart,
		Description: description,
		State:       StateNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (d *Deposit) transition(to State, op string) error {
	if !Transitions.Allowed(d.State, to) {
		return shared.InvalidStateError{Entity: "deposit", ID: d.ID.String(), State: string(d.State), Operation: op}
	}
	d.State = to
	d.UpdatedAt = time.Now()
	return nil
}

// MarkReceived records the synchronous ledger credit and settles the deposit.
func (d *Deposit) MarkReceived(operationID uuid.UUID) error {
	if err := d.transition(StateReceived, "receive"); err != nil {
		return err
	}
	d.OperationID = operationID
	return nil
}

// MarkWaiting holds the deposit for review instead of crediting it.
func (d *Deposit) MarkWaiting() error {
	return d.transition(StateWaiting, "hold")
}

// MarkFailed records an intake validation failure.
func (d *Deposit) MarkFailed(code, message string) error {
	if err := d.transition(StateReceivedFailed, "fail"); err != nil {
		return err
	}
	d.FailedCode = code
	d.FailedMessage = message
	return nil
}
