package devolution

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// ReceivedState enumerates the inbound devolution lifecycle. The
// beneficiary is always a client of the owning bank, so the entity is
// created READY with its ledger credit already accepted.
type ReceivedState string

const (
	ReceivedStateReady ReceivedState = "READY"
	ReceivedStateError ReceivedState = "ERROR"
)

// Received is an inbound devolution of a payment this bank sent.
type Received struct {
	ID          uuid.UUID          `json:"id"`
	EndToEndID  string             `json:"end_to_end_id"`
	PaymentID   uuid.UUID          `json:"payment_id"`
	Amount      int64              `json:"amount"` // minor units
	Client      shared.Participant `json:"client"`
	ThirdPart   shared.Participant `json:"third_part"`
	Description string             `json:"description,omitempty"`
	State       ReceivedState      `json:"state"`
	OperationID uuid.UUID          `json:"operation_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewReceived builds an inbound devolution already settled for this bank.
func NewReceived(id uuid.UUID, endToEndID string, paymentID, operationID uuid.UUID, amount int64, client, thirdPart shared.Participant, description string) *Received {
	now := time.Now()
	return &Received{
		ID:          id,
		EndToEndID:  endToEndID,
		PaymentID:   paymentID,
		Amount:      amount,
		Client:      client,
		ThirdPart:   thirdPart,
		Description: description,
		State:       ReceivedStateReady,
		OperationID: operationID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
