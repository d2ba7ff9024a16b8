package infraction

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// FraudType classifies the fraud detection report.
type FraudType string

const (
	FraudTypeFalseIdentity    FraudType = "FALSE_IDENTIFICATION"
	FraudTypeDummyAccount     FraudType = "DUMMY_ACCOUNT"
	FraudTypeFraudsterAccount FraudType = "FRAUDSTER_ACCOUNT"
	FraudTypeOther            FraudType = "OTHER"
)

// FraudDetection flags a document or key involved in suspected fraud.
// It shares the infraction state machine.
type FraudDetection struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id,omitempty"` // PSP reference
	Document   string    `json:"document"`
	Key        string    `json:"key,omitempty"`
	FraudType  FraudType `json:"fraud_type"`
	State      State     `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewFraudDetection builds a fraud detection opened by this bank.
func NewFraudDetection(id uuid.UUID, document, key string, fraudType FraudType) *FraudDetection {
	now := time.Now()
	return &FraudDetection{
		ID:        id,
		Document:  document,
		Key:       key,
		FraudType: fraudType,
		State:     StateRegisteredPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFraudDetectionReceived builds a fraud detection reported by the PSP.
func NewFraudDetectionReceived(id uuid.UUID, externalID, document, key string, fraudType FraudType) *FraudDetection {
	f := NewFraudDetection(id, document, key, fraudType)
	f.ExternalID = externalID
	f.State = StateReceivePending
	return f
}

func (f *FraudDetection) transition(to State, op string) error {
	if !Transitions.Allowed(f.State, to) {
		return shared.InvalidStateError{Entity: "fraud detection", ID: f.ID.String(), State: string(f.State), Operation: op}
	}
	f.State = to
	f.UpdatedAt = time.Now()
	return nil
}

// MarkReceiveConfirmed acknowledges receipt of the report to the PSP.
func (f *FraudDetection) MarkReceiveConfirmed() error {
	return f.transition(StateReceiveConfirmed, "confirm receive")
}

// MarkRegisteredConfirmed records the PSP acceptance of the registration.
func (f *FraudDetection) MarkRegisteredConfirmed(externalID string) error {
	if err := f.transition(StateRegisteredConfirmed, "register"); err != nil {
		return err
	}
	if f.ExternalID == "" {
		f.ExternalID = externalID
	}
	return nil
}

// MarkCancelRegisteredPending starts the cancellation round trip.
func (f *FraudDetection) MarkCancelRegisteredPending() error {
	return f.transition(StateCancelRegisteredPending, "cancel")
}

// MarkCancelRegisteredConfirmed finalizes the cancellation.
func (f *FraudDetection) MarkCancelRegisteredConfirmed() error {
	return f.transition(StateCancelRegisteredConfirmed, "cancel")
}
