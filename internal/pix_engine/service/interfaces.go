// Package service routes inbound Pix messages to the intake and dispatch
// use cases, optionally through a worker pool.
package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/pix_engine/intake"
)

// Message is the envelope carried by every Pix bus message. Payload is
// decoded by the use case the Type routes to.
type Message struct {
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Message types understood by the router.
const (
	MsgDepositReceived           = "depositReceived"
	MsgDevolutionReceived        = "devolutionReceived"
	MsgPaymentRequested          = "paymentRequested"
	MsgPaymentDispatch           = "dispatchPayment"
	MsgDevolutionRequested       = "devolutionRequested"
	MsgDevolutionDispatch        = "dispatchDevolution"
	MsgRefundRequested           = "refundRequested"
	MsgRefundConfirm             = "confirmRefund"
	MsgRefundCancel              = "cancelRefund"
	MsgRefundDevolutionRequested = "refundDevolutionRequested"
	MsgRefundDevolutionDispatch  = "dispatchRefundDevolution"
	MsgInfractionRequested       = "infractionRequested"
	MsgInfractionRegister        = "registerInfraction"
	MsgInfractionConfirm         = "confirmInfraction"
	MsgInfractionCancel          = "cancelInfraction"
	MsgFraudDetectionRequested   = "fraudDetectionRequested"
	MsgFraudDetectionRegister    = "registerFraudDetection"
	MsgFraudDetectionConfirm     = "confirmFraudDetection"
	MsgFraudDetectionCancel      = "cancelFraudDetection"
)

// ProcessingService consumes one decoded Pix message.
type ProcessingService interface {
	Process(ctx context.Context, msg *Message) error
}

// DepositReceiver handles inbound deposit messages.
type DepositReceiver interface {
	Receive(ctx context.Context, in *intake.DepositInput) (*deposit.Deposit, error)
}

// DevolutionReceiver handles inbound devolution messages.
type DevolutionReceiver interface {
	Receive(ctx context.Context, in *intake.DevolutionReceivedInput) (*devolution.Received, error)
}

// PaymentCreator registers payment requests.
type PaymentCreator interface {
	Create(ctx context.Context, in *intake.PaymentInput) (*payment.Payment, error)
}

// PaymentDispatcher sends pending payments to the PSP.
type PaymentDispatcher interface {
	Dispatch(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
}

// DevolutionCreator registers devolution requests.
type DevolutionCreator interface {
	Create(ctx context.Context, in *intake.DevolutionInput) (*devolution.Devolution, error)
}

// DevolutionDispatcher sends pending devolutions to the PSP.
type DevolutionDispatcher interface {
	Dispatch(ctx context.Context, id uuid.UUID) (*devolution.Devolution, error)
}

// RefundReceiver registers refund solicitations.
type RefundReceiver interface {
	Receive(ctx context.Context, in *intake.RefundInput) (*refund.Refund, error)
}

// RefundDispatcher confirms and cancels refunds at the PSP.
type RefundDispatcher interface {
	ConfirmReceive(ctx context.Context, id uuid.UUID) (*refund.Refund, error)
	Cancel(ctx context.Context, id uuid.UUID, analysisResult string) (*refund.Refund, error)
}

// RefundDevolutionCreator registers refund devolution requests.
type RefundDevolutionCreator interface {
	Create(ctx context.Context, in *intake.RefundDevolutionInput) (*refund.Devolution, error)
}

// RefundDevolutionDispatcher sends pending refund devolutions to the PSP.
type RefundDevolutionDispatcher interface {
	Dispatch(ctx context.Context, id uuid.UUID) (*refund.Devolution, error)
}

// InfractionReceiver registers infraction reports, local or inbound.
type InfractionReceiver interface {
	Receive(ctx context.Context, in *intake.InfractionInput) (*infraction.Infraction, error)
}

// InfractionDispatcher drives infraction reports through the PSP.
type InfractionDispatcher interface {
	Register(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error)
	ConfirmReceive(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error)
	Cancel(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error)
}

// FraudDetectionReceiver registers fraud markers, local or inbound.
type FraudDetectionReceiver interface {
	Receive(ctx context.Context, in *intake.FraudDetectionInput) (*infraction.FraudDetection, error)
}

// FraudDetectionDispatcher drives fraud markers through the PSP.
type FraudDetectionDispatcher interface {
	Register(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error)
	ConfirmReceive(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error)
	Cancel(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error)
}
