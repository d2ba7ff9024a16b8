package shared

import "context"

// EventEmitter publishes one domain event per committed state transition.
// Delivery is at-least-once and fire-and-forget from the engine's point of
// view; consumers (notifications, reporting) live outside this service.
type EventEmitter interface {
	Emit(ctx context.Context, name string, payload interface{}) error
}

// Domain event names, one per state transition.
const (
	EventDepositNew     = "newDeposit"
	EventDepositWaiting = "waitingDeposit"
	EventDepositError   = "errorDeposit"

	EventPaymentPending   = "pendingPayment"
	EventPaymentScheduled = "scheduledPayment"
	EventPaymentWaiting   = "waitingPayment"
	EventPaymentConfirmed = "confirmedPayment"
	EventPaymentReverted  = "revertedPayment"

	EventDevolutionPending   = "pendingDevolution"
	EventDevolutionWaiting   = "waitingDevolution"
	EventDevolutionConfirmed = "confirmedDevolution"
	EventDevolutionReverted  = "revertedDevolution"

	EventDevolutionReceivedReady = "readyDevolutionReceived"

	EventRefundReceivePending   = "receivePendingRefund"
	EventRefundReceiveConfirmed = "receiveConfirmedRefund"
	EventRefundCancelPending    = "cancelPendingRefund"
	EventRefundCancelled        = "cancelledRefund"

	EventRefundDevolutionPending   = "pendingRefundDevolution"
	EventRefundDevolutionWaiting   = "waitingRefundDevolution"
	EventRefundDevolutionConfirmed = "confirmedRefundDevolution"
	EventRefundDevolutionReverted  = "revertedRefundDevolution"

	EventInfractionReceivePending            = "receivePendingInfraction"
	EventInfractionReceiveConfirmed          = "receiveConfirmedInfraction"
	EventInfractionRegisteredPending         = "registeredPendingInfraction"
	EventInfractionRegisteredConfirmed       = "registeredConfirmedInfraction"
	EventInfractionCancelRegisteredPending   = "cancelRegisteredPendingInfraction"
	EventInfractionCancelRegisteredConfirmed = "cancelRegisteredConfirmedInfraction"

	EventFraudDetectionReceivePending            = "receivePendingFraudDetection"
	EventFraudDetectionReceiveConfirmed          = "receiveConfirmedFraudDetection"
	EventFraudDetectionRegisteredPending         = "registeredPendingFraudDetection"
	EventFraudDetectionRegisteredConfirmed       = "registeredConfirmedFraudDetection"
	EventFraudDetectionCancelRegisteredPending   = "cancelRegisteredPendingFraudDetection"
	EventFraudDetectionCancelRegisteredConfirmed = "cancelRegisteredConfirmedFraudDetection"
)
