package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// UseCases groups every use case the router can target.
type UseCases struct {
	DepositIntake          DepositReceiver
	DevolutionRecvIntake   DevolutionReceiver
	PaymentIntake          PaymentCreator
	PaymentDispatch        PaymentDispatcher
	DevolutionIntake       DevolutionCreator
	DevolutionDispatch     DevolutionDispatcher
	RefundIntake           RefundReceiver
	RefundDispatch         RefundDispatcher
	RefundDevIntake        RefundDevolutionCreator
	RefundDevDispatch      RefundDevolutionDispatcher
	InfractionIntake       InfractionReceiver
	InfractionDispatch     InfractionDispatcher
	FraudDetectionIntake   FraudDetectionReceiver
	FraudDetectionDispatch FraudDetectionDispatcher
}

// RoutingService decodes message payloads and invokes the use case the
// message type names.
type RoutingService struct {
	uc     UseCases
	logger *slog.Logger
}

// NewRoutingService creates the message router.
func NewRoutingService(uc UseCases, logger *slog.Logger) *RoutingService {
	return &RoutingService{uc: uc, logger: logger}
}

// dispatchCommand addresses an already persisted transaction.
type dispatchCommand struct {
	ID uuid.UUID `json:"id"`
}

// cancelRefundCommand carries the analyst conclusion alongside the id.
type cancelRefundCommand struct {
	ID             uuid.UUID `json:"id"`
	AnalysisResult string    `json:"analysis_result,omitempty"`
}

func decode[T any](payload json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &v, nil
}

// Process routes one message. An unknown type is an error so the consumer
// can divert the message instead of silently dropping it.
func (s *RoutingService) Process(ctx context.Context, msg *Message) error {
	logger := s.logger.With("message_type", msg.Type)
	if msg.CorrelationID != "" {
		logger = logger.With("correlation_id", msg.CorrelationID)
	}
	logger.Debug("Routing message")

	var err error
	switch msg.Type {
	case MsgDepositReceived:
		err = route(ctx, msg, s.uc.DepositIntake.Receive)
	case MsgDevolutionReceived:
		err = route(ctx, msg, s.uc.DevolutionRecvIntake.Receive)
	case MsgPaymentRequested:
		err = route(ctx, msg, s.uc.PaymentIntake.Create)
	case MsgPaymentDispatch:
		err = routeByID(ctx, msg, s.uc.PaymentDispatch.Dispatch)
	case MsgDevolutionRequested:
		err = route(ctx, msg, s.uc.DevolutionIntake.Create)
	case MsgDevolutionDispatch:
		err = routeByID(ctx, msg, s.uc.DevolutionDispatch.Dispatch)
	case MsgRefundRequested:
		err = route(ctx, msg, s.uc.RefundIntake.Receive)
	case MsgRefundConfirm:
		err = routeByID(ctx, msg, s.uc.RefundDispatch.ConfirmReceive)
	case MsgRefundCancel:
		var cmd *cancelRefundCommand
		if cmd, err = decode[cancelRefundCommand](msg.Payload); err == nil {
			_, err = s.uc.RefundDispatch.Cancel(ctx, cmd.ID, cmd.AnalysisResult)
		}
	case MsgRefundDevolutionRequested:
		err = route(ctx, msg, s.uc.RefundDevIntake.Create)
	case MsgRefundDevolutionDispatch:
		err = routeByID(ctx, msg, s.uc.RefundDevDispatch.Dispatch)
	case MsgInfractionRequested:
		err = route(ctx, msg, s.uc.InfractionIntake.Receive)
	case MsgInfractionRegister:
		err = routeByID(ctx, msg, s.uc.InfractionDispatch.Register)
	case MsgInfractionConfirm:
		err = routeByID(ctx, msg, s.uc.InfractionDispatch.ConfirmReceive)
	case MsgInfractionCancel:
		err = routeByID(ctx, msg, s.uc.InfractionDispatch.Cancel)
	case MsgFraudDetectionRequested:
		err = route(ctx, msg, s.uc.FraudDetectionIntake.Receive)
	case MsgFraudDetectionRegister:
		err = routeByID(ctx, msg, s.uc.FraudDetectionDispatch.Register)
	case MsgFraudDetectionConfirm:
		err = routeByID(ctx, msg, s.uc.FraudDetectionDispatch.ConfirmReceive)
	case MsgFraudDetectionCancel:
		err = routeByID(ctx, msg, s.uc.FraudDetectionDispatch.Cancel)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		return fmt.Errorf("processing %s message failed: %w", msg.Type, err)
	}
	return nil
}

func route[In, Out any](ctx context.Context, msg *Message, fn func(context.Context, *In) (Out, error)) error {
	in, err := decode[In](msg.Payload)
	if err != nil {
		return err
	}
	_, err = fn(ctx, in)
	return err
}

func routeByID[Out any](ctx context.Context, msg *Message, fn func(context.Context, uuid.UUID) (Out, error)) error {
	cmd, err := decode[dispatchCommand](msg.Payload)
	if err != nil {
		return err
	}
	if cmd.ID == uuid.Nil {
		return fmt.Errorf("dispatch command without id")
	}
	_, err = fn(ctx, cmd.ID)
	return err
}
