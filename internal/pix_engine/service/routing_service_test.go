package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/pix_engine/intake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mocks for the narrow use case interfaces the router needs.

type MockDepositReceiver struct {
	mock.Mock
}

func (m *MockDepositReceiver) Receive(ctx context.Context, in *intake.DepositInput) (*deposit.Deposit, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Deposit), args.Error(1)
}

type MockPaymentDispatcher struct {
	mock.Mock
}

func (m *MockPaymentDispatcher) Dispatch(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

type MockRefundDispatcher struct {
	mock.Mock
}

func (m *MockRefundDispatcher) ConfirmReceive(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Refund), args.Error(1)
}

func (m *MockRefundDispatcher) Cancel(ctx context.Context, id uuid.UUID, analysisResult string) (*refund.Refund, error) {
	args := m.Called(ctx, id, analysisResult)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Refund), args.Error(1)
}

type MockInfractionDispatcher struct {
	mock.Mock
}

func (m *MockInfractionDispatcher) Register(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.Infraction), args.Error(1)
}

func (m *MockInfractionDispatcher) ConfirmReceive(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.Infraction), args.Error(1)
}

func (m *MockInfractionDispatcher) Cancel(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.Infraction), args.Error(1)
}

func TestRoutingService_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit message reaches the deposit intake", func(t *testing.T) {
		receiver := &MockDepositReceiver{}
		router := NewRoutingService(UseCases{DepositIntake: receiver}, testLogger())

		in := &intake.DepositInput{ID: uuid.New(), EndToEndID: "E1", Amount: 100}
		payload, err := json.Marshal(in)
		require.NoError(t, err)

		receiver.On("Receive", ctx, mock.MatchedBy(func(got *intake.DepositInput) bool {
			return got.ID == in.ID && got.EndToEndID == "E1"
		})).Return(&deposit.Deposit{ID: in.ID}, nil)

		err = router.Process(ctx, &Message{Type: MsgDepositReceived, Payload: payload})
		require.NoError(t, err)
		receiver.AssertExpectations(t)
	})

	t.Run("dispatch command routes by id", func(t *testing.T) {
		dispatcher := &MockPaymentDispatcher{}
		router := NewRoutingService(UseCases{PaymentDispatch: dispatcher}, testLogger())

		id := uuid.New()
		payload, _ := json.Marshal(map[string]string{"id": id.String()})
		dispatcher.On("Dispatch", ctx, id).Return(&payment.Payment{ID: id}, nil)

		err := router.Process(ctx, &Message{Type: MsgPaymentDispatch, Payload: payload})
		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("dispatch command without id is refused", func(t *testing.T) {
		dispatcher := &MockPaymentDispatcher{}
		router := NewRoutingService(UseCases{PaymentDispatch: dispatcher}, testLogger())

		err := router.Process(ctx, &Message{Type: MsgPaymentDispatch, Payload: json.RawMessage(`{}`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without id")
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("refund cancel carries the analysis result", func(t *testing.T) {
		dispatcher := &MockRefundDispatcher{}
		router := NewRoutingService(UseCases{RefundDispatch: dispatcher}, testLogger())

		id := uuid.New()
		payload, _ := json.Marshal(map[string]string{"id": id.String(), "analysis_result": "REJECTED"})
		dispatcher.On("Cancel", ctx, id, "REJECTED").Return(&refund.Refund{ID: id}, nil)

		err := router.Process(ctx, &Message{Type: MsgRefundCancel, Payload: payload})
		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("infraction lifecycle commands route to the dispatcher", func(t *testing.T) {
		dispatcher := &MockInfractionDispatcher{}
		router := NewRoutingService(UseCases{InfractionDispatch: dispatcher}, testLogger())
		id := uuid.New()
		payload, _ := json.Marshal(map[string]string{"id": id.String()})

		dispatcher.On("Register", ctx, id).Return(&infraction.Infraction{ID: id}, nil)
		dispatcher.On("ConfirmReceive", ctx, id).Return(&infraction.Infraction{ID: id}, nil)
		dispatcher.On("Cancel", ctx, id).Return(&infraction.Infraction{ID: id}, nil)

		require.NoError(t, router.Process(ctx, &Message{Type: MsgInfractionRegister, Payload: payload}))
		require.NoError(t, router.Process(ctx, &Message{Type: MsgInfractionConfirm, Payload: payload}))
		require.NoError(t, router.Process(ctx, &Message{Type: MsgInfractionCancel, Payload: payload}))
		dispatcher.AssertExpectations(t)
	})

	t.Run("unknown message type is an error", func(t *testing.T) {
		router := NewRoutingService(UseCases{}, testLogger())

		err := router.Process(ctx, &Message{Type: "somethingElse", Payload: json.RawMessage(`{}`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown message type "somethingElse"`)
	})

	t.Run("undecodable payload is an error", func(t *testing.T) {
		receiver := &MockDepositReceiver{}
		router := NewRoutingService(UseCases{DepositIntake: receiver}, testLogger())

		err := router.Process(ctx, &Message{Type: MsgDepositReceived, Payload: json.RawMessage(`not json`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode payload")
		receiver.AssertNotCalled(t, "Receive", mock.Anything, mock.Anything)
	})

	t.Run("use case failure is wrapped with the message type", func(t *testing.T) {
		dispatcher := &MockPaymentDispatcher{}
		router := NewRoutingService(UseCases{PaymentDispatch: dispatcher}, testLogger())

		id := uuid.New()
		payload, _ := json.Marshal(map[string]string{"id": id.String()})
		dispatcher.On("Dispatch", ctx, id).Return(nil, assert.AnError)

		err := router.Process(ctx, &Message{Type: MsgPaymentDispatch, Payload: payload})
		require.Error(t, err)
		assert.Contains(t, err.Error(), MsgPaymentDispatch)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
