package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/psp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock implementations of the dependencies

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByEndToEndID(ctx context.Context, endToEndID string) (*payment.Payment, error) {
	args := m.Called(ctx, endToEndID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByStateUpdatedBefore(ctx context.Context, state payment.State, priority payment.PriorityType, threshold time.Time, limit int) ([]*payment.Payment, error) {
	args := m.Called(ctx, state, priority, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req *psp.CreateRequest) (*psp.CreateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*psp.CreateResponse), args.Error(1)
}

func (m *MockGateway) GetTransactionByID(ctx context.Context, endToEndID string) (*psp.Transaction, error) {
	args := m.Called(ctx, endToEndID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*psp.Transaction), args.Error(1)
}

func (m *MockGateway) CreateInfraction(ctx context.Context, req *psp.InfractionRequest) (*psp.InfractionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*psp.InfractionResponse), args.Error(1)
}

func (m *MockGateway) CancelInfraction(ctx context.Context, reportID string) error {
	args := m.Called(ctx, reportID)
	return args.Error(0)
}

func (m *MockGateway) CreateFraudDetection(ctx context.Context, req *psp.InfractionRequest) (*psp.InfractionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*psp.InfractionResponse), args.Error(1)
}

func (m *MockGateway) CancelFraudDetection(ctx context.Context, externalID string) error {
	args := m.Called(ctx, externalID)
	return args.Error(0)
}

func (m *MockGateway) CancelRefund(ctx context.Context, solicitationID, analysisResult string) error {
	args := m.Called(ctx, solicitationID, analysisResult)
	return args.Error(0)
}

func (m *MockGateway) ConfirmRefundReceive(ctx context.Context, solicitationID string) error {
	args := m.Called(ctx, solicitationID)
	return args.Error(0)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateAndAcceptOperation(ctx context.Context, tag string, op *ledgersvc.Operation, ownerWalletID, beneficiaryWalletID *uuid.UUID) error {
	args := m.Called(ctx, tag, op, ownerWalletID, beneficiaryWalletID)
	return args.Error(0)
}

func (m *MockLedgerService) CreateOperation(ctx context.Context, tag string, op *ledgersvc.Operation, walletID uuid.UUID, counterWalletID *uuid.UUID, allowNegativeAvailable bool) (*ledgersvc.CreatedOperations, error) {
	args := m.Called(ctx, tag, op, walletID, counterWalletID, allowNegativeAvailable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgersvc.CreatedOperations), args.Error(1)
}

func (m *MockLedgerService) RevertOperation(ctx context.Context, operationID uuid.UUID) error {
	args := m.Called(ctx, operationID)
	return args.Error(0)
}

type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) Emit(ctx context.Context, name string, payload interface{}) error {
	args := m.Called(ctx, name, payload)
	return args.Error(0)
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Append(ctx context.Context, e *journal.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockJournalRepository) ListByEntityID(ctx context.Context, entityID uuid.UUID) ([]*journal.Entry, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

type paymentDispatchMocks struct {
	repo    *MockPaymentRepository
	gateway *MockGateway
	ledger  *MockLedgerService
	emitter *MockEventEmitter
	journal *MockJournalRepository
}

func newPaymentDispatch() (*PaymentDispatch, *paymentDispatchMocks) {
	m := &paymentDispatchMocks{
		repo:    &MockPaymentRepository{},
		gateway: &MockGateway{},
		ledger:  &MockLedgerService{},
		emitter: &MockEventEmitter{},
		journal: &MockJournalRepository{},
	}
	uc := NewPaymentDispatch(m.repo, m.gateway, m.ledger, m.emitter, m.journal, testLogger())
	return uc, m
}

func pendingPayment() *payment.Payment {
	owner := shared.Participant{Name: "Owner", Document: "12345678901", BankISPB: "99999010"}
	beneficiary := shared.Participant{Name: "Beneficiary", Document: "10987654321", BankISPB: "11111111"}
	return payment.New(uuid.New(), uuid.New(), 2500, owner, beneficiary, "dinner", payment.PriorityNormal, nil)
}

func TestPaymentDispatch_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("success moves the payment to waiting", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
		m.gateway.On("CreateTransaction", ctx, mock.MatchedBy(func(req *psp.CreateRequest) bool {
			return req.ID == p.ID && req.Amount == p.Amount
		})).Return(&psp.CreateResponse{EndToEndID: "E1", Status: psp.StatusProcessing}, nil)
		m.ledger.On("CreateAndAcceptOperation", ctx, "PIXSEND", mock.Anything, &p.WalletID, (*uuid.UUID)(nil)).Return(nil)
		m.repo.On("Update", ctx, p).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventPaymentWaiting, p).Return(nil)

		got, err := uc.Dispatch(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StateWaiting, got.State)
		assert.Equal(t, "E1", got.EndToEndID)
		m.repo.AssertExpectations(t)
		m.ledger.AssertExpectations(t)
	})

	t.Run("psp unavailable leaves the payment pending", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
		m.gateway.On("CreateTransaction", ctx, mock.Anything).Return(nil, psp.NewUnavailable("connection refused"))

		_, err := uc.Dispatch(ctx, p.ID)
		require.Error(t, err)
		assert.True(t, psp.IsUnavailable(err))
		assert.Equal(t, payment.StatePending, p.State)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "CreateAndAcceptOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("psp rejection reverts the payment", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
		m.gateway.On("CreateTransaction", ctx, mock.Anything).Return(nil, psp.NewRejected("AM04", "insufficient funds"))
		m.repo.On("Update", ctx, p).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventPaymentReverted, p).Return(nil)

		got, err := uc.Dispatch(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StateReverted, got.State)
		assert.Equal(t, "AM04", got.FailedCode)
		assert.Equal(t, "insufficient funds", got.FailedMessage)
		m.ledger.AssertNotCalled(t, "RevertOperation", mock.Anything, mock.Anything)
	})

	t.Run("ledger refusal reverts the payment", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
		m.gateway.On("CreateTransaction", ctx, mock.Anything).Return(&psp.CreateResponse{EndToEndID: "E1"}, nil)
		m.ledger.On("CreateAndAcceptOperation", ctx, "PIXSEND", mock.Anything, &p.WalletID, (*uuid.UUID)(nil)).
			Return(&ledgersvc.LedgerError{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance"})
		m.repo.On("Update", ctx, p).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventPaymentReverted, p).Return(nil)

		got, err := uc.Dispatch(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StateReverted, got.State)
		assert.Equal(t, "INSUFFICIENT_BALANCE", got.FailedCode)
		assert.Equal(t, "insufficient balance", got.FailedMessage)
	})

	t.Run("transient ledger failure surfaces for redelivery", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)
		m.gateway.On("CreateTransaction", ctx, mock.Anything).Return(&psp.CreateResponse{EndToEndID: "E1"}, nil)
		m.ledger.On("CreateAndAcceptOperation", ctx, "PIXSEND", mock.Anything, &p.WalletID, (*uuid.UUID)(nil)).
			Return(errors.New("timeout"))

		_, err := uc.Dispatch(ctx, p.ID)
		require.Error(t, err)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("already waiting is a no-op", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()
		require.NoError(t, p.MarkWaiting("E1", uuid.New()))

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)

		got, err := uc.Dispatch(ctx, p.ID)
		require.NoError(t, err)
		assert.Same(t, p, got)
		m.gateway.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	})

	t.Run("terminal state is refused", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		p := pendingPayment()
		require.NoError(t, p.MarkReverted("AM04", "insufficient funds"))

		m.repo.On("GetByID", ctx, p.ID).Return(p, nil)

		_, err := uc.Dispatch(ctx, p.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
	})

	t.Run("unknown payment", func(t *testing.T) {
		uc, m := newPaymentDispatch()
		id := uuid.New()

		m.repo.On("GetByID", ctx, id).Return(nil, payment.ErrPaymentNotFound{ID: id})

		_, err := uc.Dispatch(ctx, id)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "payment"})
	})
}
