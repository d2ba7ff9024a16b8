package dispatch

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/psp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInfractionRepository struct {
	mock.Mock
}

func (m *MockInfractionRepository) Create(ctx context.Context, i *infraction.Infraction) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

func (m *MockInfractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.Infraction), args.Error(1)
}

func (m *MockInfractionRepository) GetByReportID(ctx context.Context, reportID string) (*infraction.Infraction, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.Infraction), args.Error(1)
}

func (m *MockInfractionRepository) Update(ctx context.Context, i *infraction.Infraction) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

type infractionDispatchMocks struct {
	repo    *MockInfractionRepository
	gateway *MockGateway
	emitter *MockEventEmitter
	journal *MockJournalRepository
}

func newInfractionDispatch() (*InfractionDispatch, *infractionDispatchMocks) {
	m := &infractionDispatchMocks{
		repo:    &MockInfractionRepository{},
		gateway: &MockGateway{},
		emitter: &MockEventEmitter{},
		journal: &MockJournalRepository{},
	}
	uc := NewInfractionDispatch(m.repo, m.gateway, m.emitter, m.journal, testLogger())
	return uc, m
}

func openedInfraction() *infraction.Infraction {
	ref := shared.TransactionRef{Kind: shared.TransactionKindDeposit, ID: uuid.New()}
	return infraction.New(uuid.New(), infraction.TypeFraud, ref, "suspicious deposit")
}

func TestInfractionDispatch_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success records the assigned report id", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := openedInfraction()

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.gateway.On("CreateInfraction", ctx, mock.MatchedBy(func(req *psp.InfractionRequest) bool {
			return req.ID == i.ID && req.Type == string(infraction.TypeFraud)
		})).Return(&psp.InfractionResponse{ReportID: "RPT-1"}, nil)
		m.repo.On("Update", ctx, i).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionRegisteredConfirmed, i).Return(nil)

		got, err := uc.Register(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateRegisteredConfirmed, got.State)
		assert.Equal(t, "RPT-1", got.ReportID)
		m.repo.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("already registered is a no-op", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := openedInfraction()
		require.NoError(t, i.MarkRegisteredConfirmed("RPT-1"))

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		got, err := uc.Register(ctx, i.ID)
		require.NoError(t, err)
		assert.Same(t, i, got)
		m.gateway.AssertNotCalled(t, "CreateInfraction", mock.Anything, mock.Anything)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("psp unavailable leaves the infraction pending", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := openedInfraction()

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.gateway.On("CreateInfraction", ctx, mock.Anything).Return(nil, psp.NewUnavailable("connection refused"))

		_, err := uc.Register(ctx, i.ID)
		require.Error(t, err)
		assert.True(t, psp.IsUnavailable(err))
		assert.Equal(t, infraction.StateRegisteredPending, i.State)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("received infraction cannot be registered", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		ref := shared.TransactionRef{Kind: shared.TransactionKindDeposit, ID: uuid.New()}
		i := infraction.NewReceived(uuid.New(), "RPT-9", infraction.TypeFraud, ref, "opened by the PSP")

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		_, err := uc.Register(ctx, i.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.gateway.AssertNotCalled(t, "CreateInfraction", mock.Anything, mock.Anything)
	})

	t.Run("unknown infraction", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		id := uuid.New()

		m.repo.On("GetByID", ctx, id).Return(nil, infraction.ErrInfractionNotFound{ID: id})

		_, err := uc.Register(ctx, id)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "infraction"})
	})
}

func TestInfractionDispatch_ConfirmReceive(t *testing.T) {
	ctx := context.Background()
	ref := shared.TransactionRef{Kind: shared.TransactionKindDeposit, ID: uuid.New()}

	t.Run("success confirms a received infraction", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := infraction.NewReceived(uuid.New(), "RPT-9", infraction.TypeFraud, ref, "opened by the PSP")

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.repo.On("Update", ctx, i).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionReceiveConfirmed, i).Return(nil)

		got, err := uc.ConfirmReceive(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateReceiveConfirmed, got.State)
		m.repo.AssertExpectations(t)
	})

	t.Run("already confirmed is a no-op", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := infraction.NewReceived(uuid.New(), "RPT-9", infraction.TypeFraud, ref, "opened by the PSP")
		require.NoError(t, i.MarkReceiveConfirmed())

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		got, err := uc.ConfirmReceive(ctx, i.ID)
		require.NoError(t, err)
		assert.Same(t, i, got)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("bank-opened infraction cannot confirm receive", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := openedInfraction()

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		_, err := uc.ConfirmReceive(ctx, i.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestInfractionDispatch_Cancel(t *testing.T) {
	ctx := context.Background()

	registeredInfraction := func(t *testing.T) *infraction.Infraction {
		i := openedInfraction()
		require.NoError(t, i.MarkRegisteredConfirmed("RPT-1"))
		return i
	}

	t.Run("success cancels through cancel pending", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := registeredInfraction(t)

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.repo.On("Update", ctx, i).Return(nil).Twice()
		m.gateway.On("CancelInfraction", ctx, "RPT-1").Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionCancelRegisteredPending, i).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionCancelRegisteredConfirmed, i).Return(nil)

		got, err := uc.Cancel(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateCancelRegisteredConfirmed, got.State)
		m.repo.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("interrupted cancellation resumes on redelivery", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := registeredInfraction(t)
		require.NoError(t, i.MarkCancelRegisteredPending())

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.gateway.On("CancelInfraction", ctx, "RPT-1").Return(nil)
		m.repo.On("Update", ctx, i).Return(nil).Once()
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionCancelRegisteredConfirmed, i).Return(nil)

		got, err := uc.Cancel(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateCancelRegisteredConfirmed, got.State)
		m.emitter.AssertNotCalled(t, "Emit", mock.Anything, shared.EventInfractionCancelRegisteredPending, mock.Anything)
		m.repo.AssertExpectations(t)
	})

	t.Run("psp unavailable leaves the infraction cancel pending", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := registeredInfraction(t)

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)
		m.repo.On("Update", ctx, i).Return(nil).Once()
		m.gateway.On("CancelInfraction", ctx, "RPT-1").Return(psp.NewUnavailable("connection refused"))
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventInfractionCancelRegisteredPending, i).Return(nil)

		_, err := uc.Cancel(ctx, i.ID)
		require.Error(t, err)
		assert.True(t, psp.IsUnavailable(err))
		assert.Equal(t, infraction.StateCancelRegisteredPending, i.State)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := registeredInfraction(t)
		require.NoError(t, i.MarkCancelRegisteredPending())
		require.NoError(t, i.MarkCancelRegisteredConfirmed())

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		got, err := uc.Cancel(ctx, i.ID)
		require.NoError(t, err)
		assert.Same(t, i, got)
		m.gateway.AssertNotCalled(t, "CancelInfraction", mock.Anything, mock.Anything)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unregistered infraction cannot be cancelled", func(t *testing.T) {
		uc, m := newInfractionDispatch()
		i := openedInfraction()

		m.repo.On("GetByID", ctx, i.ID).Return(i, nil)

		_, err := uc.Cancel(ctx, i.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.gateway.AssertNotCalled(t, "CancelInfraction", mock.Anything, mock.Anything)
	})
}
