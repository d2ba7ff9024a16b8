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

type MockFraudDetectionRepository struct {
	mock.Mock
}

func (m *MockFraudDetectionRepository) Create(ctx context.Context, f *infraction.FraudDetection) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFraudDetectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.FraudDetection), args.Error(1)
}

func (m *MockFraudDetectionRepository) GetByExternalID(ctx context.Context, externalID string) (*infraction.FraudDetection, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraction.FraudDetection), args.Error(1)
}

func (m *MockFraudDetectionRepository) Update(ctx context.Context, f *infraction.FraudDetection) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

type fraudDetectionDispatchMocks struct {
	repo    *MockFraudDetectionRepository
	gateway *MockGateway
	emitter *MockEventEmitter
	journal *MockJournalRepository
}

func newFraudDetectionDispatch() (*FraudDetectionDispatch, *fraudDetectionDispatchMocks) {
	m := &fraudDetectionDispatchMocks{
		repo:    &MockFraudDetectionRepository{},
		gateway: &MockGateway{},
		emitter: &MockEventEmitter{},
		journal: &MockJournalRepository{},
	}
	uc := NewFraudDetectionDispatch(m.repo, m.gateway, m.emitter, m.journal, testLogger())
	return uc, m
}

func openedFraudDetection() *infraction.FraudDetection {
	return infraction.NewFraudDetection(uuid.New(), "12345678900", "user@bank.example", infraction.FraudTypeFraudsterAccount)
}

func TestFraudDetectionDispatch_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success records the assigned external id", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := openedFraudDetection()

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.gateway.On("CreateFraudDetection", ctx, mock.MatchedBy(func(req *psp.InfractionRequest) bool {
			return req.ID == f.ID && req.Type == string(infraction.FraudTypeFraudsterAccount)
		})).Return(&psp.InfractionResponse{ReportID: "EXT-1"}, nil)
		m.repo.On("Update", ctx, f).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionRegisteredConfirmed, f).Return(nil)

		got, err := uc.Register(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateRegisteredConfirmed, got.State)
		assert.Equal(t, "EXT-1", got.ExternalID)
		m.repo.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("already registered is a no-op", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := openedFraudDetection()
		require.NoError(t, f.MarkRegisteredConfirmed("EXT-1"))

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		got, err := uc.Register(ctx, f.ID)
		require.NoError(t, err)
		assert.Same(t, f, got)
		m.gateway.AssertNotCalled(t, "CreateFraudDetection", mock.Anything, mock.Anything)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("psp unavailable leaves the fraud detection pending", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := openedFraudDetection()

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.gateway.On("CreateFraudDetection", ctx, mock.Anything).Return(nil, psp.NewUnavailable("connection refused"))

		_, err := uc.Register(ctx, f.ID)
		require.Error(t, err)
		assert.True(t, psp.IsUnavailable(err))
		assert.Equal(t, infraction.StateRegisteredPending, f.State)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("received fraud detection cannot be registered", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := infraction.NewFraudDetectionReceived(uuid.New(), "EXT-9", "12345678900", "", infraction.FraudTypeDummyAccount)

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		_, err := uc.Register(ctx, f.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.gateway.AssertNotCalled(t, "CreateFraudDetection", mock.Anything, mock.Anything)
	})

	t.Run("unknown fraud detection", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		id := uuid.New()

		m.repo.On("GetByID", ctx, id).Return(nil, infraction.ErrFraudDetectionNotFound{ID: id})

		_, err := uc.Register(ctx, id)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "fraud detection"})
	})
}

func TestFraudDetectionDispatch_ConfirmReceive(t *testing.T) {
	ctx := context.Background()

	t.Run("success confirms a received fraud detection", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := infraction.NewFraudDetectionReceived(uuid.New(), "EXT-9", "12345678900", "", infraction.FraudTypeFalseIdentity)

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.repo.On("Update", ctx, f).Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionReceiveConfirmed, f).Return(nil)

		got, err := uc.ConfirmReceive(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateReceiveConfirmed, got.State)
		m.repo.AssertExpectations(t)
	})

	t.Run("already confirmed is a no-op", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := infraction.NewFraudDetectionReceived(uuid.New(), "EXT-9", "12345678900", "", infraction.FraudTypeFalseIdentity)
		require.NoError(t, f.MarkReceiveConfirmed())

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		got, err := uc.ConfirmReceive(ctx, f.ID)
		require.NoError(t, err)
		assert.Same(t, f, got)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("bank-opened fraud detection cannot confirm receive", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := openedFraudDetection()

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		_, err := uc.ConfirmReceive(ctx, f.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestFraudDetectionDispatch_Cancel(t *testing.T) {
	ctx := context.Background()

	registeredFraudDetection := func(t *testing.T) *infraction.FraudDetection {
		f := openedFraudDetection()
		require.NoError(t, f.MarkRegisteredConfirmed("EXT-1"))
		return f
	}

	t.Run("success cancels through cancel pending", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := registeredFraudDetection(t)

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.repo.On("Update", ctx, f).Return(nil).Twice()
		m.gateway.On("CancelFraudDetection", ctx, "EXT-1").Return(nil)
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionCancelRegisteredPending, f).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionCancelRegisteredConfirmed, f).Return(nil)

		got, err := uc.Cancel(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateCancelRegisteredConfirmed, got.State)
		m.repo.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("interrupted cancellation resumes on redelivery", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := registeredFraudDetection(t)
		require.NoError(t, f.MarkCancelRegisteredPending())

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.gateway.On("CancelFraudDetection", ctx, "EXT-1").Return(nil)
		m.repo.On("Update", ctx, f).Return(nil).Once()
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionCancelRegisteredConfirmed, f).Return(nil)

		got, err := uc.Cancel(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, infraction.StateCancelRegisteredConfirmed, got.State)
		m.emitter.AssertNotCalled(t, "Emit", mock.Anything, shared.EventFraudDetectionCancelRegisteredPending, mock.Anything)
		m.repo.AssertExpectations(t)
	})

	t.Run("psp unavailable leaves the fraud detection cancel pending", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := registeredFraudDetection(t)

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)
		m.repo.On("Update", ctx, f).Return(nil).Once()
		m.gateway.On("CancelFraudDetection", ctx, "EXT-1").Return(psp.NewUnavailable("connection refused"))
		m.journal.On("Append", ctx, mock.Anything).Return(nil)
		m.emitter.On("Emit", ctx, shared.EventFraudDetectionCancelRegisteredPending, f).Return(nil)

		_, err := uc.Cancel(ctx, f.ID)
		require.Error(t, err)
		assert.True(t, psp.IsUnavailable(err))
		assert.Equal(t, infraction.StateCancelRegisteredPending, f.State)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := registeredFraudDetection(t)
		require.NoError(t, f.MarkCancelRegisteredPending())
		require.NoError(t, f.MarkCancelRegisteredConfirmed())

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		got, err := uc.Cancel(ctx, f.ID)
		require.NoError(t, err)
		assert.Same(t, f, got)
		m.gateway.AssertNotCalled(t, "CancelFraudDetection", mock.Anything, mock.Anything)
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unregistered fraud detection cannot be cancelled", func(t *testing.T) {
		uc, m := newFraudDetectionDispatch()
		f := openedFraudDetection()

		m.repo.On("GetByID", ctx, f.ID).Return(f, nil)

		_, err := uc.Cancel(ctx, f.ID)
		assert.ErrorIs(t, err, shared.InvalidStateError{})
		m.gateway.AssertNotCalled(t, "CancelFraudDetection", mock.Anything, mock.Anything)
	})
}
