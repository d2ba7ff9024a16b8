package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

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

func TestNewJournalRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewJournalRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &JournalRepository{}, repo)
}

func TestJournalRepository_Append(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	entityID := uuid.New()
	entry := &journal.Entry{
		ID:        uuid.New(),
		Entity:    "payment",
		EntityID:  entityID,
		FromState: "PENDING",
		ToState:   "WAITING",
		At:        time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful append",
			setupMocks: func() {
				mockRepo.On("Append", mock.Anything, entry).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("Append", mock.Anything, entry).Return(errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			err := mockRepo.Append(ctx, entry)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestJournalRepository_ListByEntityID(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	entityID := uuid.New()
	entries := []*journal.Entry{
		journal.NewEntry("payment", entityID, "PENDING", "WAITING", ""),
		journal.NewEntry("payment", entityID, "WAITING", "CONFIRMED", ""),
	}

	tests := []struct {
		name            string
		setupMocks      func()
		expectedEntries []*journal.Entry
		expectedError   error
	}{
		{
			name: "history found oldest first",
			setupMocks: func() {
				mockRepo.On("ListByEntityID", mock.Anything, entityID).Return(entries, nil)
			},
			expectedEntries: entries,
			expectedError:   nil,
		},
		{
			name: "no history",
			setupMocks: func() {
				mockRepo.On("ListByEntityID", mock.Anything, entityID).Return([]*journal.Entry{}, nil)
			},
			expectedEntries: []*journal.Entry{},
			expectedError:   nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("ListByEntityID", mock.Anything, entityID).Return(nil, errors.New("db error"))
			},
			expectedEntries: nil,
			expectedError:   errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			result, err := mockRepo.ListByEntityID(ctx, entityID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedEntries, result)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
