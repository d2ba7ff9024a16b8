package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/pix_engine/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) Process(ctx context.Context, msg *service.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	validMsg := &service.Message{
		Type:          service.MsgPaymentDispatch,
		CorrelationID: "corr1",
		Payload:       json.RawMessage(`{"id":"` + uuid.NewString() + `"}`),
	}
	validJSON, err := json.Marshal(validMsg)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func(ps *MockProcessingService, dlq *MockDeadLetterPublisher)
		expectedError error
	}{
		{
			name:  "successful processing",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(ps *MockProcessingService, dlq *MockDeadLetterPublisher) {
				ps.On("Process", mock.Anything, mock.MatchedBy(func(msg *service.Message) bool {
					return msg.Type == validMsg.Type && msg.CorrelationID == "corr1"
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "processing error is surfaced for redelivery",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(ps *MockProcessingService, dlq *MockDeadLetterPublisher) {
				ps.On("Process", mock.Anything, mock.Anything).Return(errors.New("processing error"))
			},
			expectedError: errors.New("processing dispatchPayment message failed"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(ps *MockProcessingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(ps *MockProcessingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProcessingService := &MockProcessingService{}
			mockDLQPublisher := &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler := NewPixEventHandler(logger, mockProcessingService, mockDLQPublisher)

			tt.setupMocks(mockProcessingService, mockDLQPublisher)

			err := handler.HandleMessage(context.Background(), tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockProcessingService.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_NoDLQConfigured(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockProcessingService := &MockProcessingService{}

	handler := NewPixEventHandler(logger, mockProcessingService, nil)

	err := handler.HandleMessage(context.Background(), []byte("key"), []byte("invalid json"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}
