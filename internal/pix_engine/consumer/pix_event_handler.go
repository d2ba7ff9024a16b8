// Package consumer adapts raw Kafka messages into routed Pix messages.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meridianbank/pix-engine/internal/pix_engine/service"
	"github.com/meridianbank/pix-engine/internal/platform/messaging/producers"
)

// PixEventHandler handles incoming Pix messages from Kafka
type PixEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewPixEventHandler creates a new handler
func NewPixEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *PixEventHandler {
	return &PixEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages. An undecodable message goes to
// the DLQ so the offset can be committed; a processing failure leaves the
// offset uncommitted for redelivery.
func (h *PixEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var msg service.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal Pix message from Kafka"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if msg.CorrelationID != "" {
		logger = h.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Received Pix message for processing",
		"message_type", msg.Type,
		"message_key", string(key),
	)

	if err := h.processingService.Process(ctx, &msg); err != nil {
		logger.Error("Failed to process Pix message",
			"message_type", msg.Type,
			"message_key", string(key),
			"error", err,
		)
		return fmt.Errorf("processing %s message failed: %w", msg.Type, err)
	}

	logger.Info("Successfully processed Pix message", "message_type", msg.Type)
	return nil
}
