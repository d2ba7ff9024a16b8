package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService runs message processing on a bounded ants
// pool so one slow PSP call does not serialize the whole consumer.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Process submits the message to the worker pool and waits for the
// outcome, so the caller can still commit or retry the offset.
func (s *WorkerPoolProcessingService) Process(ctx context.Context, msg *Message) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}
	logger.Debug("Submitting message to worker pool", "message_type", msg.Type)

	resultChan := make(chan error, 1)
	msgCopy := *msg

	if err := s.pool.Submit(func() {
		resultChan <- s.baseService.Process(ctx, &msgCopy)
		close(resultChan)
	}); err != nil {
		logger.Error("Failed to submit message to worker pool",
			"message_type", msg.Type,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
