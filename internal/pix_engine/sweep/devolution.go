package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

// DevolutionSweep reconciles outbound devolutions stuck in WAITING.
type DevolutionSweep struct {
	repo      devolution.Repository
	gateway   psp.Gateway
	emitter   shared.EventEmitter
	journal   journal.Repository
	logger    *slog.Logger
	threshold time.Duration
	batchSize int
}

// NewDevolutionSweep creates the devolution reconciliation job.
func NewDevolutionSweep(
	repo devolution.Repository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
	threshold time.Duration,
	batchSize int,
) *DevolutionSweep {
	return &DevolutionSweep{
		repo:      repo,
		gateway:   gateway,
		emitter:   emitter,
		journal:   journalRepo,
		logger:    logger,
		threshold: threshold,
		batchSize: batchSize,
	}
}

// Run processes one batch of stale waiting devolutions.
func (s *DevolutionSweep) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-s.threshold)
	items, err := s.repo.ListByStateUpdatedBefore(ctx, devolution.StateWaiting, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list waiting devolutions: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	s.logger.Info("Sweeping waiting devolutions", "count", len(items))
	for _, d := range items {
		if err := s.reconcile(ctx, d); err != nil {
			s.logger.Error("Failed to reconcile devolution, skipping",
				"devolution_id", d.ID.String(), "error", err)
			metrics.RecordSweepItem("devolution", "error")
		}
	}
	return nil
}

func (s *DevolutionSweep) reconcile(ctx context.Context, d *devolution.Devolution) error {
	logger := s.logger.With("devolution_id", d.ID.String())

	tx, err := s.gateway.GetTransactionByID(ctx, d.EndToEndID)
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordSweepItem("devolution", "psp_unavailable")
			logger.Debug("PSP unavailable during sweep")
			return nil
		}
		return err
	}

	switch tx.Status {
	case psp.StatusSettled:
		if err := d.MarkConfirmed(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return fmt.Errorf("failed to persist confirmed devolution: %w", err)
		}
		metrics.RecordTransition("devolution", string(d.State))
		metrics.RecordSweepItem("devolution", "confirmed")
		if jerr := s.journal.Append(ctx, journal.NewEntry("devolution", d.ID, string(devolution.StateWaiting), string(d.State), "settled by sweep")); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventDevolutionConfirmed, d); eerr != nil {
			logger.Error("Failed to emit devolution event", "error", eerr)
		}
		logger.Info("Devolution confirmed by sweep")
	case psp.StatusRejected:
		reason := psp.TranslateRejectCode(tx.ErrorCode)
		if err := d.MarkReverted(reason.Code, reason.Message); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return fmt.Errorf("failed to persist reverted devolution: %w", err)
		}
		metrics.RecordTransition("devolution", string(d.State))
		metrics.RecordSweepItem("devolution", "reverted")
		if jerr := s.journal.Append(ctx, journal.NewEntry("devolution", d.ID, string(devolution.StateWaiting), string(d.State), reason.Message)); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventDevolutionReverted, d); eerr != nil {
			logger.Error("Failed to emit devolution event", "error", eerr)
		}
		logger.Info("Devolution reverted by sweep", "failed_code", d.FailedCode)
	default:
		metrics.RecordSweepItem("devolution", "still_processing")
	}
	return nil
}
