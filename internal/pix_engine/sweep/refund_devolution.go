package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

// RefundDevolutionSweep reconciles refund devolutions stuck in WAITING.
type RefundDevolutionSweep struct {
	repo      refund.DevolutionRepository
	gateway   psp.Gateway
	emitter   shared.EventEmitter
	journal   journal.Repository
	logger    *slog.Logger
	threshold time.Duration
	batchSize int
}

// NewRefundDevolutionSweep creates the refund devolution reconciliation job.
func NewRefundDevolutionSweep(
	repo refund.DevolutionRepository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
	threshold time.Duration,
	batchSize int,
) *RefundDevolutionSweep {
	return &RefundDevolutionSweep{
		repo:      repo,
		gateway:   gateway,
		emitter:   emitter,
		journal:   journalRepo,
		logger:    logger,
		threshold: threshold,
		batchSize: batchSize,
	}
}

// Run processes one batch of stale waiting refund devolutions.
func (s *RefundDevolutionSweep) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-s.threshold)
	items, err := s.repo.ListByStateUpdatedBefore(ctx, refund.DevolutionStateWaiting, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list waiting refund devolutions: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	s.logger.Info("Sweeping waiting refund devolutions", "count", len(items))
	for _, d := range items {
		if err := s.reconcile(ctx, d); err != nil {
			s.logger.Error("Failed to reconcile refund devolution, skipping",
				"refund_devolution_id", d.ID.String(), "error", err)
			metrics.RecordSweepItem("refund_devolution", "error")
		}
	}
	return nil
}

func (s *RefundDevolutionSweep) reconcile(ctx context.Context, d *refund.Devolution) error {
	logger := s.logger.With("refund_devolution_id", d.ID.String())

	tx, err := s.gateway.GetTransactionByID(ctx, d.EndToEndID)
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordSweepItem("refund_devolution", "psp_unavailable")
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
			return fmt.Errorf("failed to persist confirmed refund devolution: %w", err)
		}
		metrics.RecordTransition("refund_devolution", string(d.State))
		metrics.RecordSweepItem("refund_devolution", "confirmed")
		if jerr := s.journal.Append(ctx, journal.NewEntry("refund_devolution", d.ID, string(refund.DevolutionStateWaiting), string(d.State), "settled by sweep")); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventRefundDevolutionConfirmed, d); eerr != nil {
			logger.Error("Failed to emit refund devolution event", "error", eerr)
		}
		logger.Info("Refund devolution confirmed by sweep")
	case psp.StatusRejected:
		reason := psp.TranslateRejectCode(tx.ErrorCode)
		if err := d.MarkReverted(reason.Code, reason.Message); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return fmt.Errorf("failed to persist reverted refund devolution: %w", err)
		}
		metrics.RecordTransition("refund_devolution", string(d.State))
		metrics.RecordSweepItem("refund_devolution", "reverted")
		if jerr := s.journal.Append(ctx, journal.NewEntry("refund_devolution", d.ID, string(refund.DevolutionStateWaiting), string(d.State), reason.Message)); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventRefundDevolutionReverted, d); eerr != nil {
			logger.Error("Failed to emit refund devolution event", "error", eerr)
		}
		logger.Info("Refund devolution reverted by sweep", "failed_code", d.FailedCode)
	default:
		metrics.RecordSweepItem("refund_devolution", "still_processing")
	}
	return nil
}
