// Package sweep contains the reconciliation jobs that finalize
// transactions stuck in their in-flight state by asking the PSP for the
// outcome. Each job exposes a plain Run entry point; scheduling is the
// caller's concern.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

// PaymentSweep reconciles payments stuck in WAITING. Urgent payments use
// a shorter staleness threshold than normal ones.
type PaymentSweep struct {
	repo            payment.Repository
	gateway         psp.Gateway
	emitter         shared.EventEmitter
	journal         journal.Repository
	logger          *slog.Logger
	normalThreshold time.Duration
	urgentThreshold time.Duration
	batchSize       int
}

// NewPaymentSweep creates the payment reconciliation job.
func NewPaymentSweep(
	repo payment.Repository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
	normalThreshold, urgentThreshold time.Duration,
	batchSize int,
) *PaymentSweep {
	return &PaymentSweep{
		repo:            repo,
		gateway:         gateway,
		emitter:         emitter,
		journal:         journalRepo,
		logger:          logger,
		normalThreshold: normalThreshold,
		urgentThreshold: urgentThreshold,
		batchSize:       batchSize,
	}
}

// Run processes one batch per priority. A failure on one payment never
// aborts the batch.
func (s *PaymentSweep) Run(ctx context.Context) error {
	for _, pr := range []struct {
		priority  payment.PriorityType
		threshold time.Duration
	}{
		{payment.PriorityUrgent, s.urgentThreshold},
		{payment.PriorityNormal, s.normalThreshold},
	} {
		cutoff := time.Now().Add(-pr.threshold)
		items, err := s.repo.ListByStateUpdatedBefore(ctx, payment.StateWaiting, pr.priority, cutoff, s.batchSize)
		if err != nil {
			return fmt.Errorf("failed to list waiting payments: %w", err)
		}
		if len(items) == 0 {
			continue
		}
		s.logger.Info("Sweeping waiting payments", "priority", pr.priority, "count", len(items))
		for _, p := range items {
			if err := s.reconcile(ctx, p); err != nil {
				s.logger.Error("Failed to reconcile payment, skipping",
					"payment_id", p.ID.String(), "error", err)
				metrics.RecordSweepItem("payment", "error")
			}
		}
	}
	return nil
}

func (s *PaymentSweep) reconcile(ctx context.Context, p *payment.Payment) error {
	logger := s.logger.With("payment_id", p.ID.String())

	tx, err := s.gateway.GetTransactionByID(ctx, p.EndToEndID)
	if err != nil {
		if psp.IsUnavailable(err) {
			// The payment stays WAITING and is reconsidered next run.
			metrics.RecordSweepItem("payment", "psp_unavailable")
			logger.Debug("PSP unavailable during sweep")
			return nil
		}
		return err
	}

	switch tx.Status {
	case psp.StatusSettled:
		if err := p.MarkConfirmed(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to persist confirmed payment: %w", err)
		}
		metrics.RecordTransition("payment", string(p.State))
		metrics.RecordSweepItem("payment", "confirmed")
		if jerr := s.journal.Append(ctx, journal.NewEntry("payment", p.ID, string(payment.StateWaiting), string(p.State), "settled by sweep")); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventPaymentConfirmed, p); eerr != nil {
			logger.Error("Failed to emit payment event", "error", eerr)
		}
		logger.Info("Payment confirmed by sweep")
	case psp.StatusRejected:
		reason := psp.TranslateRejectCode(tx.ErrorCode)
		if err := p.MarkReverted(reason.Code, reason.Message); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to persist reverted payment: %w", err)
		}
		metrics.RecordTransition("payment", string(p.State))
		metrics.RecordSweepItem("payment", "reverted")
		if jerr := s.journal.Append(ctx, journal.NewEntry("payment", p.ID, string(payment.StateWaiting), string(p.State), reason.Message)); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := s.emitter.Emit(ctx, shared.EventPaymentReverted, p); eerr != nil {
			logger.Error("Failed to emit payment event", "error", eerr)
		}
		logger.Info("Payment reverted by sweep", "failed_code", p.FailedCode)
	default:
		// Still processing at the PSP.
		metrics.RecordSweepItem("payment", "still_processing")
	}
	return nil
}
