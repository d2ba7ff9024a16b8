package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

// RefundDispatch acknowledges and cancels refund requests at the PSP.
type RefundDispatch struct {
	repo    refund.Repository
	gateway psp.Gateway
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewRefundDispatch creates the refund dispatch use case.
func NewRefundDispatch(
	repo refund.Repository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *RefundDispatch {
	return &RefundDispatch{
		repo:    repo,
		gateway: gateway,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

func (u *RefundDispatch) load(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	r, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, refund.ErrRefundNotFound{}) {
			return nil, shared.NotFoundError{Resource: "refund", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load refund: %w", err)
	}
	return r, nil
}

// ConfirmReceive acknowledges receipt of the refund to the PSP and moves
// it to RECEIVE_CONFIRMED.
func (u *RefundDispatch) ConfirmReceive(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	logger := u.logger.With("refund_id", id.String())

	r, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.State == refund.StateReceiveConfirmed {
		logger.Info("Refund receive already confirmed (idempotency)")
		return r, nil
	}
	if r.State != refund.StateReceivePending {
		return nil, shared.InvalidStateError{Entity: "refund", ID: r.ID.String(), State: string(r.State), Operation: "confirm receive"}
	}

	if err := u.gateway.ConfirmRefundReceive(ctx, r.SolicitationID); err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, refund confirmation left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	if err := r.MarkReceiveConfirmed(); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist confirmed refund: %w", err)
	}

	metrics.RecordTransition("refund", string(r.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund", r.ID, string(refund.StateReceivePending), string(r.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundReceiveConfirmed, r); eerr != nil {
		logger.Error("Failed to emit refund event", "error", eerr)
	}

	logger.Info("Refund receive confirmed")
	return r, nil
}

// Cancel rejects the refund request at the PSP. The refund passes through
// CANCEL_PENDING so an interrupted round trip resumes on redelivery.
func (u *RefundDispatch) Cancel(ctx context.Context, id uuid.UUID, analysisResult string) (*refund.Refund, error) {
	logger := u.logger.With("refund_id", id.String())

	r, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch r.State {
	case refund.StateCancelled:
		logger.Info("Refund already cancelled (idempotency)")
		return r, nil
	case refund.StateCancelPending:
		// resume an interrupted cancellation
	case refund.StateReceivePending, refund.StateReceiveConfirmed:
		from := r.State
		if err := r.MarkCancelPending(analysisResult); err != nil {
			return nil, err
		}
		if err := u.repo.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to persist cancelling refund: %w", err)
		}
		metrics.RecordTransition("refund", string(r.State))
		if jerr := u.journal.Append(ctx, journal.NewEntry("refund", r.ID, string(from), string(r.State), analysisResult)); jerr != nil {
			logger.Error("Failed to append journal entry", "error", jerr)
		}
		if eerr := u.emitter.Emit(ctx, shared.EventRefundCancelPending, r); eerr != nil {
			logger.Error("Failed to emit refund event", "error", eerr)
		}
	default:
		return nil, shared.InvalidStateError{Entity: "refund", ID: r.ID.String(), State: string(r.State), Operation: "cancel"}
	}

	if err := u.gateway.CancelRefund(ctx, r.SolicitationID, r.AnalysisResult); err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, refund cancellation left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	if err := r.MarkCancelled(); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist cancelled refund: %w", err)
	}

	metrics.RecordTransition("refund", string(r.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund", r.ID, string(refund.StateCancelPending), string(r.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundCancelled, r); eerr != nil {
		logger.Error("Failed to emit refund event", "error", eerr)
	}

	logger.Info("Refund cancelled")
	return r, nil
}
