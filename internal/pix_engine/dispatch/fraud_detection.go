package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

// FraudDetectionDispatch registers, acknowledges and cancels fraud
// detection reports at the PSP.
type FraudDetectionDispatch struct {
	repo    infraction.FraudDetectionRepository
	gateway psp.Gateway
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewFraudDetectionDispatch creates the fraud detection dispatch use case.
func NewFraudDetectionDispatch(
	repo infraction.FraudDetectionRepository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *FraudDetectionDispatch {
	return &FraudDetectionDispatch{
		repo:    repo,
		gateway: gateway,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

func (u *FraudDetectionDispatch) load(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	f, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, infraction.ErrFraudDetectionNotFound{}) {
			return nil, shared.NotFoundError{Resource: "fraud detection", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load fraud detection: %w", err)
	}
	return f, nil
}

func (u *FraudDetectionDispatch) commit(ctx context.Context, logger *slog.Logger, f *infraction.FraudDetection, from infraction.State, event string) error {
	if err := u.repo.Update(ctx, f); err != nil {
		return fmt.Errorf("failed to persist fraud detection: %w", err)
	}
	metrics.RecordTransition("fraud_detection", string(f.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("fraud_detection", f.ID, string(from), string(f.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, event, f); eerr != nil {
		logger.Error("Failed to emit fraud detection event", "event", event, "error", eerr)
	}
	return nil
}

// Register opens the fraud detection at the PSP.
func (u *FraudDetectionDispatch) Register(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	logger := u.logger.With("fraud_detection_id", id.String())

	f, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if f.State == infraction.StateRegisteredConfirmed {
		logger.Info("Fraud detection already registered (idempotency)")
		return f, nil
	}
	if f.State != infraction.StateRegisteredPending {
		return nil, shared.InvalidStateError{Entity: "fraud detection", ID: f.ID.String(), State: string(f.State), Operation: "register"}
	}

	resp, err := u.gateway.CreateFraudDetection(ctx, &psp.InfractionRequest{
		ID:   f.ID,
		Type: string(f.FraudType),
	})
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, fraud detection registration left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	from := f.State
	if err := f.MarkRegisteredConfirmed(resp.ReportID); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, f, from, shared.EventFraudDetectionRegisteredConfirmed); err != nil {
		return nil, err
	}

	logger.Info("Fraud detection registered", "external_id", f.ExternalID)
	return f, nil
}

// ConfirmReceive accepts a PSP-opened fraud detection.
func (u *FraudDetectionDispatch) ConfirmReceive(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	logger := u.logger.With("fraud_detection_id", id.String())

	f, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if f.State == infraction.StateReceiveConfirmed {
		logger.Info("Fraud detection receive already confirmed (idempotency)")
		return f, nil
	}

	from := f.State
	if err := f.MarkReceiveConfirmed(); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, f, from, shared.EventFraudDetectionReceiveConfirmed); err != nil {
		return nil, err
	}

	logger.Info("Fraud detection receive confirmed")
	return f, nil
}

// Cancel withdraws a registered fraud detection at the PSP.
func (u *FraudDetectionDispatch) Cancel(ctx context.Context, id uuid.UUID) (*infraction.FraudDetection, error) {
	logger := u.logger.With("fraud_detection_id", id.String())

	f, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch f.State {
	case infraction.StateCancelRegisteredConfirmed:
		logger.Info("Fraud detection already cancelled (idempotency)")
		return f, nil
	case infraction.StateCancelRegisteredPending:
		// resume an interrupted cancellation
	case infraction.StateRegisteredConfirmed:
		from := f.State
		if err := f.MarkCancelRegisteredPending(); err != nil {
			return nil, err
		}
		if err := u.commit(ctx, logger, f, from, shared.EventFraudDetectionCancelRegisteredPending); err != nil {
			return nil, err
		}
	default:
		return nil, shared.InvalidStateError{Entity: "fraud detection", ID: f.ID.String(), State: string(f.State), Operation: "cancel"}
	}

	if err := u.gateway.CancelFraudDetection(ctx, f.ExternalID); err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, fraud detection cancellation left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	from := f.State
	if err := f.MarkCancelRegisteredConfirmed(); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, f, from, shared.EventFraudDetectionCancelRegisteredConfirmed); err != nil {
		return nil, err
	}

	logger.Info("Fraud detection cancelled")
	return f, nil
}
