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

// InfractionDispatch registers, acknowledges and cancels infraction
// reports at the PSP.
type InfractionDispatch struct {
	repo    infraction.Repository
	gateway psp.Gateway
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewInfractionDispatch creates the infraction dispatch use case.
func NewInfractionDispatch(
	repo infraction.Repository,
	gateway psp.Gateway,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *InfractionDispatch {
	return &InfractionDispatch{
		repo:    repo,
		gateway: gateway,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

func (u *InfractionDispatch) load(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	i, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, infraction.ErrInfractionNotFound{}) {
			return nil, shared.NotFoundError{Resource: "infraction", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load infraction: %w", err)
	}
	return i, nil
}

func (u *InfractionDispatch) commit(ctx context.Context, logger *slog.Logger, i *infraction.Infraction, from infraction.State, event, reason string) error {
	if err := u.repo.Update(ctx, i); err != nil {
		return fmt.Errorf("failed to persist infraction: %w", err)
	}
	metrics.RecordTransition("infraction", string(i.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("infraction", i.ID, string(from), string(i.State), reason)); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, event, i); eerr != nil {
		logger.Error("Failed to emit infraction event", "event", event, "error", eerr)
	}
	return nil
}

// Register opens the infraction at the PSP and records the assigned
// report id.
func (u *InfractionDispatch) Register(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	logger := u.logger.With("infraction_id", id.String())

	i, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if i.State == infraction.StateRegisteredConfirmed {
		logger.Info("Infraction already registered (idempotency)")
		return i, nil
	}
	if i.State != infraction.StateRegisteredPending {
		return nil, shared.InvalidStateError{Entity: "infraction", ID: i.ID.String(), State: string(i.State), Operation: "register"}
	}

	resp, err := u.gateway.CreateInfraction(ctx, &psp.InfractionRequest{
		ID:          i.ID,
		Type:        string(i.Type),
		Description: i.Description,
	})
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, infraction registration left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	from := i.State
	if err := i.MarkRegisteredConfirmed(resp.ReportID); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, i, from, shared.EventInfractionRegisteredConfirmed, ""); err != nil {
		return nil, err
	}

	logger.Info("Infraction registered", "report_id", i.ReportID)
	return i, nil
}

// ConfirmReceive accepts a PSP-opened infraction for analysis. No PSP
// round trip is needed; the PSP learns the outcome through the eventual
// analysis answer.
func (u *InfractionDispatch) ConfirmReceive(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	logger := u.logger.With("infraction_id", id.String())

	i, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if i.State == infraction.StateReceiveConfirmed {
		logger.Info("Infraction receive already confirmed (idempotency)")
		return i, nil
	}

	from := i.State
	if err := i.MarkReceiveConfirmed(); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, i, from, shared.EventInfractionReceiveConfirmed, ""); err != nil {
		return nil, err
	}

	logger.Info("Infraction receive confirmed")
	return i, nil
}

// Cancel withdraws a registered infraction at the PSP. The entity passes
// through CANCELED_REGISTERED_PENDING so an interrupted round trip
// resumes on redelivery.
func (u *InfractionDispatch) Cancel(ctx context.Context, id uuid.UUID) (*infraction.Infraction, error) {
	logger := u.logger.With("infraction_id", id.String())

	i, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch i.State {
	case infraction.StateCancelRegisteredConfirmed:
		logger.Info("Infraction already cancelled (idempotency)")
		return i, nil
	case infraction.StateCancelRegisteredPending:
		// resume an interrupted cancellation
	case infraction.StateRegisteredConfirmed:
		from := i.State
		if err := i.MarkCancelRegisteredPending(); err != nil {
			return nil, err
		}
		if err := u.commit(ctx, logger, i, from, shared.EventInfractionCancelRegisteredPending, ""); err != nil {
			return nil, err
		}
	default:
		return nil, shared.InvalidStateError{Entity: "infraction", ID: i.ID.String(), State: string(i.State), Operation: "cancel"}
	}

	if err := u.gateway.CancelInfraction(ctx, i.ReportID); err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, infraction cancellation left pending for retry", "error", err)
		} else {
			metrics.RecordGatewayError("rejected")
		}
		return nil, err
	}

	from := i.State
	if err := i.MarkCancelRegisteredConfirmed(); err != nil {
		return nil, err
	}
	if err := u.commit(ctx, logger, i, from, shared.EventInfractionCancelRegisteredConfirmed, ""); err != nil {
		return nil, err
	}

	logger.Info("Infraction cancelled")
	return i, nil
}
