package intake

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
)

// RefundDevolutionIntake creates the outbound devolution that pays an
// accepted refund back through the PSP.
type RefundDevolutionIntake struct {
	repo    refund.DevolutionRepository
	refunds refund.Repository
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewRefundDevolutionIntake creates the refund devolution create use case.
func NewRefundDevolutionIntake(
	repo refund.DevolutionRepository,
	refunds refund.Repository,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *RefundDevolutionIntake {
	return &RefundDevolutionIntake{
		repo:    repo,
		refunds: refunds,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

// RefundDevolutionInput mirrors the refund devolution creation message.
type RefundDevolutionInput struct {
	ID          uuid.UUID `json:"id"`
	RefundID    uuid.UUID `json:"refund_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
}

func (in *RefundDevolutionInput) validate() error {
	fields := map[string]string{}
	if in.ID == uuid.Nil {
		fields["id"] = ""
	}
	if in.RefundID == uuid.Nil {
		fields["refund_id"] = ""
	}
	if in.Amount == 0 {
		fields["amount"] = ""
	}
	if err := shared.RequireFields(fields); err != nil {
		return err
	}
	if in.Amount < 0 {
		return shared.ErrInvalidAmount
	}
	return nil
}

// Create persists the refund devolution in PENDING and emits the pending
// event. The refund must have been acknowledged and not cancelled.
func (u *RefundDevolutionIntake) Create(ctx context.Context, in *RefundDevolutionInput) (*refund.Devolution, error) {
	logger := u.logger.With("refund_devolution_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, refund.ErrDevolutionNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing refund devolution: %w", err)
	}
	if existing != nil {
		logger.Info("Refund devolution already created (idempotency)", "state", existing.State)
		return existing, nil
	}

	r, err := u.refunds.GetByID(ctx, in.RefundID)
	if err != nil {
		if errors.Is(err, refund.ErrRefundNotFound{}) {
			return nil, shared.NotFoundError{Resource: "refund", ID: in.RefundID.String()}
		}
		return nil, fmt.Errorf("failed to resolve refund: %w", err)
	}
	if r.State != refund.StateReceiveConfirmed {
		return nil, shared.InvalidStateError{Entity: "refund", ID: r.ID.String(), State: string(r.State), Operation: "devolve"}
	}
	if in.Amount > r.Amount {
		return nil, shared.ErrInvalidAmount
	}

	d := refund.NewDevolution(in.ID, r.ID, r.Transaction, in.Amount, in.Description)
	if err := u.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist refund devolution: %w", err)
	}

	metrics.RecordTransition("refund_devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund_devolution", d.ID, "", string(d.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundDevolutionPending, d); eerr != nil {
		logger.Error("Failed to emit refund devolution event", "error", eerr)
	}

	logger.Info("Refund devolution created", "refund_id", d.RefundID.String(), "amount", d.Amount)
	return d, nil
}
