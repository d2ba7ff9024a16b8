package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

// InfractionIntake handles infraction reports, both those opened by the
// PSP (received) and those opened by this bank (to be registered).
type InfractionIntake struct {
	repo                infraction.Repository
	deposits            deposit.Repository
	devolutionsReceived devolution.ReceivedRepository
	emitter             shared.EventEmitter
	journal             journal.Repository
	logger              *slog.Logger
}

// NewInfractionIntake creates the infraction intake use case.
func NewInfractionIntake(
	repo infraction.Repository,
	deposits deposit.Repository,
	devolutionsReceived devolution.ReceivedRepository,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *InfractionIntake {
	return &InfractionIntake{
		repo:                repo,
		deposits:            deposits,
		devolutionsReceived: devolutionsReceived,
		emitter:             emitter,
		journal:             journalRepo,
		logger:              logger,
	}
}

// InfractionInput mirrors the infraction message. ReportID is set when
// the report originates at the PSP; Transaction is optional either way.
type InfractionInput struct {
	ID          uuid.UUID              `json:"id"`
	ReportID    string                 `json:"report_id,omitempty"`
	Type        infraction.Type        `json:"type"`
	Transaction *shared.TransactionRef `json:"transaction,omitempty"`
	Description string                 `json:"description,omitempty"`
}

func (in *InfractionInput) validate() error {
	fields := map[string]string{
		"type": string(in.Type),
	}
	if in.ID == uuid.Nil {
		fields["id"] = ""
	}
	return shared.RequireFields(fields)
}

// resolveTransaction verifies the optional polymorphic reference points
// at a real transaction of the allowed families.
func (u *InfractionIntake) resolveTransaction(ctx context.Context, ref shared.TransactionRef) error {
	switch ref.Kind {
	case shared.TransactionKindDeposit:
		if _, err := u.deposits.GetByID(ctx, ref.ID); err != nil {
			if errors.Is(err, deposit.ErrDepositNotFound{}) {
				return shared.NotFoundError{Resource: "deposit", ID: ref.ID.String()}
			}
			return fmt.Errorf("failed to resolve deposit: %w", err)
		}
	case shared.TransactionKindDevolutionReceived:
		if _, err := u.devolutionsReceived.GetByID(ctx, ref.ID); err != nil {
			if errors.Is(err, devolution.ErrReceivedNotFound{}) {
				return shared.NotFoundError{Resource: "devolution received", ID: ref.ID.String()}
			}
			return fmt.Errorf("failed to resolve devolution received: %w", err)
		}
	default:
		return shared.NotFoundError{Resource: "transaction", ID: ref.ID.String()}
	}
	return nil
}

// Receive creates the infraction idempotently. Reports with a PSP report
// id start at RECEIVE_PENDING; locally opened ones at REGISTERED_PENDING.
func (u *InfractionIntake) Receive(ctx context.Context, in *InfractionInput) (*infraction.Infraction, error) {
	logger := u.logger.With("infraction_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, infraction.ErrInfractionNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing infraction: %w", err)
	}
	if existing != nil {
		logger.Info("Infraction already handled (idempotency)", "state", existing.State)
		return existing, nil
	}

	var ref shared.TransactionRef
	if in.Transaction != nil && !in.Transaction.Zero() {
		if err := u.resolveTransaction(ctx, *in.Transaction); err != nil {
			return nil, err
		}
		ref = *in.Transaction
	}

	var i *infraction.Infraction
	event := shared.EventInfractionRegisteredPending
	if in.ReportID != "" {
		i = infraction.NewReceived(in.ID, in.ReportID, in.Type, ref, in.Description)
		event = shared.EventInfractionReceivePending
	} else {
		i = infraction.New(in.ID, in.Type, ref, in.Description)
	}

	if err := u.repo.Create(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to persist infraction: %w", err)
	}

	metrics.RecordTransition("infraction", string(i.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("infraction", i.ID, "", string(i.State), string(i.Type))); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, event, i); eerr != nil {
		logger.Error("Failed to emit infraction event", "event", event, "error", eerr)
	}

	logger.Info("Infraction created", "state", i.State, "type", i.Type)
	return i, nil
}
