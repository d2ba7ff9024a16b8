package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

// DevolutionIntake creates outbound devolutions of received deposits in
// their pre-dispatch state.
type DevolutionIntake struct {
	repo     devolution.Repository
	deposits deposit.Repository
	emitter  shared.EventEmitter
	journal  journal.Repository
	logger   *slog.Logger
}

// NewDevolutionIntake creates the devolution create use case.
func NewDevolutionIntake(
	repo devolution.Repository,
	deposits deposit.Repository,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *DevolutionIntake {
	return &DevolutionIntake{
		repo:     repo,
		deposits: deposits,
		emitter:  emitter,
		journal:  journalRepo,
		logger:   logger,
	}
}

// DevolutionInput mirrors the devolution creation message.
type DevolutionInput struct {
	ID          uuid.UUID `json:"id"`
	DepositID   uuid.UUID `json:"deposit_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
}

func (in *DevolutionInput) validate() error {
	fields := map[string]string{}
	if in.ID == uuid.Nil {
		fields["id"] = ""
	}
	if in.DepositID == uuid.Nil {
		fields["deposit_id"] = ""
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

// Create persists the devolution in PENDING and emits the pending event.
// The devolution cannot exceed the received amount of its deposit.
func (u *DevolutionIntake) Create(ctx context.Context, in *DevolutionInput) (*devolution.Devolution, error) {
	logger := u.logger.With("devolution_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, devolution.ErrDevolutionNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing devolution: %w", err)
	}
	if existing != nil {
		logger.Info("Devolution already created (idempotency)", "state", existing.State)
		return existing, nil
	}

	dep, err := u.deposits.GetByID(ctx, in.DepositID)
	if err != nil {
		if errors.Is(err, deposit.ErrDepositNotFound{}) {
			return nil, shared.NotFoundError{Resource: "deposit", ID: in.DepositID.String()}
		}
		return nil, fmt.Errorf("failed to resolve deposit: %w", err)
	}
	if dep.State != deposit.StateReceived {
		return nil, shared.InvalidStateError{Entity: "deposit", ID: dep.ID.String(), State: string(dep.State), Operation: "devolve"}
	}
	if in.Amount > dep.Amount {
		return nil, shared.ErrInvalidAmount
	}

	d := devolution.New(in.ID, in.DepositID, in.Amount, in.Description)
	if err := u.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist devolution: %w", err)
	}

	metrics.RecordTransition("devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("devolution", d.ID, "", string(d.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventDevolutionPending, d); eerr != nil {
		logger.Error("Failed to emit devolution event", "error", eerr)
	}

	logger.Info("Devolution created", "deposit_id", d.DepositID.String(), "amount", d.Amount)
	return d, nil
}
