package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/devolution"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

const devolutionReceivedOperationTag = "PIXDEVREC"

// DevolutionReceivedIntake handles inbound devolutions of payments this
// bank sent. The beneficiary is always the owning bank, so no PSP round
// trip is needed: the ledger credit is created and accepted synchronously
// and the entity is born READY.
type DevolutionReceivedIntake struct {
	repo     devolution.ReceivedRepository
	payments payment.Repository
	wallets  WalletGetter
	ledger   ledgersvc.Service
	emitter  shared.EventEmitter
	journal  journal.Repository
	logger   *slog.Logger
}

// NewDevolutionReceivedIntake creates the inbound devolution use case.
func NewDevolutionReceivedIntake(
	repo devolution.ReceivedRepository,
	payments payment.Repository,
	wallets WalletGetter,
	ledger ledgersvc.Service,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *DevolutionReceivedIntake {
	return &DevolutionReceivedIntake{
		repo:     repo,
		payments: payments,
		wallets:  wallets,
		ledger:   ledger,
		emitter:  emitter,
		journal:  journalRepo,
		logger:   logger,
	}
}

// DevolutionReceivedInput mirrors the inbound devolution message.
type DevolutionReceivedInput struct {
	ID          uuid.UUID          `json:"id"`
	EndToEndID  string             `json:"end_to_end_id"`
	Amount      int64              `json:"amount"`
	Client      shared.Participant `json:"client"`
	ThirdPart   shared.Participant `json:"third_part"`
	Description string             `json:"description,omitempty"`
}

func (in *DevolutionReceivedInput) validate() error {
	fields := map[string]string{
		"end_to_end_id":   in.EndToEndID,
		"client_document": in.Client.Document,
	}
	if in.ID == uuid.Nil {
		fields["id"] = ""
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

// Receive credits the devolution to the original payment's wallet.
func (u *DevolutionReceivedIntake) Receive(ctx context.Context, in *DevolutionReceivedInput) (*devolution.Received, error) {
	logger := u.logger.With("devolution_received_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, devolution.ErrReceivedNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing devolution received: %w", err)
	}
	if existing != nil {
		logger.Info("Devolution received already handled (idempotency)")
		return existing, nil
	}

	// The devolution returns a payment this bank dispatched; resolve it
	// by the end-to-end id the PSP echoes back.
	pay, err := u.payments.GetByEndToEndID(ctx, in.EndToEndID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return nil, shared.NotFoundError{Resource: "payment", ID: in.EndToEndID}
		}
		return nil, fmt.Errorf("failed to resolve original payment: %w", err)
	}

	wallet, err := u.wallets.GetByID(ctx, pay.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.Active() {
		return nil, shared.InvalidStateError{Entity: "wallet", ID: wallet.ID.String(), State: string(wallet.State), Operation: "credit devolution"}
	}

	op := &ledgersvc.Operation{ID: in.ID, RawValue: in.Amount, Description: in.Description}
	if err := u.ledger.CreateAndAcceptOperation(ctx, devolutionReceivedOperationTag, op, nil, &wallet.ID); err != nil {
		return nil, fmt.Errorf("ledger call failed for devolution received %s: %w", in.ID, err)
	}

	r := devolution.NewReceived(in.ID, in.EndToEndID, pay.ID, op.ID, in.Amount, in.Client, in.ThirdPart, in.Description)
	if err := u.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist devolution received: %w", err)
	}

	metrics.RecordTransition("devolution_received", string(r.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("devolution_received", r.ID, "", string(r.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventDevolutionReceivedReady, r); eerr != nil {
		logger.Error("Failed to emit devolution received event", "error", eerr)
	}

	logger.Info("Devolution received settled", "payment_id", pay.ID.String(), "amount", r.Amount)
	return r, nil
}
