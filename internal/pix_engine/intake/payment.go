package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

// PaymentIntake creates outbound payments in their pre-dispatch state.
// The PSP and ledger work happens in the dispatch use case.
type PaymentIntake struct {
	repo    payment.Repository
	wallets WalletGetter
	banks   BankDirectory
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewPaymentIntake creates the payment create use case.
func NewPaymentIntake(
	repo payment.Repository,
	wallets WalletGetter,
	banks BankDirectory,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *PaymentIntake {
	return &PaymentIntake{
		repo:    repo,
		wallets: wallets,
		banks:   banks,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

// PaymentInput mirrors the payment creation message.
type PaymentInput struct {
	ID          uuid.UUID            `json:"id"`
	WalletID    uuid.UUID            `json:"wallet_id"`
	Amount      int64                `json:"amount"`
	Owner       shared.Participant   `json:"owner"`
	Beneficiary shared.Participant   `json:"beneficiary"`
	Description string               `json:"description,omitempty"`
	Priority    payment.PriorityType `json:"priority,omitempty"`
	PaymentDate *time.Time           `json:"payment_date,omitempty"`
}

func (in *PaymentInput) validate() error {
	fields := map[string]string{
		"owner_name":            in.Owner.Name,
		"owner_document":        in.Owner.Document,
		"beneficiary_name":      in.Beneficiary.Name,
		"beneficiary_document":  in.Beneficiary.Document,
		"beneficiary_bank_ispb": in.Beneficiary.BankISPB,
	}
	if in.ID == uuid.Nil {
		fields["id"] = ""
	}
	if in.WalletID == uuid.Nil {
		fields["wallet_id"] = ""
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

// Create persists the payment in PENDING (or SCHEDULED) and emits the
// pending event. Repeated submission of the same id returns the existing
// payment untouched.
func (u *PaymentIntake) Create(ctx context.Context, in *PaymentInput) (*payment.Payment, error) {
	logger := u.logger.With("payment_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, payment.ErrPaymentNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing payment: %w", err)
	}
	if existing != nil {
		logger.Info("Payment already created (idempotency)", "state", existing.State)
		return existing, nil
	}

	if _, err := u.banks.GetByISPB(ctx, in.Beneficiary.BankISPB); err != nil {
		return nil, err
	}
	wallet, err := u.wallets.GetByID(ctx, in.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.Active() {
		return nil, shared.InvalidStateError{Entity: "wallet", ID: wallet.ID.String(), State: string(wallet.State), Operation: "debit payment"}
	}

	p := payment.New(in.ID, in.WalletID, in.Amount, in.Owner, in.Beneficiary, in.Description, in.Priority, in.PaymentDate)
	if err := u.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	metrics.RecordTransition("payment", string(p.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("payment", p.ID, "", string(p.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}

	event := shared.EventPaymentPending
	if p.State == payment.StateScheduled {
		event = shared.EventPaymentScheduled
	}
	if eerr := u.emitter.Emit(ctx, event, p); eerr != nil {
		logger.Error("Failed to emit payment event", "event", event, "error", eerr)
	}

	logger.Info("Payment created", "state", p.State, "amount", p.Amount, "priority", p.Priority)
	return p, nil
}
