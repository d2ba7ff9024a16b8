package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/deposit"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

const depositOperationTag = "PIXREC"

// DepositIntake handles inbound deposits observed from the PSP.
type DepositIntake struct {
	repo       deposit.Repository
	wallets    WalletGetter
	banks      BankDirectory
	ledger     ledgersvc.Service
	emitter    shared.EventEmitter
	journal    journal.Repository
	logger     *slog.Logger
	bankISPB   string
	reviewList map[string]struct{} // client documents held for review
}

// NewDepositIntake creates the deposit receive use case. reviewDocuments
// lists client documents whose deposits are held in WAITING for review.
func NewDepositIntake(
	repo deposit.Repository,
	wallets WalletGetter,
	banks BankDirectory,
	ledger ledgersvc.Service,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
	bankISPB string,
	reviewDocuments []string,
) *DepositIntake {
	review := make(map[string]struct{}, len(reviewDocuments))
	for _, doc := range reviewDocuments {
		review[doc] = struct{}{}
	}
	return &DepositIntake{
		repo:       repo,
		wallets:    wallets,
		banks:      banks,
		ledger:     ledger,
		emitter:    emitter,
		journal:    journalRepo,
		logger:     logger,
		bankISPB:   bankISPB,
		reviewList: review,
	}
}

// DepositInput mirrors the inbound deposit message.
type DepositInput struct {
	ID          uuid.UUID          `json:"id"`
	EndToEndID  string             `json:"end_to_end_id"`
	Amount      int64              `json:"amount"`
	Client      shared.Participant `json:"client"`
	ThirdPart   shared.Participant `json:"third_part"`
	Description string             `json:"description,omitempty"`
}

func (in *DepositInput) validate() error {
	fields := map[string]string{
		"end_to_end_id":         in.EndToEndID,
		"client_name":           in.Client.Name,
		"client_document":       in.Client.Document,
		"client_branch":         in.Client.Branch,
		"client_account_number": in.Client.AccountNumber,
		"client_bank_ispb":      in.Client.BankISPB,
		"third_part_name":       in.ThirdPart.Name,
		"third_part_document":   in.ThirdPart.Document,
		"third_part_bank_ispb":  in.ThirdPart.BankISPB,
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

// Receive creates the deposit idempotently and settles it synchronously:
// the beneficiary is a client of this bank, so the ledger credit is
// created and accepted inside the use case.
func (u *DepositIntake) Receive(ctx context.Context, in *DepositInput) (*deposit.Deposit, error) {
	logger := u.logger.With("deposit_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, deposit.ErrDepositNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing deposit: %w", err)
	}
	if existing != nil {
		logger.Info("Deposit already received (idempotency)", "state", existing.State)
		return existing, nil
	}

	if in.Client.BankISPB != u.bankISPB {
		return nil, shared.NotFoundError{Resource: "bank", ID: in.Client.BankISPB}
	}
	if _, err := u.banks.GetByISPB(ctx, in.ThirdPart.BankISPB); err != nil {
		return nil, err
	}
	wallet, err := u.wallets.GetByAccount(ctx, in.Client.Branch, in.Client.AccountNumber)
	if err != nil {
		return nil, err
	}
	if !wallet.Active() {
		return nil, shared.InvalidStateError{Entity: "wallet", ID: wallet.ID.String(), State: string(wallet.State), Operation: "credit deposit"}
	}

	d := deposit.New(in.ID, in.EndToEndID, in.Amount, in.Client, in.ThirdPart, in.Description)

	if _, held := u.reviewList[in.Client.Document]; held {
		if err := d.MarkWaiting(); err != nil {
			return nil, err
		}
		if err := u.repo.Create(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to persist waiting deposit: %w", err)
		}
		u.record(ctx, logger, d, deposit.StateNew, "held for review")
		u.emit(ctx, logger, shared.EventDepositWaiting, d)
		logger.Info("Deposit held for review", "amount", d.Amount)
		return d, nil
	}

	op := &ledgersvc.Operation{ID: d.ID, RawValue: d.Amount, Description: d.Description}
	if err := u.ledger.CreateAndAcceptOperation(ctx, depositOperationTag, op, nil, &wallet.ID); err != nil {
		if !ledgersvc.IsLedgerError(err) {
			return nil, fmt.Errorf("ledger call failed for deposit %s: %w", d.ID, err)
		}
		logger.Error("Ledger refused deposit credit", "error", err)
		var le *ledgersvc.LedgerError
		errors.As(err, &le)
		if ferr := d.MarkFailed(le.Code, le.Message); ferr != nil {
			return nil, ferr
		}
		if cerr := u.repo.Create(ctx, d); cerr != nil {
			return nil, fmt.Errorf("failed to persist failed deposit: %w", cerr)
		}
		u.record(ctx, logger, d, deposit.StateNew, le.Message)
		u.emit(ctx, logger, shared.EventDepositError, d)
		return d, nil
	}

	if err := d.MarkReceived(op.ID); err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist deposit: %w", err)
	}
	u.record(ctx, logger, d, deposit.StateNew, "")
	u.emit(ctx, logger, shared.EventDepositNew, d)
	logger.Info("Deposit received", "amount", d.Amount, "end_to_end_id", d.EndToEndID)
	return d, nil
}

func (u *DepositIntake) record(ctx context.Context, logger *slog.Logger, d *deposit.Deposit, from deposit.State, reason string) {
	metrics.RecordTransition("deposit", string(d.State))
	entry := journal.NewEntry("deposit", d.ID, string(from), string(d.State), reason)
	if err := u.journal.Append(ctx, entry); err != nil {
		logger.Error("Failed to append journal entry", "error", err)
	}
}

func (u *DepositIntake) emit(ctx context.Context, logger *slog.Logger, name string, d *deposit.Deposit) {
	if err := u.emitter.Emit(ctx, name, d); err != nil {
		logger.Error("Failed to emit deposit event", "event", name, "error", err)
	}
}
