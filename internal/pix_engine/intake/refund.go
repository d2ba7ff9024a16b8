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
	"github.com/meridianbank/pix-engine/internal/domain/refund"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

// RefundIntake handles refund requests opened by the PSP against
// transactions this bank received.
type RefundIntake struct {
	repo                refund.Repository
	deposits            deposit.Repository
	devolutionsReceived devolution.ReceivedRepository
	emitter             shared.EventEmitter
	journal             journal.Repository
	logger              *slog.Logger
}

// NewRefundIntake creates the refund receive use case.
func NewRefundIntake(
	repo refund.Repository,
	deposits deposit.Repository,
	devolutionsReceived devolution.ReceivedRepository,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *RefundIntake {
	return &RefundIntake{
		repo:                repo,
		deposits:            deposits,
		devolutionsReceived: devolutionsReceived,
		emitter:             emitter,
		journal:             journalRepo,
		logger:              logger,
	}
}

// RefundInput mirrors the inbound refund message. The original
// transaction is referenced by the end-to-end id the PSP holds.
type RefundInput struct {
	ID                 uuid.UUID     `json:"id"`
	SolicitationID     string        `json:"solicitation_id"`
	OriginalEndToEndID string        `json:"original_end_to_end_id"`
	Amount             int64         `json:"amount"`
	Reason             refund.Reason `json:"reason"`
	Description        string        `json:"description,omitempty"`
}

func (in *RefundInput) validate() error {
	fields := map[string]string{
		"solicitation_id":        in.SolicitationID,
		"original_end_to_end_id": in.OriginalEndToEndID,
		"reason":                 string(in.Reason),
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

// resolveTransaction finds the refunded transaction among the families
// that can be refunded: deposits, then received devolutions.
func (u *RefundIntake) resolveTransaction(ctx context.Context, endToEndID string) (shared.TransactionRef, error) {
	dep, err := u.deposits.GetByEndToEndID(ctx, endToEndID)
	if err == nil {
		return shared.TransactionRef{Kind: shared.TransactionKindDeposit, ID: dep.ID}, nil
	}
	if !errors.Is(err, deposit.ErrDepositNotFound{}) {
		return shared.TransactionRef{}, fmt.Errorf("failed to resolve deposit: %w", err)
	}

	rec, err := u.devolutionsReceived.GetByEndToEndID(ctx, endToEndID)
	if err == nil {
		return shared.TransactionRef{Kind: shared.TransactionKindDevolutionReceived, ID: rec.ID}, nil
	}
	if !errors.Is(err, devolution.ErrReceivedNotFound{}) {
		return shared.TransactionRef{}, fmt.Errorf("failed to resolve devolution received: %w", err)
	}

	return shared.TransactionRef{}, shared.NotFoundError{Resource: "transaction", ID: endToEndID}
}

// Receive creates the refund in RECEIVE_PENDING and emits the pending
// event; the acknowledgment to the PSP is the dispatch use case's job.
func (u *RefundIntake) Receive(ctx context.Context, in *RefundInput) (*refund.Refund, error) {
	logger := u.logger.With("refund_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, refund.ErrRefundNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing refund: %w", err)
	}
	if existing != nil {
		logger.Info("Refund already received (idempotency)", "state", existing.State)
		return existing, nil
	}

	ref, err := u.resolveTransaction(ctx, in.OriginalEndToEndID)
	if err != nil {
		return nil, err
	}

	r := refund.New(in.ID, in.SolicitationID, ref, in.Amount, in.Reason, in.Description)
	if err := u.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to persist refund: %w", err)
	}

	metrics.RecordTransition("refund", string(r.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund", r.ID, "", string(r.State), string(r.Reason))); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundReceivePending, r); eerr != nil {
		logger.Error("Failed to emit refund event", "error", eerr)
	}

	logger.Info("Refund received", "transaction_kind", ref.Kind, "amount", r.Amount)
	return r, nil
}
