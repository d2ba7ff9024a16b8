package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

const paymentOperationTag = "PIXSEND"

// PaymentDispatch sends pending payments to the PSP and settles the
// owner-side ledger debit.
type PaymentDispatch struct {
	repo    payment.Repository
	gateway psp.Gateway
	ledger  ledgersvc.Service
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewPaymentDispatch creates the payment dispatch use case.
func NewPaymentDispatch(
	repo payment.Repository,
	gateway psp.Gateway,
	ledger ledgersvc.Service,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *PaymentDispatch {
	return &PaymentDispatch{
		repo:    repo,
		gateway: gateway,
		ledger:  ledger,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

// Dispatch sends payment id to the PSP.
//
// On PSP acceptance the payment moves to WAITING with its end-to-end id
// recorded and the ledger debit created and accepted. On a permanent
// rejection it moves to REVERTED with the translated failure reason. On a
// transient PSP failure nothing changes; the surrounding at-least-once
// delivery retries later.
func (u *PaymentDispatch) Dispatch(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	logger := u.logger.With("payment_id", id.String())

	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return nil, shared.NotFoundError{Resource: "payment", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	switch p.State {
	case payment.StateWaiting:
		// Already dispatched; duplicate delivery is a no-op.
		logger.Info("Payment already dispatched (idempotency)")
		return p, nil
	case payment.StatePending, payment.StateScheduled:
		// proceed
	default:
		return nil, shared.InvalidStateError{Entity: "payment", ID: p.ID.String(), State: string(p.State), Operation: "dispatch"}
	}

	resp, err := u.gateway.CreateTransaction(ctx, &psp.CreateRequest{
		ID:          p.ID,
		Amount:      p.Amount,
		Owner:       p.Owner,
		Beneficiary: p.Beneficiary,
		Description: p.Description,
	})
	if err != nil {
		if psp.IsUnavailable(err) {
			// Deliberate no-op: the entity stays pre-dispatch and the
			// message bus redelivers.
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, payment left pending for retry", "error", err)
			return nil, err
		}
		metrics.RecordGatewayError("rejected")
		return u.revert(ctx, logger, p, psp.TranslateRejectCode(psp.RejectCode(err)))
	}

	op := &ledgersvc.Operation{ID: p.ID, RawValue: p.Amount, Description: p.Description}
	if lerr := u.ledger.CreateAndAcceptOperation(ctx, paymentOperationTag, op, &p.WalletID, nil); lerr != nil {
		var refusal *ledgersvc.LedgerError
		if !errors.As(lerr, &refusal) {
			return nil, fmt.Errorf("ledger call failed for payment %s: %w", p.ID, lerr)
		}
		logger.Error("Ledger refused payment debit", "error", lerr)
		return u.revert(ctx, logger, p, psp.FailureReason{Code: refusal.Code, Message: refusal.Message})
	}

	from := p.State
	if err := p.MarkWaiting(resp.EndToEndID, op.ID); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist dispatched payment: %w", err)
	}

	metrics.RecordTransition("payment", string(p.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("payment", p.ID, string(from), string(p.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventPaymentWaiting, p); eerr != nil {
		logger.Error("Failed to emit payment event", "error", eerr)
	}

	logger.Info("Payment dispatched", "end_to_end_id", p.EndToEndID)
	return p, nil
}

// revert finalizes a permanently refused payment, reversing the ledger
// debit when one was already created. The reason is the translated PSP
// reject code or the ledger refusal, whichever killed the dispatch.
func (u *PaymentDispatch) revert(ctx context.Context, logger *slog.Logger, p *payment.Payment, reason psp.FailureReason) (*payment.Payment, error) {
	if p.OperationID != uuid.Nil {
		if err := u.ledger.RevertOperation(ctx, p.OperationID); err != nil {
			return nil, fmt.Errorf("failed to revert operation for payment %s: %w", p.ID, err)
		}
	}

	from := p.State
	if err := p.MarkReverted(reason.Code, reason.Message); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist reverted payment: %w", err)
	}

	metrics.RecordTransition("payment", string(p.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("payment", p.ID, string(from), string(p.State), reason.Message)); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventPaymentReverted, p); eerr != nil {
		logger.Error("Failed to emit payment event", "error", eerr)
	}

	logger.Info("Payment reverted", "failed_code", p.FailedCode)
	return p, nil
}
