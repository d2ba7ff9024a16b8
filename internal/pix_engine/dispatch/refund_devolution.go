package dispatch

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
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

const refundDevolutionOperationTag = "PIXREFDEV"

// RefundDevolutionDispatch sends pending refund devolutions to the PSP,
// debiting the wallet credited by the refunded transaction.
type RefundDevolutionDispatch struct {
	repo                refund.DevolutionRepository
	deposits            deposit.Repository
	devolutionsReceived devolution.ReceivedRepository
	wallets             WalletGetter
	gateway             psp.Gateway
	ledger              ledgersvc.Service
	emitter             shared.EventEmitter
	journal             journal.Repository
	logger              *slog.Logger
}

// NewRefundDevolutionDispatch creates the refund devolution dispatch use
// case.
func NewRefundDevolutionDispatch(
	repo refund.DevolutionRepository,
	deposits deposit.Repository,
	devolutionsReceived devolution.ReceivedRepository,
	wallets WalletGetter,
	gateway psp.Gateway,
	ledger ledgersvc.Service,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *RefundDevolutionDispatch {
	return &RefundDevolutionDispatch{
		repo:                repo,
		deposits:            deposits,
		devolutionsReceived: devolutionsReceived,
		wallets:             wallets,
		gateway:             gateway,
		ledger:              ledger,
		emitter:             emitter,
		journal:             journalRepo,
		logger:              logger,
	}
}

// originParties resolves the refunded transaction's end-to-end id,
// counterparties and debited wallet through the tagged reference.
func (u *RefundDevolutionDispatch) originParties(ctx context.Context, ref shared.TransactionRef) (string, shared.Participant, shared.Participant, *shared.Wallet, error) {
	switch ref.Kind {
	case shared.TransactionKindDeposit:
		dep, err := u.deposits.GetByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, deposit.ErrDepositNotFound{}) {
				return "", shared.Participant{}, shared.Participant{}, nil, shared.NotFoundError{Resource: "deposit", ID: ref.ID.String()}
			}
			return "", shared.Participant{}, shared.Participant{}, nil, fmt.Errorf("failed to resolve deposit: %w", err)
		}
		wallet, err := u.wallets.GetByAccount(ctx, dep.Client.Branch, dep.Client.AccountNumber)
		if err != nil {
			return "", shared.Participant{}, shared.Participant{}, nil, err
		}
		return dep.EndToEndID, dep.Client, dep.ThirdPart, wallet, nil
	case shared.TransactionKindDevolutionReceived:
		rec, err := u.devolutionsReceived.GetByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, devolution.ErrReceivedNotFound{}) {
				return "", shared.Participant{}, shared.Participant{}, nil, shared.NotFoundError{Resource: "devolution received", ID: ref.ID.String()}
			}
			return "", shared.Participant{}, shared.Participant{}, nil, fmt.Errorf("failed to resolve devolution received: %w", err)
		}
		wallet, err := u.wallets.GetByAccount(ctx, rec.Client.Branch, rec.Client.AccountNumber)
		if err != nil {
			return "", shared.Participant{}, shared.Participant{}, nil, err
		}
		return rec.EndToEndID, rec.Client, rec.ThirdPart, wallet, nil
	default:
		return "", shared.Participant{}, shared.Participant{}, nil, shared.NotFoundError{Resource: "transaction", ID: ref.ID.String()}
	}
}

// Dispatch sends refund devolution id to the PSP.
func (u *RefundDevolutionDispatch) Dispatch(ctx context.Context, id uuid.UUID) (*refund.Devolution, error) {
	logger := u.logger.With("refund_devolution_id", id.String())

	d, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, refund.ErrDevolutionNotFound{}) {
			return nil, shared.NotFoundError{Resource: "refund devolution", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load refund devolution: %w", err)
	}

	switch d.State {
	case refund.DevolutionStateWaiting:
		logger.Info("Refund devolution already dispatched (idempotency)")
		return d, nil
	case refund.DevolutionStatePending:
		// proceed
	default:
		return nil, shared.InvalidStateError{Entity: "refund devolution", ID: d.ID.String(), State: string(d.State), Operation: "dispatch"}
	}

	endToEndID, client, thirdPart, wallet, err := u.originParties(ctx, d.Transaction)
	if err != nil {
		return nil, err
	}

	resp, err := u.gateway.CreateTransaction(ctx, &psp.CreateRequest{
		ID:          d.ID,
		EndToEndID:  endToEndID,
		Amount:      d.Amount,
		Owner:       client,
		Beneficiary: thirdPart,
		Description: d.Description,
	})
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, refund devolution left pending for retry", "error", err)
			return nil, err
		}
		metrics.RecordGatewayError("rejected")
		return u.revert(ctx, logger, d, psp.TranslateRejectCode(psp.RejectCode(err)))
	}

	op := &ledgersvc.Operation{ID: d.ID, RawValue: d.Amount, Description: d.Description}
	if lerr := u.ledger.CreateAndAcceptOperation(ctx, refundDevolutionOperationTag, op, &wallet.ID, nil); lerr != nil {
		var refusal *ledgersvc.LedgerError
		if !errors.As(lerr, &refusal) {
			return nil, fmt.Errorf("ledger call failed for refund devolution %s: %w", d.ID, lerr)
		}
		logger.Error("Ledger refused refund devolution debit", "error", lerr)
		return u.revert(ctx, logger, d, psp.FailureReason{Code: refusal.Code, Message: refusal.Message})
	}

	from := d.State
	if err := d.MarkWaiting(resp.EndToEndID, op.ID); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist dispatched refund devolution: %w", err)
	}

	metrics.RecordTransition("refund_devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund_devolution", d.ID, string(from), string(d.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundDevolutionWaiting, d); eerr != nil {
		logger.Error("Failed to emit refund devolution event", "error", eerr)
	}

	logger.Info("Refund devolution dispatched", "end_to_end_id", d.EndToEndID)
	return d, nil
}

func (u *RefundDevolutionDispatch) revert(ctx context.Context, logger *slog.Logger, d *refund.Devolution, reason psp.FailureReason) (*refund.Devolution, error) {
	if d.OperationID != uuid.Nil {
		if err := u.ledger.RevertOperation(ctx, d.OperationID); err != nil {
			return nil, fmt.Errorf("failed to revert operation for refund devolution %s: %w", d.ID, err)
		}
	}

	from := d.State
	if err := d.MarkReverted(reason.Code, reason.Message); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist reverted refund devolution: %w", err)
	}

	metrics.RecordTransition("refund_devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("refund_devolution", d.ID, string(from), string(d.State), reason.Message)); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventRefundDevolutionReverted, d); eerr != nil {
		logger.Error("Failed to emit refund devolution event", "error", eerr)
	}

	logger.Info("Refund devolution reverted", "failed_code", d.FailedCode)
	return d, nil
}
