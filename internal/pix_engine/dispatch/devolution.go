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
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/metrics"
	"github.com/meridianbank/pix-engine/internal/psp"
)

const devolutionOperationTag = "PIXDEVSEND"

// DevolutionDispatch sends pending devolutions back through the PSP,
// debiting the wallet the original deposit credited.
type DevolutionDispatch struct {
	repo     devolution.Repository
	deposits deposit.Repository
	wallets  WalletGetter
	gateway  psp.Gateway
	ledger   ledgersvc.Service
	emitter  shared.EventEmitter
	journal  journal.Repository
	logger   *slog.Logger
}

// NewDevolutionDispatch creates the devolution dispatch use case.
func NewDevolutionDispatch(
	repo devolution.Repository,
	deposits deposit.Repository,
	wallets WalletGetter,
	gateway psp.Gateway,
	ledger ledgersvc.Service,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *DevolutionDispatch {
	return &DevolutionDispatch{
		repo:     repo,
		deposits: deposits,
		wallets:  wallets,
		gateway:  gateway,
		ledger:   ledger,
		emitter:  emitter,
		journal:  journalRepo,
		logger:   logger,
	}
}

// Dispatch sends devolution id to the PSP. The original deposit's
// end-to-end id identifies the transaction being returned.
func (u *DevolutionDispatch) Dispatch(ctx context.Context, id uuid.UUID) (*devolution.Devolution, error) {
	logger := u.logger.With("devolution_id", id.String())

	d, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, devolution.ErrDevolutionNotFound{}) {
			return nil, shared.NotFoundError{Resource: "devolution", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to load devolution: %w", err)
	}

	switch d.State {
	case devolution.StateWaiting:
		logger.Info("Devolution already dispatched (idempotency)")
		return d, nil
	case devolution.StatePending:
		// proceed
	default:
		return nil, shared.InvalidStateError{Entity: "devolution", ID: d.ID.String(), State: string(d.State), Operation: "dispatch"}
	}

	dep, err := u.deposits.GetByID(ctx, d.DepositID)
	if err != nil {
		if errors.Is(err, deposit.ErrDepositNotFound{}) {
			return nil, shared.NotFoundError{Resource: "deposit", ID: d.DepositID.String()}
		}
		return nil, fmt.Errorf("failed to resolve deposit: %w", err)
	}

	resp, err := u.gateway.CreateTransaction(ctx, &psp.CreateRequest{
		ID:          d.ID,
		EndToEndID:  dep.EndToEndID,
		Amount:      d.Amount,
		Owner:       dep.Client,
		Beneficiary: dep.ThirdPart,
		Description: d.Description,
	})
	if err != nil {
		if psp.IsUnavailable(err) {
			metrics.RecordGatewayError("unavailable")
			logger.Warn("PSP unavailable, devolution left pending for retry", "error", err)
			return nil, err
		}
		metrics.RecordGatewayError("rejected")
		return u.revert(ctx, logger, d, psp.TranslateRejectCode(psp.RejectCode(err)))
	}

	wallet, err := u.wallets.GetByAccount(ctx, dep.Client.Branch, dep.Client.AccountNumber)
	if err != nil {
		return nil, err
	}
	op := &ledgersvc.Operation{ID: d.ID, RawValue: d.Amount, Description: d.Description}
	if lerr := u.ledger.CreateAndAcceptOperation(ctx, devolutionOperationTag, op, &wallet.ID, nil); lerr != nil {
		var refusal *ledgersvc.LedgerError
		if !errors.As(lerr, &refusal) {
			return nil, fmt.Errorf("ledger call failed for devolution %s: %w", d.ID, lerr)
		}
		logger.Error("Ledger refused devolution debit", "error", lerr)
		return u.revert(ctx, logger, d, psp.FailureReason{Code: refusal.Code, Message: refusal.Message})
	}

	from := d.State
	if err := d.MarkWaiting(resp.EndToEndID, op.ID); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist dispatched devolution: %w", err)
	}

	metrics.RecordTransition("devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("devolution", d.ID, string(from), string(d.State), "")); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventDevolutionWaiting, d); eerr != nil {
		logger.Error("Failed to emit devolution event", "error", eerr)
	}

	logger.Info("Devolution dispatched", "end_to_end_id", d.EndToEndID)
	return d, nil
}

func (u *DevolutionDispatch) revert(ctx context.Context, logger *slog.Logger, d *devolution.Devolution, reason psp.FailureReason) (*devolution.Devolution, error) {
	if d.OperationID != uuid.Nil {
		if err := u.ledger.RevertOperation(ctx, d.OperationID); err != nil {
			return nil, fmt.Errorf("failed to revert operation for devolution %s: %w", d.ID, err)
		}
	}

	from := d.State
	if err := d.MarkReverted(reason.Code, reason.Message); err != nil {
		return nil, err
	}
	if err := u.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to persist reverted devolution: %w", err)
	}

	metrics.RecordTransition("devolution", string(d.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("devolution", d.ID, string(from), string(d.State), reason.Message)); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, shared.EventDevolutionReverted, d); eerr != nil {
		logger.Error("Failed to emit devolution event", "error", eerr)
	}

	logger.Info("Devolution reverted", "failed_code", d.FailedCode)
	return d, nil
}
