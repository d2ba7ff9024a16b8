package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/infraction"
	"github.com/meridianbank/pix-engine/internal/domain/journal"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/meridianbank/pix-engine/internal/metrics"
)

// FraudDetectionIntake handles fraud detection reports, received from the
// PSP or opened by this bank.
type FraudDetectionIntake struct {
	repo    infraction.FraudDetectionRepository
	emitter shared.EventEmitter
	journal journal.Repository
	logger  *slog.Logger
}

// NewFraudDetectionIntake creates the fraud detection intake use case.
func NewFraudDetectionIntake(
	repo infraction.FraudDetectionRepository,
	emitter shared.EventEmitter,
	journalRepo journal.Repository,
	logger *slog.Logger,
) *FraudDetectionIntake {
	return &FraudDetectionIntake{
		repo:    repo,
		emitter: emitter,
		journal: journalRepo,
		logger:  logger,
	}
}

// FraudDetectionInput mirrors the fraud detection message.
type FraudDetectionInput struct {
	ID         uuid.UUID            `json:"id"`
	ExternalID string               `json:"external_id,omitempty"`
	Document   string               `json:"document"`
	Key        string               `json:"key,omitempty"`
	FraudType  infraction.FraudType `json:"fraud_type"`
}

func (in *FraudDetectionInput) validate() error {
	fields := map[string]string{
		"document":   in.Document,
		"fraud_type": string(in.FraudType),
	}
	if in.ID == uuid.Nil {
		fields["id"] = ""
	}
	return shared.RequireFields(fields)
}

// Receive creates the fraud detection idempotently.
func (u *FraudDetectionIntake) Receive(ctx context.Context, in *FraudDetectionInput) (*infraction.FraudDetection, error) {
	logger := u.logger.With("fraud_detection_id", in.ID.String())

	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, in.ID)
	if err != nil && !errors.Is(err, infraction.ErrFraudDetectionNotFound{}) {
		return nil, fmt.Errorf("failed to check for existing fraud detection: %w", err)
	}
	if existing != nil {
		logger.Info("Fraud detection already handled (idempotency)", "state", existing.State)
		return existing, nil
	}

	var f *infraction.FraudDetection
	event := shared.EventFraudDetectionRegisteredPending
	if in.ExternalID != "" {
		f = infraction.NewFraudDetectionReceived(in.ID, in.ExternalID, in.Document, in.Key, in.FraudType)
		event = shared.EventFraudDetectionReceivePending
	} else {
		f = infraction.NewFraudDetection(in.ID, in.Document, in.Key, in.FraudType)
	}

	if err := u.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to persist fraud detection: %w", err)
	}

	metrics.RecordTransition("fraud_detection", string(f.State))
	if jerr := u.journal.Append(ctx, journal.NewEntry("fraud_detection", f.ID, "", string(f.State), string(f.FraudType))); jerr != nil {
		logger.Error("Failed to append journal entry", "error", jerr)
	}
	if eerr := u.emitter.Emit(ctx, event, f); eerr != nil {
		logger.Error("Failed to emit fraud detection event", "event", event, "error", eerr)
	}

	logger.Info("Fraud detection created", "state", f.State, "fraud_type", f.FraudType)
	return f, nil
}
