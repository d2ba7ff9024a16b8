// Package psp defines the boundary with the external Payment Service
// Provider that moves funds on the instant-payment network.
package psp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
)

// Status is the PSP-side view of a transaction.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusSettled    Status = "SETTLED"
	StatusRejected   Status = "NOT_ACCEPTED"
)

// CreateRequest asks the PSP to move funds.
type CreateRequest struct {
	ID          uuid.UUID          `json:"id"`
	EndToEndID  string             `json:"end_to_end_id,omitempty"` // set for devolutions of a known transaction
	Amount      int64              `json:"amount"`
	Owner       shared.Participant `json:"owner"`
	Beneficiary shared.Participant `json:"beneficiary"`
	Description string             `json:"description,omitempty"`
}

// CreateResponse carries the PSP-assigned identity of an accepted
// transaction.
type CreateResponse struct {
	EndToEndID string `json:"end_to_end_id"`
	Status     Status `json:"status"`
}

// Transaction is the PSP answer to a status query. ErrorCode is set only
// for definitive rejections.
type Transaction struct {
	EndToEndID string     `json:"end_to_end_id"`
	Status     Status     `json:"status"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
}

// InfractionRequest registers or cancels an infraction report at the PSP.
type InfractionRequest struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	EndToEndID  string    `json:"end_to_end_id,omitempty"`
	Description string    `json:"description,omitempty"`
}

// InfractionResponse carries the PSP-assigned report id.
type InfractionResponse struct {
	ReportID string `json:"report_id"`
}

// Gateway is the synchronous request/response boundary with the PSP.
// Calls fail with a *GatewayError; transport failures and timeouts are
// classified unavailable and the caller leaves state untouched for retry.
type Gateway interface {
	CreateTransaction(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// GetTransactionByID queries a dispatched transaction by end-to-end
	// id. A not-yet-settled transaction is a normal PROCESSING answer,
	// never an error.
	GetTransactionByID(ctx context.Context, endToEndID string) (*Transaction, error)

	CreateInfraction(ctx context.Context, req *InfractionRequest) (*InfractionResponse, error)
	CancelInfraction(ctx context.Context, reportID string) error
	CreateFraudDetection(ctx context.Context, req *InfractionRequest) (*InfractionResponse, error)
	CancelFraudDetection(ctx context.Context, externalID string) error
	CancelRefund(ctx context.Context, solicitationID, analysisResult string) error
	ConfirmRefundReceive(ctx context.Context, solicitationID string) error
}
