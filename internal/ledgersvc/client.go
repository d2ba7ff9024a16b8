package ledgersvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client implements Service against the operation service HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a ledger service HTTP client.
func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type ledgerErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var eb ledgerErrorBody
		if decErr := json.NewDecoder(resp.Body).Decode(&eb); decErr != nil {
			return &LedgerError{Message: fmt.Sprintf("ledger returned %d", resp.StatusCode)}
		}
		return &LedgerError{Code: eb.Code, Message: eb.Message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode ledger response: %w", err)
		}
	}
	return nil
}

type operationRequest struct {
	Tag                    string     `json:"tag"`
	Operation              *Operation `json:"operation"`
	OwnerWalletID          *uuid.UUID `json:"owner_wallet_id,omitempty"`
	BeneficiaryWalletID    *uuid.UUID `json:"beneficiary_wallet_id,omitempty"`
	AllowNegativeAvailable bool       `json:"allow_negative_available,omitempty"`
}

func (c *Client) CreateAndAcceptOperation(ctx context.Context, tag string, op *Operation, ownerWalletID, beneficiaryWalletID *uuid.UUID) error {
	req := operationRequest{Tag: tag, Operation: op, OwnerWalletID: ownerWalletID, BeneficiaryWalletID: beneficiaryWalletID}
	return c.post(ctx, "/operations/accept", req, nil)
}

func (c *Client) CreateOperation(ctx context.Context, tag string, op *Operation, walletID uuid.UUID, counterWalletID *uuid.UUID, allowNegativeAvailable bool) (*CreatedOperations, error) {
	req := operationRequest{Tag: tag, Operation: op, OwnerWalletID: &walletID, BeneficiaryWalletID: counterWalletID, AllowNegativeAvailable: allowNegativeAvailable}
	var out CreatedOperations
	if err := c.post(ctx, "/operations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevertOperation(ctx context.Context, operationID uuid.UUID) error {
	body := map[string]string{"operation_id": operationID.String()}
	return c.post(ctx, "/operations/revert", body, nil)
}
