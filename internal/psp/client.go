package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client implements Gateway against the PSP HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a PSP HTTP client.
func NewClient(logger *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// pspError is the PSP wire error envelope.
type pspError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal psp request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build psp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors are indistinguishable from a
		// dropped response; the caller retries later.
		return NewUnavailable(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return NewUnavailable(fmt.Sprintf("psp returned %d", resp.StatusCode))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var we pspError
		if err := json.NewDecoder(resp.Body).Decode(&we); err != nil {
			return NewRejected("", fmt.Sprintf("psp returned %d", resp.StatusCode))
		}
		return NewRejected(we.Code, we.Message)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return NewUnavailable("failed to decode psp response: " + err.Error())
		}
	}
	return nil
}

func (c *Client) CreateTransaction(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	var out CreateResponse
	if err := c.do(ctx, http.MethodPost, "/payments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransactionByID(ctx context.Context, endToEndID string) (*Transaction, error) {
	var out Transaction
	path := "/payments/" + url.PathEscape(endToEndID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateInfraction(ctx context.Context, req *InfractionRequest) (*InfractionResponse, error) {
	var out InfractionResponse
	if err := c.do(ctx, http.MethodPost, "/infractions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelInfraction(ctx context.Context, reportID string) error {
	path := "/infractions/" + url.PathEscape(reportID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) CreateFraudDetection(ctx context.Context, req *InfractionRequest) (*InfractionResponse, error) {
	var out InfractionResponse
	if err := c.do(ctx, http.MethodPost, "/fraud-detections", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelFraudDetection(ctx context.Context, externalID string) error {
	path := "/fraud-detections/" + url.PathEscape(externalID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) CancelRefund(ctx context.Context, solicitationID, analysisResult string) error {
	path := "/refunds/" + url.PathEscape(solicitationID) + "/cancel"
	body := map[string]string{"analysis_result": analysisResult}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) ConfirmRefundReceive(ctx context.Context, solicitationID string) error {
	path := "/refunds/" + url.PathEscape(solicitationID) + "/confirm"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
