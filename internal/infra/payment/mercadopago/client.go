package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/infra/metrics"
)

// Client implements adapter.PaymentGateway against the Mercado Pago REST
// API using direct HTTP calls.
type Client struct {
	accessToken string
	baseURL     string
	sandbox     bool
	client      *http.Client
}

// NewClient creates a gateway client. timeout bounds every outbound call;
// webhook handling depends on that bound to stay fast.
func NewClient(accessToken, baseURL string, sandbox bool, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		accessToken: accessToken,
		baseURL:     baseURL,
		sandbox:     sandbox,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "mercadopago" }

// paymentResponse mirrors the fields of GET /v1/payments/{id} this module
// consumes. transaction_amount is reported in minor units.
type paymentResponse struct {
	ID                json.Number    `json:"id"`
	Status            string         `json:"status"`
	TransactionAmount float64        `json:"transaction_amount"`
	ExternalReference string         `json:"external_reference"`
	Metadata          model.Metadata `json:"metadata"`
}

// preapprovalResponse mirrors POST /preapproval responses.
type preapprovalResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// GetPayment fetches full payment/subscription detail for a gateway id.
func (c *Client) GetPayment(ctx context.Context, externalID string) (*adapter.PaymentDetail, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+externalID, nil, &resp); err != nil {
		return nil, err
	}
	id := resp.ID.String()
	if id == "" {
		id = externalID
	}
	return &adapter.PaymentDetail{
		ExternalID:        id,
		Status:            resp.Status,
		TransactionAmount: int64(resp.TransactionAmount),
		ExternalReference: resp.ExternalReference,
		Metadata:          resp.Metadata,
	}, nil
}

// CreatePreapproval submits a recurring billing authorization. When a card
// token is present the request asks for immediate authorization and the
// gateway may answer "authorized" synchronously.
func (c *Client) CreatePreapproval(ctx context.Context, req adapter.PreapprovalRequest) (*adapter.PreapprovalResult, error) {
	body := map[string]interface{}{
		"payer_email":        req.PayerEmail,
		"reason":             req.Reason,
		"external_reference": req.ExternalReference,
		"back_url":           req.BackURL,
		"auto_recurring": map[string]interface{}{
			"frequency":          req.Frequency,
			"frequency_type":     req.FrequencyType,
			"transaction_amount": req.Amount,
		},
	}
	if req.CardToken != "" {
		body["card_token_id"] = req.CardToken
		body["status"] = "authorized"
	}

	var resp preapprovalResponse
	if err := c.do(ctx, http.MethodPost, "/preapproval", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("mercadopago: preapproval response missing id")
	}
	return &adapter.PreapprovalResult{
		ID:               resp.ID,
		Status:           resp.Status,
		InitPoint:        resp.InitPoint,
		SandboxInitPoint: resp.SandboxInitPoint,
	}, nil
}

// CancelPreapproval cancels a subscription on the gateway.
func (c *Client) CancelPreapproval(ctx context.Context, externalID string) error {
	body := map[string]interface{}{"status": "cancelled"}
	return c.do(ctx, http.MethodPut, "/preapproval/"+externalID, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveGatewayCall(method+" "+routeLabel(path), time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mercadopago: %s %s returned %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
	}
	return nil
}

// routeLabel collapses ids out of paths so metric cardinality stays flat.
func routeLabel(path string) string {
	switch {
	case len(path) > len("/v1/payments/") && path[:len("/v1/payments/")] == "/v1/payments/":
		return "/v1/payments/{id}"
	case len(path) > len("/preapproval/") && path[:len("/preapproval/")] == "/preapproval/":
		return "/preapproval/{id}"
	default:
		return path
	}
}
