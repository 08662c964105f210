package anet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Processor endpoints.
const (
	SandboxEndpoint    = "https://apitest.authorize.net/xml/v1/request.api"
	ProductionEndpoint = "https://api.authorize.net/xml/v1/request.api"
)

// Client is the processor API used by the payment package.
type Client interface {
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error)
	GetTransactionDetails(ctx context.Context, transID string) (*GetTransactionDetailsResponse, error)
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*CancelSubscriptionResponse, error)
}

// APIError is returned when the processor answers with an error envelope and no
// transaction payload.
type APIError struct {
	Messages Messages
}

func (e *APIError) Error() string {
	m := e.Messages.First()
	return fmt.Sprintf("authorize.net %s: %s", m.Code, m.Text)
}

var utf8BOM = []byte("\xef\xbb\xbf")

// HTTPClient talks JSON to the processor endpoint selected by the sandbox flag.
// Timeouts come from the caller's context and the supplied http.Client.
type HTTPClient struct {
	endpoint string
	auth     MerchantAuthentication
	http     *http.Client
	logger   *zap.Logger
}

// NewHTTPClient returns a client for the sandbox or production environment.
func NewHTTPClient(sandbox bool, loginID, transactionKey string, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	endpoint := ProductionEndpoint
	if sandbox {
		endpoint = SandboxEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		endpoint: endpoint,
		auth:     MerchantAuthentication{Name: loginID, TransactionKey: transactionKey},
		http:     httpClient,
		logger:   logger,
	}
}

// WithEndpoint overrides the processor endpoint.
func (c *HTTPClient) WithEndpoint(endpoint string) *HTTPClient {
	c.endpoint = endpoint
	return c
}

func (c *HTTPClient) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error) {
	req.MerchantAuthentication = c.auth
	var resp CreateTransactionResponse
	if err := c.call(ctx, "createTransactionRequest", req, &resp); err != nil {
		return nil, err
	}
	if resp.TransactionResponse == nil && !resp.Messages.IsOk() {
		return nil, &APIError{Messages: resp.Messages}
	}
	return &resp, nil
}

func (c *HTTPClient) GetTransactionDetails(ctx context.Context, transID string) (*GetTransactionDetailsResponse, error) {
	req := &GetTransactionDetailsRequest{MerchantAuthentication: c.auth, TransID: transID}
	var resp GetTransactionDetailsResponse
	if err := c.call(ctx, "getTransactionDetailsRequest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	req.MerchantAuthentication = c.auth
	var resp CreateSubscriptionResponse
	if err := c.call(ctx, "ARBCreateSubscriptionRequest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) CancelSubscription(ctx context.Context, subscriptionID string) (*CancelSubscriptionResponse, error) {
	req := &CancelSubscriptionRequest{MerchantAuthentication: c.auth, SubscriptionID: subscriptionID}
	var resp CancelSubscriptionResponse
	if err := c.call(ctx, "ARBCancelSubscriptionRequest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) call(ctx context.Context, root string, payload, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{root: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", root, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s: %w", root, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("authorize.net request failed", zap.String("request", root), zap.Error(err))
		return fmt.Errorf("send %s: %w", root, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", root, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", root, httpResp.StatusCode)
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", root, err)
	}
	return nil
}
