package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

// PaystackClient talks to the Paystack transaction API.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPaystackClient(baseURL, secretKey, currency string, timeout time.Duration, logger *zap.Logger) *PaystackClient {
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		currency:  currency,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// envelope is the wrapper around every Paystack response.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
	Currency    string `json:"currency,omitempty"`
	Metadata    struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	PaidAt    *time.Time `json:"paid_at"`
}

// Initialize starts a transaction and returns the checkout URL
func (c *PaystackClient) Initialize(ctx context.Context, charge models.ChargeRequest) (*models.Authorization, error) {
	body := initializeRequest{
		Email:       charge.Email,
		Amount:      charge.AmountMinor,
		Reference:   charge.Reference,
		CallbackURL: charge.CallbackURL,
		Currency:    c.currency,
	}
	body.Metadata.Name = charge.Name

	var resp envelope[initializeData]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("invalid paystack response: %s", resp.Message)
	}

	c.logger.Info("💳 Payment initialized",
		zap.String("reference", resp.Data.Reference),
		zap.Int64("amount", charge.AmountMinor))

	return &models.Authorization{
		URL:        resp.Data.AuthorizationURL,
		AccessCode: resp.Data.AccessCode,
		Reference:  resp.Data.Reference,
	}, nil
}

// Verify fetches the current state of a transaction
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*models.Verification, error) {
	var resp envelope[verifyData]
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &resp); err != nil {
		return nil, err
	}

	return &models.Verification{
		Status:      resp.Data.Status,
		Reference:   resp.Data.Reference,
		AmountMinor: resp.Data.Amount,
		Currency:    resp.Data.Currency,
		PaidAt:      resp.Data.PaidAt,
	}, nil
}

// VerifySignature checks the x-paystack-signature header of a webhook body.
func (c *PaystackClient) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

type statusCarrier interface {
	ok() (bool, string)
}

func (e *envelope[T]) ok() (bool, string) { return e.Status, e.Message }

func (c *PaystackClient) do(ctx context.Context, method, path string, in any, out statusCarrier) error {
	var reader *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call paystack: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("paystack returned status %d: failed to decode response: %w", resp.StatusCode, err)
	}

	status, message := out.ok()
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !status {
		return fmt.Errorf("paystack returned status %d: %s", resp.StatusCode, message)
	}
	return nil
}
