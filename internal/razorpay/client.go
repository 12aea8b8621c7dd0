// Package razorpay is a minimal client for the Razorpay Orders API plus
// checkout signature verification.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/httpclient"
)

// ErrNotConfigured is returned when key id or secret is missing.
var ErrNotConfigured = errors.New("razorpay: credentials not configured")

// APIError is a non-success response from the Orders API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("razorpay: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("razorpay: HTTP %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// OrderRequest creates an order. Amount is in minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of a pending or paid order.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// Client talks to the Orders API with HTTP Basic auth.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// New returns a Client. A nil httpClient gets a 15s default.
func New(keyID, keySecret, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(15 * time.Second)
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
	}
}

// KeyID returns the public key id handed to checkout clients.
func (c *Client) KeyID() string {
	return c.keyID
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

// CreateOrder registers a new order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: encode order: %w", err)
	}
	var order Order
	if err := c.call(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder loads an existing order.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPaymentSignature checks a checkout callback against the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	return VerifyPaymentSignature(c.keySecret, orderID, paymentID, signature)
}

func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("razorpay: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &parsed) == nil {
			apiErr.Code = parsed.Error.Code
			apiErr.Description = parsed.Error.Description
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("razorpay: decode response: %w", err)
	}
	return nil
}
