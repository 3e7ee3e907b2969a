// Package paysession drives the invitee side of a collaborative purchase:
// loading the payment session behind a payment link, creating the payment
// intent, confirming the card payment and reporting the result back.
package paysession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Card carries the raw card details handed to the payment provider. The
// backend never sees these.
type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// BillingDetails accompany a card confirmation.
type BillingDetails struct {
	Name  string
	Email string
}

// ConfirmResult is the provider's verdict on a confirmation attempt.
type ConfirmResult struct {
	IntentID string
	Status   string
}

// CardConfirmer confirms a payment intent with the provider using its client
// secret. Implementations wrap the provider's browser or server SDK.
type CardConfirmer interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, card Card, billing BillingDetails) (*ConfirmResult, error)
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the collaborative purchase API.
type Client struct {
	baseURL   string
	http      *http.Client
	confirmer CardConfirmer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a Client for the API at baseURL. The confirmer handles
// card confirmation against the payment provider.
func NewClient(baseURL string, confirmer CardConfirmer, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultRequestTimeout},
		confirmer: confirmer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
