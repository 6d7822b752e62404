package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookClient sends the two outbound fire-and-forget calls the
// booking flow makes: a payment-intent request when a hold is confirmed
// and a cancellation request when a booking is cancelled.  Failures are
// logged and returned so handlers can surface an alert to the user;
// nothing is retried automatically and the underlying booking/hold
// state is left unchanged so the action can be retried.
type WebhookClient struct {
	httpClient *http.Client
	paymentURL string
	cancelURL  string
}

// NewWebhookClient builds a client for the configured endpoints.  An
// empty URL disables the corresponding call, which keeps local
// development working without a payment sandbox.
func NewWebhookClient(paymentURL, cancelURL string) *WebhookClient {
	return &WebhookClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		paymentURL: paymentURL,
		cancelURL:  cancelURL,
	}
}

// PaymentIntentRequest carries the booking details the payment service
// needs to open an intent.  It is sent while the hold is still live, so
// the hold token is the correlation id; a failed call leaves the hold
// untouched and the confirmation can simply be retried.
type PaymentIntentRequest struct {
	HoldToken     string `json:"hold_token"`
	ListingID     uint64 `json:"listing_id"`
	ListingName   string `json:"listing_name"`
	Date          string `json:"date"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Guests        int    `json:"guests"`
	RateCents     uint32 `json:"rate_cents"`
	DiscountCents uint32 `json:"discount_cents"`
	TotalCents    uint32 `json:"total_cents"`
}

// CancellationRequest tells the fulfillment service what to return to
// the customer.
type CancellationRequest struct {
	BookingID   uint64 `json:"booking_id"`
	RefundCents uint32 `json:"refund_cents"`
	CreditCents uint32 `json:"credit_cents"`
}

// SendPaymentIntent posts the payment-intent request.
func (c *WebhookClient) SendPaymentIntent(ctx context.Context, req PaymentIntentRequest) error {
	return c.post(ctx, "payment-intent", c.paymentURL, req)
}

// SendCancellation posts the cancellation request.
func (c *WebhookClient) SendCancellation(ctx context.Context, req CancellationRequest) error {
	return c.post(ctx, "cancellation", c.cancelURL, req)
}

func (c *WebhookClient) post(ctx context.Context, name, url string, payload interface{}) error {
	if url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhook: marshal %s failed: %v", name, err)
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: build %s request failed: %v", name, err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("webhook: %s post failed: %v", name, err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("%s webhook returned %d", name, resp.StatusCode)
		log.Printf("webhook: %v", err)
		return err
	}
	return nil
}
