// Package subscription notifies the billing service about new
// recurring payment mandates.
package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	subscriptionsPath = "/api/v1/subscriptions/"

	retryAttempts = 3
	retryPause    = time.Second
)

// Config holds the billing service endpoint
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("subscription: base URL is required")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return nil
}

// Notifier delivers rebill registrations to the billing service
type Notifier struct {
	config     *Config
	httpClient *http.Client
}

// NewNotifier creates a subscription notifier
func NewNotifier(config *Config) (*Notifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Notifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// notification is the payload the billing service expects
type notification struct {
	UserID   int64  `json:"user_id"`
	RebillID string `json:"rebill_id"`
}

// NotifyRebill registers a rebill mandate for the user, retrying a few
// times before giving up. A lost notification means the customer is
// never charged again, so transient failures are worth the retries.
func (n *Notifier) NotifyRebill(ctx context.Context, userID int64, rebillID string) error {
	payload, err := json.Marshal(notification{UserID: userID, RebillID: rebillID})
	if err != nil {
		return fmt.Errorf("subscription: marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryPause):
			}
		}

		lastErr = n.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("subscription: notify rebill for user %d: %w", userID, lastErr)
}

func (n *Notifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.BaseURL+subscriptionsPath, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
