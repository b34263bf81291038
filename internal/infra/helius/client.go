// Package helius is a thin client for the provider's webhook-management
// API. The platform holds one provider webhook whose account address list is
// the union of every subscription's watched addresses.
package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.helius.xyz/v0"

// Config holds provider API settings.
type Config struct {
	APIKey    string `yaml:"api_key"`
	WebhookID string `yaml:"webhook_id"`
	BaseURL   string `yaml:"base_url"`
}

// Webhook is the provider's webhook resource.
type Webhook struct {
	WebhookID        string   `json:"webhookID"`
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	AccountAddresses []string `json:"accountAddresses"`
	WebhookType      string   `json:"webhookType"`
}

// Client talks to the webhook-management API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a webhook-management API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) webhookURL() string {
	return fmt.Sprintf("%s/webhooks/%s?api-key=%s", c.cfg.BaseURL, c.cfg.WebhookID, c.cfg.APIKey)
}

// GetWebhook fetches the current webhook configuration.
func (c *Client) GetWebhook(ctx context.Context) (*Webhook, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webhookURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	var webhook Webhook
	if err := c.do(req, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

// EditWebhook replaces the webhook's account address list.
func (c *Client) EditWebhook(ctx context.Context, accountAddresses []string) error {
	body, err := json.Marshal(map[string]any{
		"accountAddresses": accountAddresses,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook edit: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.webhookURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook edit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// AppendAddresses adds addresses to the webhook's watch list, preserving
// the ones already present.
func (c *Client) AppendAddresses(ctx context.Context, addresses []string) error {
	webhook, err := c.GetWebhook(ctx)
	if err != nil {
		return err
	}

	existing := make(map[string]struct{}, len(webhook.AccountAddresses))
	merged := append([]string{}, webhook.AccountAddresses...)
	for _, addr := range webhook.AccountAddresses {
		existing[addr] = struct{}{}
	}
	for _, addr := range addresses {
		if _, ok := existing[addr]; !ok {
			merged = append(merged, addr)
			existing[addr] = struct{}{}
		}
	}

	return c.EditWebhook(ctx, merged)
}

// RemoveAddresses removes addresses from the webhook's watch list.
func (c *Client) RemoveAddresses(ctx context.Context, addresses []string) error {
	webhook, err := c.GetWebhook(ctx)
	if err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		drop[addr] = struct{}{}
	}

	kept := make([]string, 0, len(webhook.AccountAddresses))
	for _, addr := range webhook.AccountAddresses {
		if _, ok := drop[addr]; !ok {
			kept = append(kept, addr)
		}
	}

	return c.EditWebhook(ctx, kept)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook API returned %d: %s", resp.StatusCode, body)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode webhook API response: %w", err)
		}
	}
	return nil
}
