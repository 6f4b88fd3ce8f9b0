// Package webhook posts inbound client text frames to an external HTTP
// endpoint. Clients are receivers, not publishers, in this system's
// trust model; the webhook is the only egress for client-originated
// content. Delivery is best-effort and errors are swallowed.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/metrics"
)

// Client delivers inbound messages to a configured webhook URL.
// A nil *Client is valid and drops every delivery.
type Client struct {
	url        string
	httpClient *http.Client
}

// Message is the JSON body posted for each inbound text frame.
type Message struct {
	Message string `json:"message"`
	Room    string `json:"room"`
	Sender  string `json:"sender"`
}

// NewClient creates a webhook client for url. Returns nil when url is
// empty, disabling delivery.
func NewClient(url string) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c != nil
}

// Deliver posts one inbound text frame to the webhook. Failures are
// logged and never returned to the caller.
func (c *Client) Deliver(ctx context.Context, room, sender, message string) {
	if c == nil {
		return
	}

	body, err := json.Marshal(Message{
		Message: message,
		Room:    room,
		Sender:  sender,
	})
	if err != nil {
		logging.Error(ctx, "Failed to marshal webhook payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		logging.Error(ctx, "Failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		logging.Warn(ctx, "Webhook delivery failed", zap.String("room", room), zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		logging.Warn(ctx, "Webhook responded with error status",
			zap.String("room", room), zap.Int("status", resp.StatusCode))
		return
	}

	metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()
}
