// Package notify handles outbound email: a Dispatcher abstraction over the
// transactional mail provider, and an outbox worker that drains queued
// notifications at least once each.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one email to deliver.
type Message struct {
	Recipient string `json:"recipient_email"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html,omitempty"`
}

// Dispatcher sends a single email synchronously.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPDispatcher posts messages as JSON to a transactional mail API.
type HTTPDispatcher struct {
	URL    string
	APIKey string
	From   string
	Client *http.Client
}

// NewHTTPDispatcher creates a dispatcher for the given mail API endpoint.
func NewHTTPDispatcher(url, apiKey, from string) *HTTPDispatcher {
	return &HTTPDispatcher{
		URL:    url,
		APIKey: apiKey,
		From:   from,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type mailRequest struct {
	From string `json:"from"`
	Message
}

// Send posts the message to the mail API and treats any non-2xx response as
// a failure.
func (d *HTTPDispatcher) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(mailRequest{From: d.From, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mail API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, detail)
	}

	return nil
}
