package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AgendaReminder is posted to the agenda webhook so a supervisor follows up
// on a till closing.
type AgendaReminder struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	SessionID  string    `json:"session_id"`
	LocationID string    `json:"location_id"`
	Variance   string    `json:"variance"`
	Class      string    `json:"class"`
	DueAt      time.Time `json:"due_at"`
}

// AgendaClient is an HTTP client for the agenda webhook. Calls go through a
// circuit breaker so an unavailable agenda fails fast.
type AgendaClient struct {
	webhookURL string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewAgendaClient(webhookURL string, cb *CircuitBreaker) *AgendaClient {
	return &AgendaClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cb:         cb,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *AgendaClient) Enabled() bool { return c != nil && c.webhookURL != "" }

// CreateReminder POSTs the reminder. Any non-2xx answer is an error.
func (c *AgendaClient) CreateReminder(ctx context.Context, r AgendaReminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("agenda: marshal payload: %w", err)
	}

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("agenda: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("agenda: webhook unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("agenda: webhook returned %d", resp.StatusCode)
		}
		return nil
	})
}
