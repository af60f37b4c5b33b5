// Package scheduler talks to the external one-shot trigger service: "call
// this endpoint at this absolute time, once". Best effort; the reminder
// sweep covers missed fires.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Job is a one-shot callback registration. Key is caller-chosen;
// registering the same key again replaces the previous registration, which
// is what makes re-scheduling idempotent.
type Job struct {
	Key         string            `json:"key"`
	RunAt       time.Time         `json:"run_at"`
	CallbackURL string            `json:"callback_url"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

// Scheduler registers and cancels one-shot callbacks.
type Scheduler interface {
	Register(ctx context.Context, job Job) (string, error)
	Cancel(ctx context.Context, key string) error
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zerolog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type registerResponse struct {
	ID string `json:"id"`
}

// Register upserts the job by key and returns the service's job handle.
func (c *Client) Register(ctx context.Context, job Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	url := fmt.Sprintf("%s/v1/jobs/%s", c.baseURL, job.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("scheduler registration failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("scheduler returned %d: %s", resp.StatusCode, body)
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Some deployments return an empty body; fall back to the key.
		c.logger.Debug().Err(err).Str("key", job.Key).Msg("no job id in scheduler response")
		return job.Key, nil
	}
	return out.ID, nil
}

func (c *Client) Cancel(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/v1/jobs/%s", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler cancel failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("scheduler returned %d", resp.StatusCode)
	}
	return nil
}
