// Package push is the delivery boundary. The core only decides when and
// whether-once to call it; transport mechanics live behind the gateway.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/studio-api/pkg/circuitbreaker"
)

// Payload is the message handed to the gateway.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result reports a single dispatch attempt. ShouldInvalidateDestination
// means the endpoint is terminally gone and the stored destination must be
// removed.
type Result struct {
	Delivered                   bool
	ShouldInvalidateDestination bool
}

// Transport delivers one payload to one destination.
type Transport interface {
	Dispatch(ctx context.Context, endpoint, credential string, payload Payload) (Result, error)
}

type Client struct {
	gatewayURL string
	http       *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zerolog.Logger
}

type Config struct {
	GatewayURL string
	Timeout    time.Duration
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		gatewayURL: cfg.GatewayURL,
		http:       &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "push-gateway",
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		}),
		logger: logger,
	}
}

type gatewayRequest struct {
	Endpoint   string  `json:"endpoint"`
	Credential string  `json:"credential"`
	Payload    Payload `json:"payload"`
}

func (c *Client) Dispatch(ctx context.Context, endpoint, credential string, payload Payload) (Result, error) {
	body, err := json.Marshal(gatewayRequest{
		Endpoint:   endpoint,
		Credential: credential,
		Payload:    payload,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal push request: %w", err)
	}

	var result Result
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+"/v1/send", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("push dispatch failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result = Result{Delivered: true}
			return nil
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			// Endpoint gone for good; tell the caller to drop it.
			result = Result{ShouldInvalidateDestination: true}
			return nil
		default:
			return fmt.Errorf("push gateway returned %d", resp.StatusCode)
		}
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
