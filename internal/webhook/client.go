package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"cnlistener/internal/config"
)

// Update is the JSON body posted to the domain update endpoint.
type Update struct {
	ClientIP     string `json:"client_ip"`
	Connectivity string `json:"connectivity"`
	DomainName   string `json:"domain_name"`
}

// Client posts connectivity updates to the configured Lambda function URL.
// An empty URL disables the client: Send becomes a no-op so the listener can
// run without the webhook wired up.
type Client struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(cfg config.WebhookConfig, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		logger.Warn("webhook url not configured, updates disabled")
	}

	return &Client{
		url:  cfg.URL,
		http: &http.Client{Timeout: cfg.Timeout()},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "webhook",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		logger: logger,
	}
}

// Send posts the update. Failures are returned for the caller to log; they
// feed the circuit breaker so a dead endpoint stops eating the timeout on
// every report.
func (c *Client) Send(ctx context.Context, u Update) error {
	if c.url == "" {
		return nil
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("marshal update: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("webhook returned %s", resp.Status)
		}

		c.logger.Debug("webhook update sent",
			zap.String("client_ip", u.ClientIP),
			zap.String("domain", u.DomainName),
			zap.ByteString("response", respBody))
		return nil, nil
	})
	return err
}
