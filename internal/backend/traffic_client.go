// Package backend talks to the route-planning backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const checkTrafficPath = "/check_traffic"

// Config configures the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
}

// TrafficClient asks the backend to re-evaluate a route against live traffic.
type TrafficClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	logger     *zap.Logger
}

// NewTrafficClient creates a new TrafficClient.
func NewTrafficClient(cfg Config, logger *zap.Logger) *TrafficClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TrafficClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// CheckTraffic posts the current route document and returns the backend's answer.
// 5xx responses and transport errors are retried with exponential backoff.
func (c *TrafficClient) CheckTraffic(ctx context.Context, doc route.Document) (*route.TrafficUpdate, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode route: %w", err)
	}

	var update route.TrafficUpdate
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkTrafficPath, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call backend: %w", err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read backend response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("backend returned status %d", resp.StatusCode))
		}
		if err := json.Unmarshal(payload, &update); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode traffic update: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying traffic check",
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify); err != nil {
		return nil, err
	}
	return &update, nil
}
