package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/observability/metrics"
	"github.com/yourorg/orderdesk/internal/reliability/circuitbreaker"
	"github.com/yourorg/orderdesk/internal/reliability/retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Receipt is the tracking artifact the order factory returns for a
// submitted order
type Receipt struct {
	TrackingToken string `json:"jwt"`
	ReportURL     string `json:"reportUrl"`
}

// Diner identifies the ordering user in the factory payload
type Diner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type submission struct {
	Diner Diner         `json:"diner"`
	Order *domain.Order `json:"order"`
}

// Client submits persisted orders to the external order factory. Calls are
// bounded by the HTTP client timeout and the request context, retried with
// backoff, and fast-failed through a circuit breaker when the factory is
// down. A failure never affects the already-persisted order.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   *retry.Config
	logger     *slog.Logger
}

// NewClient creates a factory client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxBackoff = 2 * time.Second

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:  circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg: retryCfg,
		logger:   logger,
	}
}

// Submit sends an order to the factory and returns its tracking artifact
func (c *Client) Submit(ctx context.Context, order *domain.Order, diner Diner) (*Receipt, error) {
	if !c.breaker.AllowRequest() {
		metrics.ObserveFulfillment("rejected", 0)
		return nil, &domain.DependencyError{Message: "order factory unavailable"}
	}

	start := time.Now()
	receipt, err := retry.Do(ctx, c.retryCfg, c.logger, "factory submit", func(ctx context.Context) (*Receipt, error) {
		return c.submitOnce(ctx, order, diner)
	})
	if err != nil {
		c.breaker.RecordFailure()
		metrics.ObserveFulfillment("failure", time.Since(start))
		c.logger.Error("factory submission failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return nil, &domain.DependencyError{Message: "failed to fulfill order at factory", Err: err}
	}

	c.breaker.RecordSuccess()
	metrics.ObserveFulfillment("success", time.Since(start))
	return receipt, nil
}

func (c *Client) submitOnce(ctx context.Context, order *domain.Order, diner Diner) (*Receipt, error) {
	body, err := json.Marshal(submission{Diner: diner, Order: order})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build factory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("factory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("factory returned status %d: %s", resp.StatusCode, string(payload))
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode factory response: %w", err)
	}
	return &receipt, nil
}
