// Package provider implements the provider client (component F): fetches
// the upstream XML catalog behind a timeout/retry/circuit-breaker
// resilience stack, per §4.6.
package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config holds the resilience parameters from §4.10's provider.* and
// retry.*/breaker.* keys.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RetryAttempts   int
	RetryInitial    time.Duration
	RetryMultiplier float64

	BreakerWindow         int
	BreakerFailureRate    float64
	BreakerMinCalls       int
	BreakerWaitWindow     time.Duration
	BreakerHalfOpenProbes int
}

// Client fetches the upstream catalog and hands back its parsed XML tree.
// The asynchronous fetch_online_events() contract from §4.6 — mapping XML
// into domain Events — is the mapper package's job, kept separate so the
// client stays a pure transport+resilience boundary.
type Client struct {
	httpClient *http.Client
	cfg        Config
	breaker    *Breaker
}

// New builds a Client with its own *http.Client and Transport, deliberately
// not sharing the process default transport so the provider's connection
// pool, timeouts, and retries never interact with any other outbound caller.
func New(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		cfg: cfg,
		breaker: NewBreaker(
			cfg.BreakerWindow,
			cfg.BreakerFailureRate,
			cfg.BreakerMinCalls,
			cfg.BreakerWaitWindow,
			cfg.BreakerHalfOpenProbes,
		),
	}
}

// FetchPlanList fetches and decodes the upstream catalog. A tripped breaker,
// exhausted retries, or any other failure all fail back to an empty
// PlanListXML rather than propagating an error — §4.6: "A trip fails back
// into an empty list for the caller; it MUST NOT be propagated as a partial
// batch."
func (c *Client) FetchPlanList(ctx context.Context) PlanListXML {
	if !c.breaker.Allow() {
		slog.Warn("[Provider] circuit open, failing fast")
		return PlanListXML{}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryInitial
	exp.Multiplier = c.cfg.RetryMultiplier

	result, err := backoff.Retry(ctx, func() (PlanListXML, error) {
		return c.fetchOnce(ctx)
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(uint(c.cfg.RetryAttempts)),
	)

	if err != nil {
		slog.Warn("[Provider] fetch failed after retries", "error", err)
		c.breaker.RecordFailure()
		return PlanListXML{}
	}

	c.breaker.RecordSuccess()
	return result
}

func (c *Client) fetchOnce(ctx context.Context) (PlanListXML, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return PlanListXML{}, fmt.Errorf("provider: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PlanListXML{}, fmt.Errorf("provider: transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return PlanListXML{}, fmt.Errorf("provider: upstream returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return PlanListXML{}, backoff.Permanent(fmt.Errorf("provider: upstream returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PlanListXML{}, fmt.Errorf("provider: read body: %w", err)
	}

	var planList PlanListXML
	if err := xml.Unmarshal(body, &planList); err != nil {
		return PlanListXML{}, fmt.Errorf("provider: decode failure: %w", err)
	}

	return planList, nil
}
