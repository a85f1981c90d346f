// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// ErrProviderDisabled is returned when no provider URL is configured.
var ErrProviderDisabled = fmt.Errorf("payment provider not configured")

// ProviderClient calls the payment provider API. Outbound calls are
// rate limited and wrapped in a circuit breaker so a degraded provider
// cannot stall request handlers.
type ProviderClient struct {
	cfg        *config.PaymentsConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	limiter    *rate.Limiter
}

// NewProviderClient creates a provider client from config. A client is
// returned even when ProviderURL is empty; calls then fail with
// ErrProviderDisabled.
func NewProviderClient(cfg *config.PaymentsConfig) *ProviderClient {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	cbName := "payment-provider"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("payment provider circuit breaker state change")
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &ProviderClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		limiter:    limiter,
	}
}

// Enabled reports whether outbound provider calls are configured.
func (c *ProviderClient) Enabled() bool {
	return c.cfg.ProviderURL != ""
}

// GetEvent fetches a payment event from the provider, used to
// reconcile quarantined deliveries against the provider's record.
func (c *ProviderClient) GetEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/events/"+eventID, nil)
	if err != nil {
		return nil, err
	}
	var ev models.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode provider event: %w", err)
	}
	return &ev, nil
}

// RequestRefund asks the provider to refund a booking's payment. The
// refund lands back on the webhook as a payment.refunded event.
func (c *ProviderClient) RequestRefund(ctx context.Context, bookingID string, amount decimal.Decimal, currency string) error {
	payload, err := json.Marshal(map[string]string{
		"booking_id": bookingID,
		"amount":     amount.String(),
		"currency":   currency,
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/v1/refunds", payload)
	return err
}

func (c *ProviderClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrProviderDisabled
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.ProviderURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.ProviderAPIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.ProviderAPIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.PaymentProviderRequests.WithLabelValues("failure").Inc()
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			metrics.PaymentProviderRequests.WithLabelValues("failure").Inc()
			return nil, err
		}
		if resp.StatusCode >= 400 {
			metrics.PaymentProviderRequests.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		metrics.PaymentProviderRequests.WithLabelValues("success").Inc()
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.PaymentProviderRequests.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	return result, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
