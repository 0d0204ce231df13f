// Package client talks to the OpenWeatherMap current-weather endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/circuitbreaker"
	"github.com/cherrryana/temperature-monitor/internal/models"
	"github.com/cherrryana/temperature-monitor/internal/observability"
)

// WeatherClient fetches the current reading for one city. Implementations must
// distinguish credential failures from network failures so the live anomaly
// check can report them separately.
type WeatherClient interface {
	CurrentReading(ctx context.Context, city string) (models.LiveReading, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrCityNotFound    = errors.New("city not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// OpenWeatherClient calls the OpenWeatherMap current-weather endpoint with
// retries and exponential backoff. All requests share one http.Client, so
// concurrent per-city fetches share its connection pool.
type OpenWeatherClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	httpc   *http.Client
	breaker *circuitbreaker.CircuitBreaker

	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, apiURL, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, apiURL string, timeout time.Duration, attempts int, baseDelay, maxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	return &OpenWeatherClient{
		apiKey:    apiKey,
		apiURL:    apiURL,
		timeout:   timeout,
		attempts:  attempts,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		httpc:     &http.Client{Timeout: timeout},
	}, nil
}

// SetBreaker wraps upstream calls with the given circuit breaker.
func (c *OpenWeatherClient) SetBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// CurrentReading fetches the current temperature for a city, retrying transient
// failures with jittered exponential backoff. Non-retryable errors (bad key,
// unknown city, open circuit) return immediately.
func (c *OpenWeatherClient) CurrentReading(ctx context.Context, city string) (models.LiveReading, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return models.LiveReading{}, ctx.Err()
			case <-time.After(c.backoffDelay(attempt)):
			}
		}

		reading, err := c.guardedFetch(ctx, city)
		if err == nil {
			return reading, nil
		}
		if !retryable(err) {
			return models.LiveReading{}, err
		}
		lastErr = err
	}
	return models.LiveReading{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *OpenWeatherClient) guardedFetch(ctx context.Context, city string) (models.LiveReading, error) {
	if c.breaker == nil {
		return c.fetchOnce(ctx, city)
	}
	var reading models.LiveReading
	err := c.breaker.Call(ctx, func() error {
		var ferr error
		reading, ferr = c.fetchOnce(ctx, city)
		return ferr
	})
	return reading, err
}

// openWeatherResponse is the subset of the API payload the monitor consumes.
type openWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

func (c *OpenWeatherClient) fetchOnce(ctx context.Context, city string) (models.LiveReading, error) {
	started := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(reqCtx, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.LiveReading{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(started).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.LiveReading{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.LiveReading{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	label := metricStatus(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(label).Inc()
	observability.WeatherAPIDuration.WithLabelValues(label).Observe(time.Since(started).Seconds())

	if err := statusError(resp.StatusCode); err != nil {
		return models.LiveReading{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.LiveReading{}, fmt.Errorf("read response body: %w", err)
	}
	var payload openWeatherResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.LiveReading{}, fmt.Errorf("parse response: %w", err)
	}

	// Keep the caller's city name as the reading key so results can be
	// matched back to their city regardless of completion order or API
	// renaming.
	reading := models.LiveReading{
		City:        city,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
	}
	if len(payload.Weather) > 0 {
		reading.Description = payload.Weather[0].Main
		if d := payload.Weather[0].Description; d != "" {
			reading.Description = d
		}
	}
	return reading, nil
}

func (c *OpenWeatherClient) newRequest(ctx context.Context, city string) (*http.Request, error) {
	base, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	base.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusError maps non-2xx responses onto the sentinel taxonomy.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: rejected by weather API", ErrInvalidAPIKey)
	case code == http.StatusNotFound:
		return ErrCityNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	}
}

func metricStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusTooManyRequests:
		return "rate_limited"
	case code >= 400 && code < 500:
		return "client_error"
	case code >= 500:
		return "server_error"
	}
	return "error"
}

// retryable reports whether another attempt might succeed: rate limiting and
// 5xx responses are transient, credential and not-found errors are not, and an
// open circuit means retrying would only hammer the breaker.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUpstreamFailure):
		return true
	case errors.Is(err, circuitbreaker.ErrOpen):
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "context canceled")
}

// backoffDelay doubles the base delay per attempt, capped at maxDelay, with
// 10% jitter so concurrent per-city retries do not synchronize.
func (c *OpenWeatherClient) backoffDelay(attempt int) time.Duration {
	d := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(c.maxDelay) {
		d = float64(c.maxDelay)
	}
	return time.Duration(d + d*0.1*rand.Float64())
}

// ValidateAPIKey issues a probe request and reports whether the key is accepted.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, "London")
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
