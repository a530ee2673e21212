package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/ratelimit"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/retry"
)

// ErrDataUnavailable means a provider could not supply the data: timeout,
// non-200 status, empty payload or an open circuit breaker
var ErrDataUnavailable = errors.New("data unavailable")

const maxErrorBody = 512

// Config describes one upstream provider
type Config struct {
	Name      string
	Timeout   time.Duration
	Interval  time.Duration
	UserAgent string
	Headers   map[string]string
	Retry     retry.Policy
	Breaker   BreakerConfig
}

// BreakerConfig trips the breaker after consecutive failures
type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// Client is a rate-limited, retrying JSON client for one provider
type Client struct {
	name      string
	http      *http.Client
	limiter   *ratelimit.Limiter
	breaker   *gobreaker.CircuitBreaker
	policy    retry.Policy
	userAgent string
	headers   map[string]string
	metrics   *metrics.Registry
	logger    zerolog.Logger
}

// New creates a provider client. m may be nil.
func New(cfg Config, m *metrics.Registry, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; FortunaBot/1.0)"
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker.ConsecutiveFailures = 5
	}
	if cfg.Breaker.OpenTimeout <= 0 {
		cfg.Breaker.OpenTimeout = time.Minute
	}

	c := &Client{
		name:      cfg.Name,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   ratelimit.NewLimiter(cfg.Interval, 1),
		policy:    cfg.Retry,
		userAgent: cfg.UserAgent,
		headers:   cfg.Headers,
		metrics:   m,
		logger:    logger.With().Str("component", "provider").Str("provider", cfg.Name).Logger(),
	}

	threshold := cfg.Breaker.ConsecutiveFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// rejected requests do not count against the provider
			return err == nil || retry.IsPermanent(err) && !errors.Is(err, ErrDataUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			c.metrics.SetBreakerState(name, float64(to))
		},
	})
	return c
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches rawURL with query params and decodes the JSON body into
// out. Failures that exhaust retries are wrapped in ErrDataUnavailable.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.fetch(ctx, u, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return retry.Permanent(fmt.Errorf("%w: %s circuit open", ErrDataUnavailable, c.name))
		}
		if err != nil {
			c.logger.Debug().Err(err).Str("path", u.Path).Msg("provider request failed")
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", ErrDataUnavailable, c.name, u.Path, err)
	}
	return nil
}

// fetch performs one rate-limited GET
func (c *Client) fetch(ctx context.Context, u *url.URL, out interface{}) (err error) {
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	started := time.Now()
	defer func() { c.metrics.ObserveRequest(c.name, started, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("%s API error: status=%d, body=%s", c.name, resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(statusErr)
		}
		return statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty response body", ErrDataUnavailable)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
