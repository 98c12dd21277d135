package services

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts    = 5
	defaultRequestTimeout = 10 * time.Second
	defaultRetryAfter     = 5 * time.Second
)

var errRetriesExhausted = errors.New("catalog retries exhausted")

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// CatalogClient executes catalog API calls with a bounded retry state machine.
//
// Every logical call makes up to maxAttempts HTTP attempts:
//   - success status: decode and return
//   - 401: force a token refresh and retry without sleeping
//   - 429: sleep for Retry-After (default 5s) and retry
//   - 5xx, transport errors, undecodable bodies, missing token: sleep 2^attempt + jitter and retry
//   - any other status: give up immediately
//
// Calls never return errors. Absence is reported with ok=false so callers can tell
// missing data apart from zero values.
type CatalogClient struct {
	baseURL     string
	httpClient  *http.Client
	tokens      *TokenManager
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	sleep       SleepFunc
	jitter      func() float64
	logger      *log.Logger
	recorder    *metrics.Recorder
}

// CatalogOption configures a [CatalogClient].
type CatalogOption func(*CatalogClient)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(client *http.Client) CatalogOption {
	return func(c *CatalogClient) { c.httpClient = client }
}

// WithMaxAttempts sets the number of HTTP attempts per logical call.
func WithMaxAttempts(n int) CatalogOption {
	return func(c *CatalogClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRateLimit paces outgoing attempts with a token bucket. Non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) CatalogOption {
	return func(c *CatalogClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker opens a circuit after threshold consecutive exhausted calls and keeps it open
// for cooldown. A threshold of zero disables the breaker.
func WithBreaker(name string, threshold int, cooldown time.Duration) CatalogOption {
	return func(c *CatalogClient) {
		if threshold <= 0 {
			c.breaker = nil
			return
		}
		st := gobreaker.Settings{Name: name, Timeout: cooldown}
		st.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		}
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			c.logger.Warn("catalog breaker state changed", "name", name, "from", from.String(), "to", to.String())
		}
		c.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) CatalogOption {
	return func(c *CatalogClient) { c.sleep = fn }
}

// WithJitter replaces the backoff jitter source, which must return values in [0,1).
func WithJitter(fn func() float64) CatalogOption {
	return func(c *CatalogClient) { c.jitter = fn }
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) CatalogOption {
	return func(c *CatalogClient) { c.logger = l }
}

// WithRecorder reports attempts and retries to r.
func WithRecorder(r *metrics.Recorder) CatalogOption {
	return func(c *CatalogClient) { c.recorder = r }
}

// NewCatalogClient creates a [CatalogClient] rooted at baseURL that authenticates through tokens.
func NewCatalogClient(baseURL string, tokens *TokenManager, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		baseURL:     baseURL,
		httpClient:  newHTTPClient(defaultRequestTimeout),
		tokens:      tokens,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
		jitter:      rand.Float64,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Get issues a GET against path (relative to the base URL, or absolute) and decodes the body into dst.
func (c *CatalogClient) Get(ctx context.Context, path string, dst any) bool {
	return c.Call(ctx, http.MethodGet, path, nil, dst)
}

// Call runs one logical request through the breaker and the retry loop.
func (c *CatalogClient) Call(ctx context.Context, method, path string, body, dst any) bool {
	url := path
	if len(path) > 0 && path[0] == '/' {
		url = c.baseURL + path
	}

	if c.breaker == nil {
		ok, _ := c.attempts(ctx, method, url, body, dst)
		return c.finish(ok)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		ok, exhausted := c.attempts(ctx, method, url, body, dst)
		if exhausted {
			return false, errRetriesExhausted
		}
		return ok, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("catalog breaker open, skipping call", "url", url)
		c.recorder.CatalogRequest(metrics.OutcomeBreakerOpen)
		return c.finish(false)
	}
	ok, _ := res.(bool)
	return c.finish(ok)
}

func (c *CatalogClient) finish(ok bool) bool {
	if !ok {
		c.recorder.CatalogAbsent()
	}
	return ok
}

// attempts returns ok when a successful response was decoded into dst and exhausted when
// every attempt failed with a retryable condition.
func (c *CatalogClient) attempts(ctx context.Context, method, url string, body, dst any) (ok, exhausted bool) {
	for attempt := range c.maxAttempts {
		if ctx.Err() != nil {
			return false, false
		}
		last := attempt == c.maxAttempts-1

		token, hasToken := c.tokens.Token(ctx)
		if !hasToken {
			c.recorder.CatalogRequest(metrics.OutcomeNoToken)
			c.logger.Warn("catalog token not available, retrying", "attempt", attempt+1)
			if !c.backoff(ctx, attempt, last, metrics.OutcomeNoToken) {
				return false, false
			}
			continue
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return false, false
			}
		}

		resp, err := doRequest(ctx, c.httpClient, method, url, token, body)
		if err != nil {
			if ctx.Err() != nil {
				return false, false
			}
			c.recorder.CatalogRequest(metrics.OutcomeTransport)
			c.logger.Warn("catalog request exception, retrying", "url", url, "attempt", attempt+1, "error", err)
			if !c.backoff(ctx, attempt, last, metrics.OutcomeTransport) {
				return false, false
			}
			continue
		}

		switch {
		case isSuccess(method, resp.StatusCode):
			if err := resp.Decode(dst); err != nil {
				c.recorder.CatalogRequest(metrics.OutcomeTransport)
				c.logger.Warn("catalog response undecodable, retrying", "url", url, "error", err)
				if !c.backoff(ctx, attempt, last, metrics.OutcomeTransport) {
					return false, false
				}
				continue
			}
			c.recorder.CatalogRequest(metrics.OutcomeSuccess)
			return true, false
		case resp.StatusCode == http.StatusUnauthorized:
			c.recorder.CatalogRequest(metrics.OutcomeUnauthorized)
			c.recorder.CatalogRetry(metrics.OutcomeUnauthorized)
			c.logger.Warn("catalog returned 401", "url", url)
			c.tokens.ForceRefresh(ctx)
		case resp.StatusCode == http.StatusTooManyRequests:
			c.recorder.CatalogRequest(metrics.OutcomeRateLimited)
			wait := resp.RetryAfter(defaultRetryAfter)
			c.logger.Warn("catalog rate limited", "url", url, "wait", wait)
			if last {
				break
			}
			c.recorder.CatalogRetry(metrics.OutcomeRateLimited)
			if err := c.sleep(ctx, wait); err != nil {
				return false, false
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			c.recorder.CatalogRequest(metrics.OutcomeServerError)
			c.logger.Warn("catalog server error", "url", url, "status", resp.StatusCode, "attempt", attempt+1)
			if !c.backoff(ctx, attempt, last, metrics.OutcomeServerError) {
				return false, false
			}
		default:
			c.recorder.CatalogRequest(metrics.OutcomeAbsent)
			c.logger.Debug("catalog returned non-retryable status", "url", url, "status", resp.StatusCode)
			return false, false
		}
	}

	c.logger.Warn("catalog retries exhausted", "url", url, "attempts", c.maxAttempts)
	return false, true
}

// backoff sleeps 2^attempt seconds plus jitter unless this was the final attempt.
// It returns false when the context ended during the wait.
func (c *CatalogClient) backoff(ctx context.Context, attempt int, last bool, reason string) bool {
	if last {
		return true
	}
	c.recorder.CatalogRetry(reason)
	wait := time.Duration((math.Pow(2, float64(attempt)) + c.jitter()) * float64(time.Second))
	return c.sleep(ctx, wait) == nil
}

func isSuccess(method string, status int) bool {
	if method == http.MethodGet {
		return status == http.StatusOK
	}
	return status == http.StatusOK || status == http.StatusCreated
}
