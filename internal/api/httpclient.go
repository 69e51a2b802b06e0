// internal/api/httpclient.go
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Transient statuses the debate server answers with while it is overloaded
// or restarting. They are retried; everything else is returned as is.
var (
	ErrRateLimit      = errors.New("rate limit exceeded (429)")
	ErrServerBusy     = errors.New("server busy (503)")
	ErrBadGateway     = errors.New("bad gateway (502)")
	ErrGatewayTimeout = errors.New("gateway timeout (504)")
)

var transientStatus = map[int]error{
	http.StatusTooManyRequests:    ErrRateLimit,
	http.StatusBadGateway:         ErrBadGateway,
	http.StatusServiceUnavailable: ErrServerBusy,
	http.StatusGatewayTimeout:     ErrGatewayTimeout,
}

// drainLimit bounds how much of a discarded body is read so the
// connection can be reused.
const drainLimit = 4 << 10

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// backoff doubles from BaseDelay up to MaxDelay. A server-provided
// Retry-After wins when it is longer, still capped at MaxDelay.
type backoff struct {
	next time.Duration
	max  time.Duration
}

func (b *backoff) wait(retryAfter time.Duration) time.Duration {
	d := max(b.next, retryAfter)
	if b.max > 0 {
		d = min(d, b.max)
	}
	b.next *= 2
	if b.max > 0 {
		b.next = min(b.next, b.max)
	}
	return d
}

// RetryableClient is an instrumented http.Client that retries transient
// network failures and the statuses in transientStatus.
type RetryableClient struct {
	client *http.Client
	config RetryConfig
	logger *slog.Logger
}

func newTransport() http.RoundTripper {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// NewRetryableClient builds a client. A zero timeout means no overall
// deadline, which is what event streams need.
func NewRetryableClient(config RetryConfig, timeout time.Duration, logger *slog.Logger) *RetryableClient {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryableClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
		config: config,
		logger: logger,
	}
}

// DoWithRetry sends req, replaying its body from GetBody on every attempt.
// Each retry is recorded as an event on the span found in ctx.
func (c *RetryableClient) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(ctx)
	b := backoff{next: c.config.BaseDelay, max: c.config.MaxDelay}

	var (
		lastErr    error
		retryAfter time.Duration
	)
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := b.wait(retryAfter)
			c.logger.Debug("retrying request", "url", req.URL.Path, "attempt", attempt, "delay", delay, "error", lastErr)
			span.AddEvent("retry", trace.WithAttributes(
				attribute.Int("attempt", attempt),
				attribute.String("reason", lastErr.Error()),
			))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := c.client.Do(attemptReq)
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			lastErr, retryAfter = err, 0
			continue
		}

		if !shouldRetryStatus(resp.StatusCode) {
			return resp, nil
		}
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		discard(resp)
		lastErr = statusError(resp.StatusCode)
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

func discard(resp *http.Response) {
	io.CopyN(io.Discard, resp.Body, drainLimit)
	resp.Body.Close()
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// isRetryableError reports whether a transport error is worth another
// attempt. Cancellation never is.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func shouldRetryStatus(code int) bool {
	_, ok := transientStatus[code]
	return ok
}

func statusError(code int) error {
	if err, ok := transientStatus[code]; ok {
		return err
	}
	return fmt.Errorf("HTTP %d", code)
}

// NewRequestWithBody creates a request whose body can be replayed on retry.
func NewRequestWithBody(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Body, _ = req.GetBody()
	req.ContentLength = int64(len(body))
	return req, nil
}
