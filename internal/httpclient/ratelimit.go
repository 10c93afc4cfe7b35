package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/mailcheck/internal/ratelimit"
)

const (
	// maxRetries is how often a throttled or failed DoH request is retried.
	maxRetries = 3
	// retryAfterFallback is used when Retry-After is absent or unparseable.
	retryAfterFallback = 5 * time.Second
	// retryAfterCap bounds the sleep honoured from a Retry-After header.
	retryAfterCap = 60 * time.Second
	// transportRetryInterval is the wait between retries on transport errors.
	transportRetryInterval = time.Second
)

// AttachRateLimit gates every request on limiter and retries HTTP 429 and
// transient transport errors. Context cancellation is never retried.
// A nil logger disables retry logging.
func AttachRateLimit(client *req.Client, limiter *ratelimit.Limiter, logger *slog.Logger) {
	client.OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
		return limiter.Wait(r.Context())
	})

	client.SetCommonRetryCount(maxRetries)
	client.AddCommonRetryCondition(func(resp *req.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusTooManyRequests
	})
	client.SetCommonRetryInterval(func(resp *req.Response, _ int) time.Duration {
		if resp == nil || resp.Response == nil {
			return transportRetryInterval
		}
		return parseRetryAfter(resp.Header.Get("Retry-After"))
	})
	if logger != nil {
		client.AddCommonRetryHook(func(resp *req.Response, err error) {
			status := 0
			if resp != nil && resp.Response != nil {
				status = resp.StatusCode
			}
			logger.Debug("retrying DoH request", "status", status, "error", err)
		})
	}
}

// parseRetryAfter parses a Retry-After value (seconds or HTTP-date) into a
// capped sleep duration.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return retryAfterFallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return min(time.Duration(secs)*time.Second, retryAfterCap)
	}
	if t, err := http.ParseTime(header); err == nil {
		return min(max(time.Until(t), 0), retryAfterCap)
	}
	return retryAfterFallback
}
