// Package testutil provides shared test helpers for service unit tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tbckr/mailcheck/internal/services"
)

// MockResolver implements services.MXResolver for testing.
// LookupMXFn is optional; when nil the mock returns no records and no error.
type MockResolver struct {
	LookupMXFn func(ctx context.Context, name string) ([]*net.MX, error)

	calls atomic.Int64
}

var _ services.MXResolver = (*MockResolver)(nil)

// LookupMX implements services.MXResolver.
func (m *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m.calls.Add(1)
	if m.LookupMXFn != nil {
		return m.LookupMXFn(ctx, name)
	}
	return nil, nil
}

// Calls returns how many times LookupMX was invoked.
func (m *MockResolver) Calls() int {
	return int(m.calls.Load())
}

// NotFound returns the error *net.Resolver produces for an NXDOMAIN answer.
func NotFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a manually advanced clock for TTL and timing tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
