package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/dnscache"
	"github.com/tbckr/mailcheck/internal/services"
	"github.com/tbckr/mailcheck/internal/validate"
)

const (
	// Name is the service identifier.
	Name = "domain"
	// DefaultTimeout bounds a single uncached MX lookup.
	DefaultTimeout = 5000 * time.Millisecond
	// timeoutMessage is reported when the lookup deadline expires.
	timeoutMessage = "DNS lookup timeout"
)

// Service classifies a domain by looking up its MX records through the cache.
type Service struct {
	resolver services.MXResolver
	cache    *dnscache.Cache
	logger   *slog.Logger
	timeout  time.Duration
}

var _ services.Service[*Record] = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates a domain validator. A nil cache disables caching.
func NewService(resolver services.MXResolver, cache *dnscache.Cache, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		cache:    cache,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service identifier.
func (s *Service) Name() string { return Name }

// Run validates domain. A non-existent domain is a normal negative Record,
// not an error. The only errors are an expired lookup deadline (an apperr
// timeout, HTTP 504), cancellation of ctx, and input that is not a host
// name (services.ErrInvalidInput). Invalid input never reaches the resolver.
func (s *Service) Run(ctx context.Context, domain string) (*Record, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", services.ErrInvalidInput)
	}
	if !validate.IsDomain(domain) {
		return nil, fmt.Errorf("%w: %q is not a valid domain name", services.ErrInvalidInput, domain)
	}

	if s.cache != nil {
		if e, ok := s.cache.Get(domain); ok {
			s.logger.Debug("MX cache hit", "domain", domain, "found", e.Found)
			return newRecord(domain, e.Found, e.Records), nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mxs, err := s.resolver.LookupMX(lookupCtx, domain)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("looking up MX for %q: %w", domain, ctxErr)
		}
		if isTimeout(lookupCtx, err) {
			s.logger.Debug("MX lookup timed out", "domain", domain, "timeout", s.timeout)
			return nil, apperr.Timeout(timeoutMessage)
		}
		s.logger.Debug("MX lookup failed", "domain", domain, "error", err)
		if s.cache != nil {
			s.cache.SetMissing(domain)
		}
		return newRecord(domain, false, nil), nil
	}

	if s.cache != nil {
		s.cache.Set(domain, mxs)
	}
	return newRecord(domain, true, mxs), nil
}

// ClearCache drops every cached lookup.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// CacheStats reports the cache size and lifetimes.
func (s *Service) CacheStats() dnscache.Stats {
	if s.cache == nil {
		return dnscache.Stats{}
	}
	return s.cache.Stats()
}

// isTimeout reports whether err stems from the lookup deadline rather than
// an authoritative negative answer.
func isTimeout(lookupCtx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsTimeout
}

// Missing returns the negative Record for domain.
func Missing(domain string) *Record {
	return newRecord(domain, false, nil)
}

// newRecord converts resolver output into a Record, dropping null MX
// entries (a single "." exchange) and sorting by priority.
func newRecord(domain string, exists bool, mxs []*net.MX) *Record {
	r := &Record{Domain: domain, Exists: exists, MXRecords: []MX{}}
	if exists {
		for _, mx := range mxs {
			host := strings.TrimSuffix(mx.Host, ".")
			if host == "" {
				continue
			}
			r.MXRecords = append(r.MXRecords, MX{Priority: int(mx.Pref), Exchange: host})
		}
		sort.SliceStable(r.MXRecords, func(i, j int) bool {
			if r.MXRecords[i].Priority != r.MXRecords[j].Priority {
				return r.MXRecords[i].Priority < r.MXRecords[j].Priority
			}
			return r.MXRecords[i].Exchange < r.MXRecords[j].Exchange
		})
	}
	r.MXCount = len(r.MXRecords)
	return r
}
