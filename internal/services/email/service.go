package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/services"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/validate"
)

const (
	// Name is the service identifier.
	Name = "email"

	reasonInvalidFormat = "Invalid email format"
	reasonValid         = "Email address is valid and deliverable"
)

// Service validates a single email address.
type Service struct {
	domains   services.Service[*domain.Record]
	logger    *slog.Logger
	checkSMTP bool
	now       func() time.Time
}

var _ services.Service[*Result] = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithSMTPCheck enables the checks.smtp field. No SMTP session is opened;
// the value is derived from MX presence.
func WithSMTPCheck(enabled bool) Option {
	return func(s *Service) { s.checkSMTP = enabled }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an email validator on top of a domain validator.
func NewService(domains services.Service[*domain.Record], logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		domains: domains,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service identifier.
func (s *Service) Name() string { return Name }

// SMTPCheck reports whether the smtp check is enabled.
func (s *Service) SMTPCheck() bool { return s.checkSMTP }

// WithOptions returns a copy of s with opts applied. The domain validator
// and its cache are shared with the original.
func (s *Service) WithOptions(opts ...Option) *Service {
	cp := *s
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Run validates raw. Malformed input never produces an error; it yields a
// Result with Valid=false. Errors are returned only for a DNS timeout,
// a cancelled ctx, or an unexpected domain validator failure.
func (s *Service) Run(ctx context.Context, raw string) (*Result, error) {
	start := s.now()
	addr := normalize(raw)

	if !validate.IsEmailFormat(addr) {
		return s.FailedResult(addr, reasonInvalidFormat, start), nil
	}

	host, err := domainOf(addr)
	if err != nil {
		return nil, err
	}

	rec, err := s.domains.Run(ctx, host)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		// A host that is not a DNS name cannot publish MX records.
		rec = domain.Missing(host)
	case err != nil:
		if _, ok := apperr.As(err); ok || ctx.Err() != nil {
			return nil, err
		}
		return nil, apperr.Wrapf(err, apperr.CodeDNSResolutionFailed, "Email validation failed: %v", err)
	}

	res := &Result{
		Email:       addr,
		Valid:       rec.Exists && rec.MXCount > 0,
		Deliverable: rec.Deliverability(),
		Domain:      *rec,
		Reason:      reason(rec),
		Checks: Checks{
			Format:    true,
			Domain:    rec.Exists,
			MXRecords: rec.MXCount,
		},
	}
	if s.checkSMTP {
		smtp := rec.MXCount > 0
		res.Checks.SMTP = &smtp
	}
	res.ElapsedMs = s.now().Sub(start).Milliseconds()

	s.logger.Debug("email validated", "email", addr, "valid", res.Valid, "elapsed_ms", res.ElapsedMs)
	return res, nil
}

// FailedResult builds an invalid result for email carrying reason.
func (s *Service) FailedResult(email, reason string, start time.Time) *Result {
	host := ""
	if i := strings.IndexByte(email, '@'); i >= 0 {
		host = email[i+1:]
	}
	return &Result{
		Email:       email,
		Valid:       false,
		Deliverable: domain.Undeliverable,
		Domain:      domain.Record{Domain: host, MXRecords: []domain.MX{}},
		Reason:      reason,
		Checks:      Checks{},
		ElapsedMs:   s.now().Sub(start).Milliseconds(),
	}
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// domainOf requires exactly one "@". The format regexp already rejects
// other shapes, so a failure here is a structural error distinct from a
// format mismatch.
func domainOf(addr string) (string, error) {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return "", fmt.Errorf("splitting %q: %w", addr, apperr.Validation("Invalid email format - missing domain", "email"))
	}
	return parts[1], nil
}

func reason(rec *domain.Record) string {
	switch {
	case !rec.Exists:
		return fmt.Sprintf("Domain '%s' does not exist", rec.Domain)
	case rec.MXCount == 0:
		return fmt.Sprintf("Domain '%s' has no MX records", rec.Domain)
	default:
		return reasonValid
	}
}
