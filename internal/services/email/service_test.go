package email_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/dnscache"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/services/email"
	"github.com/tbckr/mailcheck/internal/testutil"
)

// stubDomains is a domain validator whose behaviour is set per test.
type stubDomains struct {
	runFn func(ctx context.Context, d string) (*domain.Record, error)
	calls int
}

func (s *stubDomains) Name() string { return "stub" }

func (s *stubDomains) Run(ctx context.Context, d string) (*domain.Record, error) {
	s.calls++
	return s.runFn(ctx, d)
}

func newService(t *testing.T, lookup func(context.Context, string) ([]*net.MX, error), opts ...email.Option) *email.Service {
	t.Helper()
	resolver := &testutil.MockResolver{LookupMXFn: lookup}
	domains := domain.NewService(resolver, dnscache.New(), testutil.NopLogger())
	return email.NewService(domains, testutil.NopLogger(), opts...)
}

func withMX(_ context.Context, _ string) ([]*net.MX, error) {
	return []*net.MX{{Host: "mx.example.com.", Pref: 10}}, nil
}

func TestRun_Valid(t *testing.T) {
	svc := newService(t, withMX)

	res, err := svc.Run(context.Background(), "  User@Example.COM ")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", res.Email)
	assert.True(t, res.Valid)
	assert.Equal(t, domain.Deliverable, res.Deliverable)
	assert.Equal(t, "Email address is valid and deliverable", res.Reason)
	assert.Equal(t, email.Checks{Format: true, Domain: true, MXRecords: 1}, res.Checks)
	assert.Equal(t, "example.com", res.Domain.Domain)
	assert.Nil(t, res.Checks.SMTP)
}

func TestRun_InvalidFormat(t *testing.T) {
	stub := &stubDomains{runFn: func(context.Context, string) (*domain.Record, error) {
		t.Fatal("domain validator must not run for malformed input")
		return nil, nil
	}}
	svc := email.NewService(stub, testutil.NopLogger())

	for _, in := range []string{"not-an-email", "user@localhost", "@example.com", "user@", "", "a b@c.com", "x@@y.com"} {
		res, err := svc.Run(context.Background(), in)
		require.NoError(t, err, "input %q", in)
		assert.False(t, res.Valid, "input %q", in)
		assert.False(t, res.Checks.Format, "input %q", in)
		assert.Equal(t, "Invalid email format", res.Reason)
		assert.Equal(t, domain.Undeliverable, res.Deliverable)
		assert.Equal(t, int64(0), res.ElapsedMs)
	}
	assert.Equal(t, 0, stub.calls)
}

func TestRun_DomainMissing(t *testing.T) {
	svc := newService(t, func(_ context.Context, name string) ([]*net.MX, error) {
		return nil, testutil.NotFound(name)
	})

	res, err := svc.Run(context.Background(), "user@nonexistent-domain-xyz123.invalid")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Domain 'nonexistent-domain-xyz123.invalid' does not exist", res.Reason)
	assert.True(t, res.Checks.Format)
	assert.False(t, res.Checks.Domain)
}

func TestRun_NoMX(t *testing.T) {
	svc := newService(t, nil)

	res, err := svc.Run(context.Background(), "user@example.org")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.Undeliverable, res.Deliverable)
	assert.Equal(t, "Domain 'example.org' has no MX records", res.Reason)
	assert.True(t, res.Checks.Domain)
	assert.Equal(t, 0, res.Checks.MXRecords)
}

func TestRun_SMTPCheck(t *testing.T) {
	svc := newService(t, withMX, email.WithSMTPCheck(true))

	res, err := svc.Run(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NotNil(t, res.Checks.SMTP)
	assert.True(t, *res.Checks.SMTP)

	off := svc.WithOptions(email.WithSMTPCheck(false))
	assert.False(t, off.SMTPCheck())
	assert.True(t, svc.SMTPCheck(), "WithOptions must not mutate the original")
}

func TestRun_TimeoutPropagates(t *testing.T) {
	stub := &stubDomains{runFn: func(context.Context, string) (*domain.Record, error) {
		return nil, apperr.Timeout("DNS lookup timeout")
	}}
	svc := email.NewService(stub, testutil.NopLogger())

	res, err := svc.Run(context.Background(), "user@slow.example")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, apperr.HTTPStatus(err))
}

func TestRun_UnexpectedErrorWrapped(t *testing.T) {
	stub := &stubDomains{runFn: func(context.Context, string) (*domain.Record, error) {
		return nil, errors.New("resolver exploded")
	}}
	svc := email.NewService(stub, testutil.NopLogger())

	_, err := svc.Run(context.Background(), "user@example.com")
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeDNSResolutionFailed, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Email validation failed: resolver exploded", appErr.Message)
}

func TestRun_ElapsedMeasured(t *testing.T) {
	clock := testutil.NewClock(time.Unix(0, 0))
	stub := &stubDomains{runFn: func(_ context.Context, d string) (*domain.Record, error) {
		clock.Advance(42 * time.Millisecond)
		return &domain.Record{Domain: d, Exists: true, MXRecords: []domain.MX{{Priority: 1, Exchange: "mx." + d}}, MXCount: 1}, nil
	}}
	svc := email.NewService(stub, testutil.NopLogger(), email.WithClock(clock.Now))

	res, err := svc.Run(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.ElapsedMs)
}

func TestFailedResult(t *testing.T) {
	svc := email.NewService(&stubDomains{}, testutil.NopLogger())
	res := svc.FailedResult("user@example.com", "DNS lookup timeout", time.Now())

	assert.False(t, res.Valid)
	assert.Equal(t, domain.Undeliverable, res.Deliverable)
	assert.Equal(t, "DNS lookup timeout", res.Reason)
	assert.Equal(t, "example.com", res.Domain.Domain)
	assert.Equal(t, "Invalid", res.Status())
}

func TestMultiResult_Output(t *testing.T) {
	m := &email.MultiResult{Results: []*email.Result{
		{Email: "a@x.com", Valid: true, Deliverable: domain.Deliverable, Reason: "ok"},
		{Email: "b@x.com", Deliverable: domain.Undeliverable, Reason: "no"},
	}}

	var plain bytes.Buffer
	require.NoError(t, m.WritePlain(&plain))
	assert.Equal(t, "a@x.com deliverable ok\nb@x.com undeliverable no\n", plain.String())

	var table bytes.Buffer
	require.NoError(t, m.WriteTable(&table))
	assert.Contains(t, table.String(), "a@x.com")

	data, err := (&email.MultiResult{}).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestRun_HostNotADomainName(t *testing.T) {
	resolver := &testutil.MockResolver{}
	domains := domain.NewService(resolver, dnscache.New(), testutil.NopLogger())
	svc := email.NewService(domains, testutil.NopLogger())

	res, err := svc.Run(context.Background(), "someone@mail.x")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.Undeliverable, res.Deliverable)
	assert.Equal(t, "Domain 'mail.x' does not exist", res.Reason)
	assert.Equal(t, email.Checks{Format: true}, res.Checks)
	assert.Empty(t, res.Domain.MXRecords)
	assert.Equal(t, 0, resolver.Calls())
}
