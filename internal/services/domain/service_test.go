package domain_test

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
	"github.com/tbckr/mailcheck/internal/services"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/testutil"
)

func TestRun_DomainWithMX(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, name string) ([]*net.MX, error) {
			assert.Equal(t, "example.com", name)
			return []*net.MX{
				{Host: "mx2.example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 10},
			}, nil
		},
	}
	svc := domain.NewService(resolver, dnscache.New(), testutil.NopLogger())

	rec, err := svc.Run(context.Background(), "Example.COM")
	require.NoError(t, err)

	assert.Equal(t, "example.com", rec.Domain)
	assert.True(t, rec.Exists)
	assert.Equal(t, 2, rec.MXCount)
	assert.Equal(t, []domain.MX{
		{Priority: 10, Exchange: "mx1.example.com"},
		{Priority: 20, Exchange: "mx2.example.com"},
	}, rec.MXRecords)
	assert.Equal(t, domain.Deliverable, rec.Deliverability())
}

func TestRun_NXDomain(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, name string) ([]*net.MX, error) {
			return nil, testutil.NotFound(name)
		},
	}
	svc := domain.NewService(resolver, dnscache.New(), testutil.NopLogger())

	rec, err := svc.Run(context.Background(), "nonexistent-domain-xyz123.invalid")
	require.NoError(t, err, "a missing domain is a normal negative result")
	assert.False(t, rec.Exists)
	assert.Empty(t, rec.MXRecords)
	assert.Equal(t, 0, rec.MXCount)
	assert.Equal(t, domain.Undeliverable, rec.Deliverability())
}

func TestRun_OtherFailureIsNegative(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, _ string) ([]*net.MX, error) {
			return nil, &net.DNSError{Err: "server misbehaving", IsTemporary: true}
		},
	}
	svc := domain.NewService(resolver, nil, testutil.NopLogger())

	rec, err := svc.Run(context.Background(), "broken.example")
	require.NoError(t, err)
	assert.False(t, rec.Exists)
}

func TestRun_NoMXRecords(t *testing.T) {
	svc := domain.NewService(&testutil.MockResolver{}, nil, testutil.NopLogger())

	rec, err := svc.Run(context.Background(), "example.org")
	require.NoError(t, err)
	assert.True(t, rec.Exists)
	assert.Equal(t, 0, rec.MXCount)
	assert.NotNil(t, rec.MXRecords)
	assert.Equal(t, domain.Undeliverable, rec.Deliverability())
}

func TestRun_NullMXIsDropped(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, _ string) ([]*net.MX, error) {
			return []*net.MX{{Host: ".", Pref: 0}}, nil
		},
	}
	svc := domain.NewService(resolver, nil, testutil.NopLogger())

	rec, err := svc.Run(context.Background(), "nomail.example")
	require.NoError(t, err)
	assert.True(t, rec.Exists)
	assert.Equal(t, 0, rec.MXCount)
}

func TestRun_Timeout(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(ctx context.Context, _ string) ([]*net.MX, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	cache := dnscache.New()
	svc := domain.NewService(resolver, cache, testutil.NopLogger(), domain.WithTimeout(20*time.Millisecond))

	rec, err := svc.Run(context.Background(), "slow.example")
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, apperr.HTTPStatus(err))
	assert.Equal(t, "DNS lookup timeout", err.Error())

	_, cached := cache.Get("slow.example")
	assert.False(t, cached, "timeouts must not be cached as missing domains")
}

func TestRun_ResolverTimeoutError(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, _ string) ([]*net.MX, error) {
			return nil, &net.DNSError{Err: "i/o timeout", IsTimeout: true}
		},
	}
	svc := domain.NewService(resolver, nil, testutil.NopLogger())

	_, err := svc.Run(context.Background(), "slow.example")
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestRun_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resolver := &testutil.MockResolver{
		LookupMXFn: func(ctx context.Context, _ string) ([]*net.MX, error) {
			return nil, ctx.Err()
		},
	}
	svc := domain.NewService(resolver, nil, testutil.NopLogger())

	_, err := svc.Run(ctx, "example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, apperr.ErrTimeout)
}

func TestRun_CachesWithinTTL(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, _ string) ([]*net.MX, error) {
			return []*net.MX{{Host: "mx.example.com.", Pref: 10}}, nil
		},
	}
	clock := testutil.NewClock(time.Unix(0, 0))
	svc := domain.NewService(resolver, dnscache.New(dnscache.WithClock(clock.Now)), testutil.NopLogger())

	first, err := svc.Run(context.Background(), "example.com")
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.Calls(), "second call within TTL must be served from cache")
	assert.Equal(t, first, second)

	clock.Advance(dnscache.DefaultTTL)
	_, err = svc.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.Calls())
}

func TestRun_CachesNegative(t *testing.T) {
	resolver := &testutil.MockResolver{
		LookupMXFn: func(_ context.Context, name string) ([]*net.MX, error) {
			return nil, testutil.NotFound(name)
		},
	}
	svc := domain.NewService(resolver, dnscache.New(), testutil.NopLogger())

	for range 3 {
		rec, err := svc.Run(context.Background(), "gone.invalid")
		require.NoError(t, err)
		assert.False(t, rec.Exists)
	}
	assert.Equal(t, 1, resolver.Calls())
}

func TestRun_EmptyInput(t *testing.T) {
	svc := domain.NewService(&testutil.MockResolver{}, nil, testutil.NopLogger())
	_, err := svc.Run(context.Background(), "  ")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestRun_NotAHostName(t *testing.T) {
	resolver := &testutil.MockResolver{}
	cache := dnscache.New()
	svc := domain.NewService(resolver, cache, testutil.NopLogger())

	for _, in := range []string{"not a host", "example.c", "-lead.example.com", "under_score.example", "localhost"} {
		_, err := svc.Run(context.Background(), in)
		assert.ErrorIs(t, err, services.ErrInvalidInput, in)
	}
	assert.Equal(t, 0, resolver.Calls())
	assert.Equal(t, 0, cache.Len())

	_, err := svc.Run(context.Background(), "xn--80ak6aa92e.xn--p1ai")
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.Calls())
}

func TestClearCacheAndStats(t *testing.T) {
	svc := domain.NewService(&testutil.MockResolver{}, dnscache.New(), testutil.NopLogger())
	_, err := svc.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats().Size)

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheStats().Size)
}

func TestRecord_WritePlain(t *testing.T) {
	rec := &domain.Record{
		Domain:    "example.com",
		Exists:    true,
		MXRecords: []domain.MX{{Priority: 10, Exchange: "mx1.example.com"}},
		MXCount:   1,
	}
	var buf bytes.Buffer
	require.NoError(t, rec.WritePlain(&buf))
	assert.Equal(t, "10 mx1.example.com\n", buf.String())
}

func TestRecord_WriteTable(t *testing.T) {
	rec := &domain.Record{Domain: "example.com", MXRecords: []domain.MX{}}
	var buf bytes.Buffer
	require.NoError(t, rec.WriteTable(&buf))
	assert.Contains(t, buf.String(), "example.com")
	assert.Contains(t, buf.String(), "undeliverable")
}
