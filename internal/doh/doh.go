// Package doh resolves MX records over DNS-over-HTTPS (RFC 8484 wire format).
package doh

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/imroc/req/v3"
	"github.com/miekg/dns"

	"github.com/tbckr/mailcheck/internal/resolver"
	"github.com/tbckr/mailcheck/internal/services"
)

const (
	// DefaultURL is the Quad9 DNS-over-HTTPS endpoint.
	DefaultURL = "https://dns.quad9.net/dns-query"

	// DefaultRPS is the target request rate for the DoH endpoint.
	DefaultRPS float64 = 5
	// DefaultBurst is the burst capacity above DefaultRPS.
	DefaultBurst = 10

	contentType = "application/dns-message"
)

// Resolver implements services.MXResolver on top of a DoH endpoint.
type Resolver struct {
	client *req.Client
	url    string
}

var _ services.MXResolver = (*Resolver)(nil)

// NewResolver returns a DoH resolver. An empty url selects DefaultURL.
func NewResolver(client *req.Client, url string) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	return &Resolver{client: client, url: url}
}

// URL returns the endpoint queried by r.
func (r *Resolver) URL() string { return r.url }

// LookupMX implements services.MXResolver.
func (r *Resolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m, err := r.Exchange(ctx, resolver.NewMXQuery(name))
	if err != nil {
		return nil, err
	}
	return resolver.MXFromMsg(name, m)
}

// Exchange sends q to the endpoint as a GET with the base64url-encoded
// "dns" query parameter and returns the decoded response.
func (r *Resolver) Exchange(ctx context.Context, q *dns.Msg) (*dns.Msg, error) {
	name := ""
	if len(q.Question) > 0 {
		name = q.Question[0].Name
	}

	// RFC 8484 recommends id 0 so responses are cacheable.
	q.Id = 0
	wire, err := q.Pack()
	if err != nil {
		return nil, fmt.Errorf("%w: packing DNS query for %q: %w", services.ErrRequestFailed, name, err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", contentType).
		SetQueryParam("dns", base64.RawURLEncoding.EncodeToString(wire)).
		Get(r.url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: DoH request error for %q: %w", services.ErrRequestFailed, name, err)
	}
	if !resp.IsSuccessState() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		return nil, fmt.Errorf("%w: DoH endpoint returned HTTP %d for %q: %q", services.ErrRequestFailed, resp.StatusCode, name, body)
	}
	return parseResponse(resp.Bytes())
}

func parseResponse(data []byte) (*dns.Msg, error) {
	m := new(dns.Msg)
	if err := m.Unpack(data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse DNS response: %w", services.ErrRequestFailed, err)
	}
	return m, nil
}
