package resolver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/tbckr/mailcheck/internal/services"
)

// DefaultServer is used by NewWire when no server is given.
const DefaultServer = "9.9.9.9:53"

// Wire queries one DNS server directly over UDP, retrying over TCP when
// the answer is truncated.
type Wire struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

var _ services.MXResolver = (*Wire)(nil)

// NewWire returns a Wire resolver for server ("host" or "host:port").
// timeout bounds each exchange; the caller's context deadline still applies.
func NewWire(server string, timeout time.Duration) *Wire {
	if server == "" {
		server = DefaultServer
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}
	return &Wire{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Server returns the upstream address.
func (w *Wire) Server() string { return w.server }

// LookupMX implements services.MXResolver.
func (w *Wire) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	q := NewMXQuery(name)

	in, _, err := w.udp.ExchangeContext(ctx, q, w.server)
	if err == nil && in.Truncated {
		in, _, err = w.tcp.ExchangeContext(ctx, q, w.server)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &net.DNSError{
			Err:         err.Error(),
			Name:        name,
			Server:      w.server,
			IsTimeout:   isNetTimeout(err),
			IsTemporary: true,
		}
	}
	return MXFromMsg(name, in)
}

// NewMXQuery builds a recursive MX question for name.
func NewMXQuery(name string) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeMX)
	m.RecursionDesired = true
	return m
}

// MXFromMsg converts a DNS response into the shape returned by
// (*net.Resolver).LookupMX. NXDOMAIN and an empty answer both produce a
// *net.DNSError with IsNotFound set; other failing rcodes produce a
// temporary *net.DNSError.
func MXFromMsg(name string, m *dns.Msg) ([]*net.MX, error) {
	switch m.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	default:
		return nil, &net.DNSError{
			Err:         "server misbehaving: " + dns.RcodeToString[m.Rcode],
			Name:        name,
			IsTemporary: m.Rcode == dns.RcodeServerFailure,
		}
	}

	var mxs []*net.MX
	for _, rr := range m.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			mxs = append(mxs, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	if len(mxs) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return mxs, nil
}

func isNetTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
