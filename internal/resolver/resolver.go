package resolver

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/net/proxy"
)

// NewResolver returns a *net.Resolver appropriate for the given proxy URL.
//
// When proxyURL is empty the ALL_PROXY environment variable is consulted.
// A non-socks5 proxy yields the standard system resolver (nil Dial field).
//
// A socks5:// proxy tunnels DNS queries through the proxy using
// DNS-over-TCP, so MX lookups do not leak to the local network.
func NewResolver(proxyURL string) (*net.Resolver, error) {
	if proxyURL == "" {
		proxyURL = allProxy()
	}
	if !strings.HasPrefix(proxyURL, "socks5://") {
		return &net.Resolver{}, nil
	}

	host := strings.TrimPrefix(proxyURL, "socks5://")
	dialer, err := proxy.SOCKS5("tcp", host, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("creating SOCKS5 dialer for DNS: %w", err)
	}
	ctxDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer does not implement ContextDialer")
	}

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, address string) (net.Conn, error) {
			return ctxDialer.DialContext(ctx, "tcp", address)
		},
	}, nil
}

func allProxy() string {
	if v := os.Getenv("ALL_PROXY"); v != "" {
		return v
	}
	return os.Getenv("all_proxy")
}
