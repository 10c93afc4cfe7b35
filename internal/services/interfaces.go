// Package services defines shared interfaces used across service implementations.
package services

import (
	"context"
	"net"
)

// MXResolver abstracts the MX lookup backends (system resolver, raw DNS, DoH).
// *net.Resolver satisfies this interface directly.
//
// Implementations must report a non-existent domain as a *net.DNSError with
// IsNotFound set, and must return ctx.Err() (possibly wrapped) when ctx ends
// before an answer arrives.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}
