package services

import (
	"context"

	"github.com/tbckr/mailcheck/internal/apperr"
)

// ErrInvalidInput is re-exported from apperr so callers of a service need only this package.
var ErrInvalidInput = apperr.ErrInvalidInput

// ErrRequestFailed is re-exported from apperr.
var ErrRequestFailed = apperr.ErrRequestFailed

// Service is the contract every mailcheck lookup service implements.
// R is the concrete result type produced for one input.
type Service[R any] interface {
	Name() string
	Run(ctx context.Context, input string) (R, error)
}
