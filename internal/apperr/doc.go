// Package apperr defines the shared error taxonomy for mailcheck.
// It is a leaf package with no internal imports, so low-level packages
// (resolver, doh, dnscache) can return its sentinels without creating
// import cycles. The HTTP layer maps every *Error to its status code and
// JSON error envelope.
package apperr
