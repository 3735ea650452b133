// Package scanerr holds the core's error kinds. Every error the scan
// pipeline surfaces to a caller is one of these — never a bare stdlib
// error leaking upstream internals, per spec.md §7.
package scanerr

import (
	"errors"
	"fmt"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

// Kind identifies one of the error classes the core surfaces. Each maps
// to an HTTP status class at the API boundary (see internal/api).
type Kind string

const (
	InvalidAddress     Kind = "InvalidAddress"     // 400
	DeployerNotFound    Kind = "DeployerNotFound"    // 404
	UpstreamRateLimited Kind = "UpstreamRateLimited" // 503
	UpstreamError       Kind = "UpstreamError"       // 503
	ScanTimeout         Kind = "ScanTimeout"         // 504
	QuotaExceeded       Kind = "QuotaExceeded"       // 402
	PaymentInvalid      Kind = "PaymentInvalid"      // 402
	NoProvidersConfigured Kind = "NoProvidersConfigured" // 503
	InternalError       Kind = "InternalError"       // 500
)

// Error is the structured error type carried through the pipeline.
type Error struct {
	Kind    Kind
	Message string
	// Payment is attached only to QuotaExceeded errors.
	Payment *models.PaymentDetails
	err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

// New constructs a bare Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an existing error as the cause of a new Error of kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), err: cause}
}

// WithPayment attaches payment details, used for QuotaExceeded 402s.
func (e *Error) WithPayment(p *models.PaymentDetails) *Error {
	e.Payment = p
	return e
}

// As reports whether err is (or wraps) a *Error and returns it.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
