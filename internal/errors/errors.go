// Package errors defines the gateway error taxonomy. Every failure that
// crosses the gateway boundary carries a Kind so callers can branch on the
// class of failure instead of matching error strings.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// KindConfiguration covers unregistered API names and invalid
	// parameters. Never retried.
	KindConfiguration Kind = "configuration"

	// KindRateLimited covers upstream 429 responses.
	KindRateLimited Kind = "rate_limited"

	// KindTransport covers connection, DNS, and TLS failures.
	KindTransport Kind = "transport"

	// KindTimeout covers deadline-exceeded failures.
	KindTimeout Kind = "timeout"

	// KindCanceled covers caller-initiated cancellation. Never retried.
	KindCanceled Kind = "canceled"

	// KindUpstream covers non-2xx, non-429 responses.
	KindUpstream Kind = "upstream"

	// KindCacheWrite covers cache persistence failures. Non-fatal.
	KindCacheWrite Kind = "cache_write"
)

// Error is a classified gateway error.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a classified error without a wrapped cause.
func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewConfiguration reports a configuration problem (no retry).
func NewConfiguration(op string, format string, args ...any) *Error {
	return New(KindConfiguration, op, format, args...)
}

// NewUpstream reports a non-2xx, non-429 response.
func NewUpstream(op string, statusCode int) *Error {
	return &Error{
		Kind:       KindUpstream,
		Op:         op,
		StatusCode: statusCode,
		Err:        fmt.Errorf("unexpected status %d", statusCode),
	}
}

// NewRateLimited reports an upstream 429.
func NewRateLimited(op string) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Op:         op,
		StatusCode: http.StatusTooManyRequests,
		Err:        errors.New("upstream rate limit exceeded"),
	}
}

// KindOf extracts the Kind from an error chain, defaulting to KindTransport
// for unclassified transport-level failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	return ClassifyTransport(err)
}

// ClassifyTransport distinguishes caller cancellation and timeouts from
// other transport failures.
func ClassifyTransport(err error) Kind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransport
}

// Retryable reports whether a failure of this kind participates in the
// shared retry budget. Configuration and cache-write failures never retry.
func Retryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindTransport, KindTimeout, KindUpstream:
		return true
	default:
		return false
	}
}

// StatusClientClosedRequest reports a request abandoned by the caller
// before a response was produced (nginx's non-standard 499).
const StatusClientClosedRequest = 499

// HTTPStatus maps a Kind to the status code the serve mode reports.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindConfiguration:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	case KindTransport, KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
