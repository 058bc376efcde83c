package pager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrMalformed marks a page result that is missing required fields or
	// carries out-of-range pagination metadata.
	ErrMalformed = errors.New("malformed page result")

	// ErrStale is returned by Reset and LoadMore when their fetch completed
	// after a newer Reset. The completion was discarded.
	ErrStale = errors.New("fetch superseded by reset")
)

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	// KindUnknown is used for errors no classifier recognises.
	KindUnknown ErrorKind = iota

	// KindNetwork represents transport failures (timeout, refused, DNS).
	KindNetwork

	// KindServer represents a non-success response status.
	KindServer

	// KindMalformed represents a response body missing required fields.
	KindMalformed
)

// String returns the metric/log label of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Description returns a short user-presentable text for the kind.
func (k ErrorKind) Description() string {
	switch k {
	case KindNetwork:
		return "The service could not be reached"
	case KindServer:
		return "The service returned an error"
	case KindMalformed:
		return "The service returned an unexpected response"
	default:
		return "Failed to load data"
	}
}

// KindReporter may be implemented by transport errors to classify themselves.
type KindReporter interface {
	FetchErrorKind() ErrorKind
}

// Classify maps an arbitrary fetch error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var reporter KindReporter
	if errors.As(err, &reporter) {
		return reporter.FetchErrorKind()
	}

	if errors.Is(err, ErrMalformed) {
		return KindMalformed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}

	return KindUnknown
}

// FetchError is recorded as the controller's LastError when a fetch fails.
type FetchError struct {
	Kind ErrorKind
	Page int
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %s error: %v", e.Page, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Description returns a user-presentable text for the failure.
func (e *FetchError) Description() string {
	return e.Kind.Description()
}

func newFetchError(page int, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{
		Kind: Classify(err),
		Page: page,
		Err:  err,
	}
}
