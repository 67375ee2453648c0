package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailureKind is a coarse category for a failed completion call.
type FailureKind string

const (
	KindUnknown       FailureKind = "unknown"
	KindRateLimit     FailureKind = "rate_limit"
	KindServer        FailureKind = "server"
	KindAuth          FailureKind = "auth"
	KindNetwork       FailureKind = "network"
	KindEmptyResponse FailureKind = "empty_response"
	KindCanceled      FailureKind = "canceled"
)

// ErrEmptyResponse is returned when the API answers without any completion text.
var ErrEmptyResponse = errors.New("empty completion response")

// CallError wraps a failed completion call.
type CallError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s completion (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func newCallError(provider string, err error) *CallError {
	return &CallError{Provider: provider, Kind: Classify(err), Err: err}
}

// KindOf reports the FailureKind carried by err, classifying it if it is not a *CallError.
func KindOf(err error) FailureKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Classify(err)
}

// Classify maps an SDK or transport error to a FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case isRateLimitError(err):
		return KindRateLimit
	case isAuthError(err):
		return KindAuth
	case isServerError(err):
		return KindServer
	case isNetworkError(err):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func isRateLimitError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests")
}

func isAuthError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "invalid x-api-key") ||
		strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "unauthorized")
}

func isServerError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error") ||
		strings.Contains(errStr, "overloaded")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection reset")
}
