// Package llm provides a unified client for the model providers the
// evaluation pipeline can call (OpenAI, Anthropic, Google), with
// middleware support for retries, metrics, and tracing. Provider-specific
// failures are normalized into a structured error taxonomy so the retry
// layer can distinguish transient faults from fatal ones.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Common errors returned by the client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates that the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty response from API")
)

// ErrorType categorizes an error returned by a provider. The retry layer
// keys off this classification: rate limits, server errors, network
// faults, and timeouts are transient; everything else is fatal.
type ErrorType int

const (
	// ErrorTypeUnknown indicates an error of an undetermined category.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication indicates an invalid or missing credential.
	ErrorTypeAuthentication
	// ErrorTypeRateLimit indicates the provider's rate limit was exceeded.
	ErrorTypeRateLimit
	// ErrorTypeBadRequest indicates a malformed request or invalid parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates a missing resource, such as an unknown model.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a problem on the provider's end.
	ErrorTypeServerError
	// ErrorTypeContentPolicy indicates the request was blocked by policy.
	ErrorTypeContentPolicy
	// ErrorTypeNetwork indicates a client-side network problem.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request timed out.
	ErrorTypeTimeout
)

// ProviderError normalizes provider-specific failures into a common shape
// carrying the classified type, originating provider, and HTTP status.
type ProviderError struct {
	Type         ErrorType
	Provider     string
	StatusCode   int
	Message      string
	WrappedError error
}

// Error satisfies the error interface.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.typeString(); s != "" {
		base += fmt.Sprintf(" [%s]", s)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether a request failing with this error is worth
// retrying: rate limits, server-side errors, network faults, timeouts.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func (e *ProviderError) typeString() string {
	switch e.Type {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// NewProviderError builds a ProviderError from provider-specific details.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:         errType,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// ErrorClassifier standardizes provider-specific errors into
// ProviderError instances based on HTTP status codes and context state.
type ErrorClassifier struct {
	// Provider names the provider this classifier works for.
	Provider string
}

// ClassifyHTTPError maps an HTTP status code onto the error taxonomy.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrorTypeAuthentication
		if message == "" {
			message = fmt.Sprintf("%s authentication failed", ec.Provider)
		}
	case statusCode == 429:
		errType = ErrorTypeRateLimit
		if message == "" {
			message = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
		}
	case statusCode == 404:
		errType = ErrorTypeNotFound
	case statusCode >= 500:
		errType = ErrorTypeServerError
	case statusCode >= 400:
		errType = ErrorTypeBadRequest
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError maps context cancellation and deadline errors.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// IsTransient reports whether err represents a failure that is likely to
// succeed on retry. Unclassified errors are treated as fatal.
func IsTransient(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}
	return false
}

// unsupportedParamPattern matches the provider wording for a rejected
// request field. This substring contract with the provider API is fragile;
// keeping the match here gives it exactly one call site to replace if the
// providers ever expose a structured code for it.
var unsupportedParamPattern = regexp.MustCompile(`[Uu]nsupported parameter: '([^']+)'`)

// UnsupportedParam reports the name of the request field the provider
// rejected, if err is a parameter-rejection error.
func UnsupportedParam(err error) (string, bool) {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return "", false
	}
	if perr.Type != ErrorTypeBadRequest {
		return "", false
	}
	m := unsupportedParamPattern.FindStringSubmatch(perr.Message)
	if m == nil {
		return "", false
	}
	return m[1], true
}
