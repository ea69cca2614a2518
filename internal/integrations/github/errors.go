package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// AuthError indicates invalid or expired tracker credentials.
type AuthError struct {
	err error
}

func (e *AuthError) Error() string { return "github: authentication failed" }
func (e *AuthError) Unwrap() error { return e.err }

// RateLimitError indicates throttling; the caller may retry after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
	err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limited (retry after %s)", e.RetryAfter)
}
func (e *RateLimitError) Unwrap() error { return e.err }

// ValidationError indicates the repository rejected the payload.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string { return "github: request rejected as invalid" }
func (e *ValidationError) Unwrap() error { return e.err }

// classifyErr maps go-github errors onto the client's error taxonomy.
// Error messages deliberately omit the raw API payload; the wrapped error
// keeps the detail for logs.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{RetryAfter: time.Until(rateErr.Rate.Reset.Time), err: err}
	}

	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retry := time.Minute
		if abuseErr.RetryAfter != nil {
			retry = *abuseErr.RetryAfter
		}
		return &RateLimitError{RetryAfter: retry, err: err}
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return &AuthError{err: err}
		case http.StatusForbidden:
			return &AuthError{err: err}
		case http.StatusUnprocessableEntity:
			return &ValidationError{err: err}
		}
	}

	return err
}

// isTransient reports whether err looks like a one-off network failure
// rather than an API-level rejection.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Response != nil && respErr.Response.StatusCode >= 500
	}
	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}
	// Anything that never reached the API (DNS, connection reset, timeout).
	return true
}
