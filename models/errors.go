package models

import (
	"errors"
	"fmt"
)

// Error codes used across the library. Callers classify errors by code
// (see Code) rather than by message text.
const (
	ErrCodeNodeNotFound    = "NODE_NOT_FOUND"
	ErrCodeTableNotFound   = "TABLE_NOT_FOUND"
	ErrCodeMalformedMarkup = "MALFORMED_MARKUP"
	ErrCodeNavigation      = "NAVIGATION_FAILED"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeSessionNotOpen  = "SESSION_NOT_OPEN"
	ErrCodeRetryExhausted  = "RETRY_EXHAUSTED"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeInvalidInput    = "INVALID_INPUT"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// Code extracts the error code from err, walking the wrap chain.
// It returns "" for nil errors and for errors without a ScrapeError in the chain.
func Code(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}
