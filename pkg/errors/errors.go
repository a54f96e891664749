package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur during a capture run
type ErrorType string

const (
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypePageClosed ErrorType = "page_closed"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeCapture    ErrorType = "capture"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a typed error with an optional underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so sentinels can be compared with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

var (
	// ErrLoginTimeout is fatal: the operator did not finish logging in within the window.
	ErrLoginTimeout = New(ErrorTypeTimeout, "login timed out")

	// ErrPageClosed signals that the browser, context or tab went away underneath us.
	ErrPageClosed = &Error{Type: ErrorTypePageClosed}

	// ErrNoViewport means no clip region can be derived for the fallback screenshot.
	ErrNoViewport = New(ErrorTypeCapture, "viewport size unavailable")

	// ErrInterstitialLoop ends a run whose confirmation overlay keeps coming back.
	ErrInterstitialLoop = New(ErrorTypeCapture, "interstitial dismissal limit reached")
)

// TypeOf returns the ErrorType carried anywhere in err's chain
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsPageClosed reports whether err means the page or browser was closed
func IsPageClosed(err error) bool {
	return TypeOf(err) == ErrorTypePageClosed
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNavigation:
		return true
	case ErrorTypeTimeout, ErrorTypePageClosed, ErrorTypeConfig, ErrorTypeCapture, ErrorTypeStorage:
		return false
	default:
		return false
	}
}
