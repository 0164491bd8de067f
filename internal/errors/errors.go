// Package errors defines the coded error values that the resolver hands back
// across the async boundary instead of failing a request.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode classifies a resolver failure.
type ErrorCode string

const (
	// Input errors
	ErrorImageUnreadable ErrorCode = "IMAGE_UNREADABLE"
	ErrorOCRFailed       ErrorCode = "OCR_FAILED"
	ErrorOCRNotEnabled   ErrorCode = "OCR_NOT_ENABLED"
	ErrorCorpusInvalid   ErrorCode = "CORPUS_INVALID"
	ErrorNoBook          ErrorCode = "NO_BOOK"

	// Execution and delivery errors
	ErrorResolverPanic  ErrorCode = "RESOLVER_PANIC"
	ErrorDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

// ResolveError is a structured resolver error.
type ResolveError struct {
	Code      ErrorCode
	Message   string
	RequestID string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ResolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// Is matches another *ResolveError with the same code, so callers can test
// with errors.Is(err, &ResolveError{Code: ErrorNoBook}).
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithRequest returns a copy of e tagged with requestID.
func (e *ResolveError) WithRequest(requestID string) *ResolveError {
	c := *e
	c.RequestID = requestID
	return &c
}

// CodeOf returns the code of err if it is a *ResolveError, else "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if re, ok := err.(*ResolveError); ok {
			return re.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Factory functions for common errors

func NewImageUnreadableError(path string, cause error) *ResolveError {
	return &ResolveError{
		Code:      ErrorImageUnreadable,
		Message:   fmt.Sprintf("Cannot read image: %s", path),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

func NewOCRFailedError(engine string, cause error) *ResolveError {
	return &ResolveError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed in engine: %s", engine),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"engine": engine,
		},
		Cause: cause,
	}
}

func NewOCRNotEnabledError(cause error) *ResolveError {
	return &ResolveError{
		Code:      ErrorOCRNotEnabled,
		Message:   "OCR support is not compiled in",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewCorpusInvalidError(reason string, page int) *ResolveError {
	return &ResolveError{
		Code:      ErrorCorpusInvalid,
		Message:   fmt.Sprintf("Invalid page corpus: %s", reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"page_index": page,
		},
	}
}

func NewNoBookError() *ResolveError {
	return &ResolveError{
		Code:      ErrorNoBook,
		Message:   "No book is open",
		Timestamp: time.Now(),
	}
}

func NewResolverPanicError(requestID string, recovered interface{}) *ResolveError {
	return &ResolveError{
		Code:      ErrorResolverPanic,
		Message:   "Resolver aborted unexpectedly",
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"panic": fmt.Sprint(recovered),
		},
	}
}

func NewDeliveryFailedError(requestID string, cause error) *ResolveError {
	return &ResolveError{
		Code:      ErrorDeliveryFailed,
		Message:   "Result could not be delivered",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts the error to key/value pairs for structured logs.
func (e *ResolveError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}
	if e.RequestID != "" {
		result["request_id"] = e.RequestID
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
