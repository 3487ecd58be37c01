/**
 * Custom error types for the extraction service
 *
 * Every failure below the batch level is classified with an ErrorCode so the
 * orchestrator can turn it into a per-document error string instead of
 * failing the batch.
 */

package errs

import (
	"errors"
	"fmt"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Fetch errors
	ErrorFetchFailed ErrorCode = "FETCH_FAILED"

	// Document errors
	ErrorDocumentParse     ErrorCode = "DOCUMENT_PARSE"
	ErrorEmptyDocument     ErrorCode = "EMPTY_DOCUMENT"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FILE_EXTENSION"

	// Page errors
	ErrorPageProcessing ErrorCode = "PAGE_PROCESSING"

	// Batch errors
	ErrorUnknownBatch   ErrorCode = "UNKNOWN_BATCH"
	ErrorDuplicateBatch ErrorCode = "DUPLICATE_BATCH"
	ErrorQueueFull      ErrorCode = "QUEUE_FULL"
	ErrorInternal       ErrorCode = "INTERNAL"
)

// Error is a structured service error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two service errors by code, so callers can compare against
// sentinel instances with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Factory functions for common errors

func NewFetchError(url string, attempts int, cause error) *Error {
	return &Error{
		Code:    ErrorFetchFailed,
		Message: fmt.Sprintf("failed to download %s after %d attempts", url, attempts),
		Cause:   cause,
	}
}

func NewDocumentParseError(relativePath string, cause error) *Error {
	return &Error{
		Code:    ErrorDocumentParse,
		Message: fmt.Sprintf("failed to open document %s", relativePath),
		Cause:   cause,
	}
}

func NewPageProcessingError(page int, cause error) *Error {
	return &Error{
		Code:    ErrorPageProcessing,
		Message: fmt.Sprintf("failed to process page %d", page),
		Cause:   cause,
	}
}

func NewUnknownBatchError(batchID string) *Error {
	return &Error{
		Code:    ErrorUnknownBatch,
		Message: fmt.Sprintf("no job found for batch %s", batchID),
	}
}

func NewDuplicateBatchError(batchID string) *Error {
	return &Error{
		Code:    ErrorDuplicateBatch,
		Message: fmt.Sprintf("batch %s is already submitted", batchID),
	}
}

// CodeOf extracts the service error code, or ErrorInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorInternal
}
