package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryConflict   ErrorCategory = "conflict"
	ErrorCategoryNotFound   ErrorCategory = "not_found"
	ErrorCategoryStore      ErrorCategory = "store"
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryTimeout    ErrorCategory = "timeout"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Operation string        `json:"operation"`
	Timestamp time.Time     `json:"timestamp"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_message":    e.Message,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

func newServiceError(category ErrorCategory, operation, message string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:  category,
		Message:   message,
		Operation: operation,
		Timestamp: time.Now(),
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewValidationError reports a malformed or missing required field.
func NewValidationError(operation, message string) *ServiceError {
	return newServiceError(ErrorCategoryValidation, operation, message, false, nil)
}

// NewConflictError reports a uniqueness violation, e.g. a duplicate stock code.
func NewConflictError(operation, message string) *ServiceError {
	return newServiceError(ErrorCategoryConflict, operation, message, false, nil)
}

// NewNotFoundError reports an unknown record handle. The message is uniform
// across identifier formats and never exposes which form was attempted.
func NewNotFoundError(operation string) *ServiceError {
	return newServiceError(ErrorCategoryNotFound, operation, "record not found", false, nil)
}

// NewStoreError reports an unreachable or failing document store.
func NewStoreError(operation string, cause error) *ServiceError {
	return newServiceError(ErrorCategoryStore, operation, "document store unavailable", true, cause)
}

// NewNetworkError reports a failed outbound call to an external provider.
func NewNetworkError(operation string, cause error) *ServiceError {
	message := "upstream request failed"
	if cause != nil {
		message = cause.Error()
	}
	return newServiceError(ErrorCategoryNetwork, operation, message, true, cause)
}

// CategoryOf returns the category of an error, or empty for plain errors.
func CategoryOf(err error) ErrorCategory {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Category
	}
	return ""
}

// IsNotFound reports whether the error is a not-found outcome.
func IsNotFound(err error) bool {
	return CategoryOf(err) == ErrorCategoryNotFound
}

// IsConflict reports whether the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return CategoryOf(err) == ErrorCategoryConflict
}

// IsValidation reports whether the error is a validation failure.
func IsValidation(err error) bool {
	return CategoryOf(err) == ErrorCategoryValidation
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}

	// Default heuristics for standard errors
	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}
	return false
}

// BuildBulkErrorSummary creates a one-line summary for a bulk ingest report.
func BuildBulkErrorSummary(successCount, failedCount int, sampleErrors []string) string {
	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf("bulk upload completed with %d successes and %d failures", successCount, failedCount))

	sampleSize := len(sampleErrors)
	if sampleSize > 3 {
		sampleSize = 3
	}
	for i := 0; i < sampleSize; i++ {
		summaryBuilder.WriteString("; " + sampleErrors[i])
	}
	if failedCount > len(sampleErrors) {
		summaryBuilder.WriteString(fmt.Sprintf("; and %d additional errors", failedCount-len(sampleErrors)))
	}

	return summaryBuilder.String()
}
