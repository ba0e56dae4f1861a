// Package apperror provides structured error handling for the billing core.
// All business errors must use AppError so callers can branch on Code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by failure class.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeOverAllocation = "OVER_ALLOCATION"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInvoicePaid            = "INVOICE_ALREADY_PAID"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict        = "CONFLICT"
	CodeDuplicatePeriod = "DUPLICATE_INVOICE_PERIOD"

	// Recoverable / self-healing
	CodeTransientRender = "TRANSIENT_RENDER_ERROR"
	CodeConsistency     = "CONSISTENCY_ERROR"
)

// AppError is the standard error type for the billing core.
// It implements error and carries structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field names, amounts, entity ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewOverAllocation is returned when requested allocations would exceed the
// payment amount. The overage is the amount by which the request exceeds
// what remains unapplied.
func NewOverAllocation(paymentID string, overage string) *AppError {
	return &AppError{
		Code:       CodeOverAllocation,
		Message:    "Allocation exceeds payment amount",
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"payment_id": paymentID,
			"overage":    overage,
		},
	}
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422).
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConcurrentModification creates an optimistic locking error.
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another request. Please retry.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal error (hides details from the client).
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicatePeriod is returned when a customer already has an invoice
// covering the requested billing period. Names the existing invoice number.
func NewDuplicatePeriod(customerID, invoiceNumber string) *AppError {
	return &AppError{
		Code:       CodeDuplicatePeriod,
		Message:    fmt.Sprintf("customer already has invoice %s for this period", invoiceNumber),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"customer_id":    customerID,
			"invoice_number": invoiceNumber,
		},
	}
}

// NewInvoicePaid is returned when attempting to delete a fully paid invoice.
func NewInvoicePaid(invoiceNumber string) *AppError {
	return &AppError{
		Code:       CodeInvoicePaid,
		Message:    fmt.Sprintf("invoice %s is paid and cannot be deleted", invoiceNumber),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"invoice_number": invoiceNumber},
	}
}

// NewTransientRender wraps a renderer failure that is worth retrying.
func NewTransientRender(err error) *AppError {
	return &AppError{
		Code:       CodeTransientRender,
		Message:    "Artifact rendering failed",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewConsistency reports a breakdown mismatch found while validating a
// computed outstanding amount. Callers self-heal via the fallback path.
func NewConsistency(message string) *AppError {
	return &AppError{
		Code:       CodeConsistency,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the appropriate HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error carries CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation checks if error is a validation class error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation) || hasCode(err, CodeOverAllocation) || hasCode(err, CodeInvalidInput)
}

// IsConflict checks if error is a conflict class error.
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict) || hasCode(err, CodeDuplicatePeriod) || hasCode(err, CodeInvoicePaid)
}

// IsTransientRender checks if error is a retriable render failure.
func IsTransientRender(err error) bool {
	return hasCode(err, CodeTransientRender)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
