package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Tenant error codes
const (
	// ErrCodeTenantRequired is used when X-Tenant-ID is missing or malformed
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest    = "ERR_DUPLICATE_REQUEST"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvoiceIncomplete is used when a draft lacks the fields needed for computation
	ErrCodeInvoiceIncomplete = "ERR_INVOICE_INCOMPLETE"
	// ErrCodeMalformedRateLine is used when a rate line cannot be converted
	ErrCodeMalformedRateLine = "ERR_MALFORMED_RATE_LINE"
	// ErrCodeRateAlreadyAttached is used when a rate line belongs to another invoice
	ErrCodeRateAlreadyAttached = "ERR_RATE_ALREADY_ATTACHED"
)

// Input error codes
const (
	ErrCodeBadRequest           = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput         = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON          = "ERR_INVALID_JSON"
	ErrCodeInvalidInvoiceNumber = "ERR_INVALID_INVOICE_NUMBER"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeTenantRequired: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInvoiceIncomplete:   http.StatusUnprocessableEntity,
	ErrCodeMalformedRateLine:   http.StatusUnprocessableEntity,
	ErrCodeRateAlreadyAttached: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeInvalidJSON:          http.StatusBadRequest,
	ErrCodeInvalidInvoiceNumber: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unmapped domain validation codes (INVALID_*) are 400; anything else unknown is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if isInvalidFieldCode(strings.TrimPrefix(code, "ERR_")) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"DUPLICATE_REQUEST":      ErrCodeDuplicateRequest,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"INVOICE_INCOMPLETE":     ErrCodeInvoiceIncomplete,
	"MALFORMED_RATE_LINE":    ErrCodeMalformedRateLine,
	"RATE_ALREADY_ATTACHED":  ErrCodeRateAlreadyAttached,
	"INVALID_INVOICE_NUMBER": ErrCodeInvalidInvoiceNumber,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Field codes such as INVALID_DATE become ERR_INVALID_DATE; ERR_ codes pass through
// unchanged, so normalizing twice is harmless.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if isInvalidFieldCode(code) {
		return "ERR_" + code
	}
	return code
}

func isInvalidFieldCode(code string) bool {
	return strings.HasPrefix(code, "INVALID_")
}
