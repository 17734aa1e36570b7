package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeTenantRequired, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvoiceIncomplete, http.StatusUnprocessableEntity},
		{ErrCodeMalformedRateLine, http.StatusUnprocessableEntity},
		{ErrCodeRateAlreadyAttached, http.StatusUnprocessableEntity},
		{ErrCodeInvalidInvoiceNumber, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		// unmapped field validation codes
		{"ERR_INVALID_DATE", http.StatusBadRequest},
		{"ERR_INVALID_VAT_RATE", http.StatusBadRequest},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"DUPLICATE_REQUEST", ErrCodeDuplicateRequest},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"INVOICE_INCOMPLETE", ErrCodeInvoiceIncomplete},
		{"MALFORMED_RATE_LINE", ErrCodeMalformedRateLine},
		{"INVALID_INVOICE_NUMBER", ErrCodeInvalidInvoiceNumber},
		{"INVALID_CURRENCY_CODE", "ERR_INVALID_CURRENCY_CODE"},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"ERR_INVALID_DATE", "ERR_INVALID_DATE"},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNormalizeErrorCode_Idempotent(t *testing.T) {
	for _, code := range []string{"INVALID_CURRENCY_CODE", "INVALID_JSON", "INVALID_DATE", "NOT_FOUND", ErrCodeInvalidJSON} {
		t.Run(code, func(t *testing.T) {
			once := NormalizeErrorCode(code)
			assert.Equal(t, once, NormalizeErrorCode(once))
			assert.NotContains(t, once, "ERR_ERR_")
		})
	}
}

func TestDomainErrorCodeMapping_TargetsAreMapped(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		t.Run(domainCode, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[apiCode]
			assert.True(t, ok, "%s maps to %s which has no HTTP status", domainCode, apiCode)
			assert.Contains(t, apiCode, "ERR_")
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Invoice not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "rate_minor_units", Message: "must be at least 0"},
		{Field: "currency_id", Message: "is required"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "rate_minor_units", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.Before(before))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
