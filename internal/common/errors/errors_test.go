package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      string
		retries   int
		retryable bool
	}{
		{"invalid input", NewInvalidApplicantInputError("ficoScore: must be <= 850"), "INVALID_APPLICANT_INPUT", 0, false},
		{"unknown category", NewUnknownCategoryError("lender", "D"), "UNKNOWN_CATEGORY", 0, false},
		{"prediction failed", NewPredictionFailedError(fmt.Errorf("session closed")), "PREDICTION_FAILED", 3, true},
		{"store failed", NewDecisionStoreFailedError(fmt.Errorf("connection refused")), "DECISION_STORE_FAILED", 3, true},
		{"duplicate", NewDuplicateDecisionError("d-1"), "DUPLICATE_DECISION", 0, false},
		{"cache", NewCacheUnavailableError(fmt.Errorf("timeout")), "CACHE_UNAVAILABLE", 1, true},
		{"internal", NewInternalError(fmt.Errorf("boom")), "INTERNAL_ERROR", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.code, bpmn.Code)
			assert.Equal(t, tt.retries, bpmn.Retries)
			assert.Equal(t, tt.retryable, bpmn.Retryable)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	bpmn := ConvertToBPMNError(NewUnknownCategoryError("reason", "vacation"))
	assert.Equal(t, "reason", bpmn.ErrorVariables["attribute"])
	assert.Equal(t, "vacation", bpmn.ErrorVariables["value"])

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "UNKNOWN_CATEGORY", vars["errorCode"])
}

func TestConvertToBPMNError_NonRetryableOverridesCount(t *testing.T) {
	err := NewPredictionFailedError(fmt.Errorf("bad label"))
	err.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidApplicantInput))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeUnknownCategory))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrCodeDuplicateDecision))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeDecisionNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeDecisionStoreFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodePredictionFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeSchemaMismatch))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidApplicantInput))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownCategory))
	assert.Equal(t, "MODEL", GetErrorCategory(ErrCodeSchemaMismatch))
	assert.Equal(t, "MODEL", GetErrorCategory(ErrCodePredictionFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDuplicateDecision))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestHasCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("record: %w", NewDuplicateDecisionError("d-1"))

	assert.True(t, HasCode(err, ErrCodeDuplicateDecision))
	assert.False(t, HasCode(err, ErrCodeDecisionStoreFailed))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrCodeInternal))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDuplicateDecision, stdErr.Code)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, Normalize(fmt.Errorf("boom")).Code)
	assert.Equal(t, ErrCodeUnknownCategory, Normalize(fmt.Errorf("x: %w", NewUnknownCategoryError("lender", "D"))).Code)
}

func TestRemainingRetries(t *testing.T) {
	assert.Equal(t, int32(2), remainingRetries(3, 3))
	assert.Equal(t, int32(2), remainingRetries(5, 3))
	assert.Equal(t, int32(0), remainingRetries(1, 3))
	assert.Equal(t, int32(0), remainingRetries(0, 1))
}
