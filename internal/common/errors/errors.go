package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidApplicantInput ErrorCode = "INVALID_APPLICANT_INPUT"
	ErrCodeUnknownCategory       ErrorCode = "UNKNOWN_CATEGORY"

	ErrCodeSchemaMismatch   ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeModelLoadFailed  ErrorCode = "MODEL_LOAD_FAILED"
	ErrCodePredictionFailed ErrorCode = "PREDICTION_FAILED"

	ErrCodeDecisionStoreFailed ErrorCode = "DECISION_STORE_FAILED"
	ErrCodeDuplicateDecision   ErrorCode = "DUPLICATE_DECISION"
	ErrCodeDecisionNotFound    ErrorCode = "DECISION_NOT_FOUND"
	ErrCodeCacheUnavailable    ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func NewInvalidApplicantInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidApplicantInput,
		Message:   "Applicant input failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownCategoryError(attribute, value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCategory,
		Message:   "Unknown categorical value",
		Details:   fmt.Sprintf("attribute: %s, value: %q", attribute, value),
		Retryable: false,
		Metadata: map[string]interface{}{
			"attribute": attribute,
			"value":     value,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewSchemaMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "Feature schema does not match the expected layout",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewModelLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelLoadFailed,
		Message:   "Classifier model could not be loaded",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPredictionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionFailed,
		Message:   "Classifier prediction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDecisionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecisionStoreFailed,
		Message:   "Decision could not be persisted",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateDecisionError(decisionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateDecision,
		Message:   "Decision already recorded",
		Details:   fmt.Sprintf("decisionId: %s", decisionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDecisionNotFoundError(decisionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecisionNotFound,
		Message:   "Decision not found",
		Details:   fmt.Sprintf("decisionId: %s", decisionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Verdict cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidApplicantInput: "INVALID_APPLICANT_INPUT",
	ErrCodeUnknownCategory:       "UNKNOWN_CATEGORY",
	ErrCodeSchemaMismatch:        "SCHEMA_MISMATCH",
	ErrCodeModelLoadFailed:       "MODEL_LOAD_FAILED",
	ErrCodePredictionFailed:      "PREDICTION_FAILED",
	ErrCodeDecisionStoreFailed:   "DECISION_STORE_FAILED",
	ErrCodeDuplicateDecision:     "DUPLICATE_DECISION",
	ErrCodeDecisionNotFound:      "DECISION_NOT_FOUND",
	ErrCodeCacheUnavailable:      "CACHE_UNAVAILABLE",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDecisionStoreFailed,
		ErrCodePredictionFailed:
		return 3

	case ErrCodeCacheUnavailable:
		return 1

	default:
		return 0 // business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "CATEGORY"):
		return "VALIDATION"
	case strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "PREDICTION") || strings.Contains(codeStr, "SCHEMA"):
		return "MODEL"
	case strings.Contains(codeStr, "DECISION"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidApplicantInput, ErrCodeUnknownCategory:
		return http.StatusBadRequest
	case ErrCodeDuplicateDecision:
		return http.StatusConflict
	case ErrCodeDecisionNotFound:
		return http.StatusNotFound
	case ErrCodeCacheUnavailable, ErrCodeDecisionStoreFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}
