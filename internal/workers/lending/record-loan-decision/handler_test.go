package recordloandecision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/decisions"
	"loan-approval/internal/features"
	"loan-approval/internal/intake"
)

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := features.DefaultSchema()
	require.NoError(t, err)
	parser, err := intake.NewPayloadParser(schema)
	require.NoError(t, err)

	log := newTestLogger(t)
	return NewHandler(DefaultConfig(), decisions.NewPostgresStore(db, log), parser, log), mock
}

func createTestInput() *Input {
	applicant, _ := json.Marshal(map[string]interface{}{
		"loanAmount":              10000,
		"ficoScore":               700,
		"monthlyIncome":           5000,
		"monthlyHousingPayment":   1500,
		"everBankruptOrForeclose": false,
		"reason":                  "home_improvement",
		"employmentStatus":        "full_time",
		"employmentSector":        "information_technology",
		"lender":                  "B",
	})
	return &Input{
		DecisionID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
		ApplicationID:        "APP-2024-0001",
		Applicant:            applicant,
		Approved:             true,
		Verdict:              "approved",
		HousingToIncomeRatio: 0.3,
		FeatureVector:        map[string]float64{"Lender_B": 1, "FICO_score": 700},
		ModelVersion:         "example-logreg-1",
		SchemaVersion:        "1.0.0",
		EvaluatedAt:          "2024-05-01T12:00:00Z",
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	h, mock := createTestHandler(t)
	input := createTestInput()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(input.DecisionID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO loan_decisions").
		WithArgs(input.DecisionID, "APP-2024-0001", true, "approved", 0.3,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "example-logreg-1", "1.0.0", "worker",
			time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input.DecisionID, output.DecisionID)
	assert.True(t, output.Recorded)
	assert.NotEmpty(t, output.RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Denied(t *testing.T) {
	h, mock := createTestHandler(t)
	input := createTestInput()
	input.Approved = false
	input.Verdict = "not approved"

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(input.DecisionID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO loan_decisions").
		WithArgs(input.DecisionID, "APP-2024-0001", false, "not approved", 0.3,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.Recorded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DuplicateDecision(t *testing.T) {
	h, mock := createTestHandler(t)
	input := createTestInput()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(input.DecisionID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	output, err := h.Execute(context.Background(), input)
	assert.Nil(t, output)
	require.Error(t, err)

	bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
	assert.Equal(t, "DUPLICATE_DECISION", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DatabaseFailureIsRetryable(t *testing.T) {
	h, mock := createTestHandler(t)
	input := createTestInput()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(input.DecisionID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO loan_decisions").
		WillReturnError(errors.New("connection timeout"))

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)

	bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
	assert.Equal(t, "DECISION_STORE_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		code   apperrors.ErrorCode
	}{
		{"missing decision id", func(in *Input) { in.DecisionID = "" }, apperrors.ErrCodeInvalidApplicantInput},
		{"decision id not a uuid", func(in *Input) { in.DecisionID = "dec-1" }, apperrors.ErrCodeInvalidApplicantInput},
		{"unknown verdict", func(in *Input) { in.Verdict = "maybe" }, apperrors.ErrCodeInvalidApplicantInput},
		{"verdict contradicts approved", func(in *Input) { in.Verdict = "not approved" }, apperrors.ErrCodeInvalidApplicantInput},
		{"denied with approved verdict", func(in *Input) { in.Approved = false }, apperrors.ErrCodeInvalidApplicantInput},
		{"missing applicant", func(in *Input) { in.Applicant = nil }, apperrors.ErrCodeInvalidApplicantInput},
		{"bad timestamp", func(in *Input) { in.EvaluatedAt = "yesterday" }, apperrors.ErrCodeInvalidApplicantInput},
		{"unknown lender", func(in *Input) {
			in.Applicant = json.RawMessage(`{"loanAmount":1,"ficoScore":700,"monthlyIncome":1,"monthlyHousingPayment":0,` +
				`"everBankruptOrForeclose":false,"reason":"other","employmentStatus":"full_time",` +
				`"employmentSector":"energy","lender":"D"}`)
		}, apperrors.ErrCodeUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t)
			input := createTestInput()
			tt.mutate(input)

			_, err := h.Execute(context.Background(), input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code))
			assert.Equal(t, 0, apperrors.ConvertToBPMNError(apperrors.Normalize(err)).Retries)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
