package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-approval/internal/classifier"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/features"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
)

// writeArtifact stores a linear model whose outcome is fixed by the intercept.
func writeArtifact(t *testing.T, intercept float64, names []string) string {
	t.Helper()
	if names == nil {
		schema, err := features.DefaultSchema()
		require.NoError(t, err)
		names = schema.Names
	}
	data, err := json.Marshal(classifier.LinearArtifact{
		Version:      "cli-test",
		Features:     names,
		Coefficients: make([]float64, len(names)),
		Intercept:    intercept,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluate_Approved(t *testing.T) {
	model := writeArtifact(t, 5, nil)

	out, err := run(t, "evaluate", "--model", model,
		"--loan-amount", "50000", "--fico", "720", "--income", "6000", "--housing", "1800",
		"--reason", "home_improvement", "--employment-sector", "information_technology", "--lender", "B")
	require.NoError(t, err)

	assert.Contains(t, out, "Housing-to-income ratio: 0.30")
	assert.Contains(t, out, classifier.MessageApproved)
}

func TestEvaluate_Denied(t *testing.T) {
	model := writeArtifact(t, -5, nil)

	out, err := run(t, "evaluate", "--model", model, "--bankrupt")
	require.NoError(t, err)
	assert.Contains(t, out, classifier.MessageDenied)
}

func TestEvaluate_JSONOutput(t *testing.T) {
	model := writeArtifact(t, 5, nil)

	out, err := run(t, "evaluate", "--model", model, "-o", "json")
	require.NoError(t, err)

	var result evaluation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Approved)
	assert.Equal(t, models.ChannelCLI, result.Channel)
	assert.Equal(t, "cli-test", result.ModelVersion)
	assert.Len(t, result.Features, 21)
	assert.InDelta(t, 0.3, result.HousingToIncomeRatio, 1e-9)
}

func TestEvaluate_Rejections(t *testing.T) {
	model := writeArtifact(t, 5, nil)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown reason", []string{"--reason", "vacation"}},
		{"unknown lender", []string{"--lender", "D"}},
		{"fico out of range", []string{"--fico", "900"}},
		{"zero income", []string{"--income", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"evaluate", "--model", model}, tt.args...)
			out, err := run(t, args...)
			assert.Error(t, err)
			assert.NotContains(t, out, "approved")
		})
	}
}

func TestEvaluate_MissingModel(t *testing.T) {
	_, err := run(t, "evaluate", "--model", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)

	assert.Contains(t, out, "(21 features)")
	assert.Contains(t, out, " 0  Granted_Loan_Amount")
	assert.Contains(t, out, "20  Lender_C")
	assert.Contains(t, out, "baseline Lender = A")
	assert.NotContains(t, out, "Reason_debt_consolidation")
}

func TestSchemaCheck(t *testing.T) {
	model := writeArtifact(t, 5, nil)

	out, err := run(t, "schema", "check", "--model", model)
	require.NoError(t, err)
	assert.Contains(t, out, "OK (21 features)")
	assert.Contains(t, out, "model cli-test: OK")
}

func TestSchemaCheck_ModelMismatch(t *testing.T) {
	schema, err := features.DefaultSchema()
	require.NoError(t, err)
	names := append([]string(nil), schema.Names...)
	names[19], names[20] = names[20], names[19]
	model := writeArtifact(t, 5, names)

	_, err = run(t, "schema", "check", "--model", model)
	assert.Error(t, err)
}

func TestSchemaCheck_MissingFile(t *testing.T) {
	model := writeArtifact(t, 5, nil)

	_, err := run(t, "schema", "check", "--model", model, "--file", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "loan-cli version: unknown\n", out)
}

type scriptedAsker struct {
	selects map[string]string
	numbers map[string]float64
}

func (s scriptedAsker) Select(f intake.Field) (string, error) {
	if v, ok := s.selects[f.Name]; ok {
		return v, nil
	}
	return f.Default.(string), nil
}

func (s scriptedAsker) Number(f intake.Field) (float64, error) {
	if v, ok := s.numbers[f.Name]; ok {
		return v, nil
	}
	switch d := f.Default.(type) {
	case int:
		return float64(d), nil
	default:
		return d.(float64), nil
	}
}

func TestCollect(t *testing.T) {
	schema, err := features.DefaultSchema()
	require.NoError(t, err)
	labels := intake.NewLabels(schema)

	reasonLabel, ok := labels.Label(models.FieldReason, string(models.ReasonHomeImprovement))
	require.True(t, ok)
	lenderLabel, ok := labels.Label(models.FieldLender, string(models.LenderC))
	require.True(t, ok)

	values, err := collect(intake.FormDefinition(schema), scriptedAsker{
		selects: map[string]string{
			models.FieldReason:                  reasonLabel,
			models.FieldLender:                  lenderLabel,
			models.FieldEverBankruptOrForeclose: intake.BankruptYes,
		},
		numbers: map[string]float64{
			models.FieldMonthlyIncome:         4000,
			models.FieldMonthlyHousingPayment: 1000,
		},
	})
	require.NoError(t, err)

	record, err := values.Record(labels)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonHomeImprovement, record.Reason)
	assert.Equal(t, models.LenderC, record.Lender)
	assert.True(t, record.EverBankruptOrForeclose)
	assert.Equal(t, 700, record.FICOScore)
	assert.Equal(t, 10_000.0, record.LoanAmount)
	assert.Equal(t, 4000.0, record.MonthlyIncome)
	assert.Equal(t, 1000.0, record.MonthlyHousingPayment)
}

func TestNumberValidator(t *testing.T) {
	schema, err := features.DefaultSchema()
	require.NoError(t, err)
	fico, ok := intake.FormDefinition(schema).Field(models.FieldFICOScore)
	require.True(t, ok)

	validate := numberValidator(fico)
	assert.NoError(t, validate("700"))
	assert.NoError(t, validate("300"))
	assert.Error(t, validate("299"))
	assert.Error(t, validate("851"))
	assert.Error(t, validate("seven hundred"))
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 1, indexOf([]string{"No", "Yes"}, "Yes"))
	assert.Equal(t, 0, indexOf([]string{"No", "Yes"}, "Maybe"))
}
