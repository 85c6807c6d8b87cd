package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/validation"
	"loan-approval/internal/features"
	"loan-approval/internal/models"
)

// Payload JSON keys. They match the ApplicantRecord json tags.
const (
	keyLoanAmount            = "loanAmount"
	keyFICOScore             = "ficoScore"
	keyMonthlyIncome         = "monthlyIncome"
	keyMonthlyHousingPayment = "monthlyHousingPayment"
	keyBankrupt              = "everBankruptOrForeclose"
	keyReason                = "reason"
	keyEmploymentStatus      = "employmentStatus"
	keyEmploymentSector      = "employmentSector"
	keyLender                = "lender"
)

var categoricalKeys = map[string]string{
	keyReason:           models.FieldReason,
	keyEmploymentStatus: models.FieldEmploymentStatus,
	keyEmploymentSector: models.FieldEmploymentSector,
	keyLender:           models.FieldLender,
}

// PayloadParser validates applicant JSON against a JSON Schema built from the
// record bounds and the feature schema's category codes. Out-of-range input
// is rejected, never clamped.
type PayloadParser struct {
	validator *validation.Validator
	schemaDoc []byte
}

func NewPayloadParser(schema *features.Schema) (*PayloadParser, error) {
	doc, err := json.Marshal(PayloadSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload schema: %w", err)
	}
	v, err := validation.NewValidator(doc)
	if err != nil {
		return nil, err
	}
	return &PayloadParser{validator: v, schemaDoc: doc}, nil
}

// SchemaJSON returns the JSON Schema the parser enforces.
func (p *PayloadParser) SchemaJSON() []byte { return p.schemaDoc }

// PayloadSchema describes a valid applicant document.
func PayloadSchema(schema *features.Schema) map[string]interface{} {
	number := func(b models.Bounds, typ string) map[string]interface{} {
		return map[string]interface{}{"type": typ, "minimum": b.Min, "maximum": b.Max}
	}

	props := map[string]interface{}{
		keyLoanAmount:            number(models.LoanAmountBounds, "number"),
		keyFICOScore:             number(models.FICOScoreBounds, "integer"),
		keyMonthlyIncome:         number(models.MonthlyIncomeBounds, "number"),
		keyMonthlyHousingPayment: number(models.HousingPaymentBounds, "number"),
		keyBankrupt: map[string]interface{}{
			"type":    []string{"boolean", "integer"},
			"minimum": 0,
			"maximum": 1,
		},
	}
	for key, field := range categoricalKeys {
		if cat, ok := schema.Category(field); ok {
			props[key] = map[string]interface{}{"type": "string", "enum": cat.Codes()}
		}
	}

	return map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			keyLoanAmount, keyFICOScore, keyMonthlyIncome, keyMonthlyHousingPayment,
			keyBankrupt, keyReason, keyEmploymentStatus, keyEmploymentSector, keyLender,
		},
		"properties": props,
	}
}

// payload decodes the FICO score from any whole JSON number (700 or 700.0)
// and the bankruptcy flag from a boolean or 0/1.
type payload struct {
	models.ApplicantRecord
	FICOScore               wholeNumber `json:"ficoScore"`
	EverBankruptOrForeclose flag        `json:"everBankruptOrForeclose"`
}

type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("%s is not a whole number", data)
	}
	*n = wholeNumber(f)
	return nil
}

type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}

	var n wholeNumber
	if err := n.UnmarshalJSON(data); err != nil || (n != 0 && n != 1) {
		return fmt.Errorf("invalid flag %s", data)
	}
	*f = n == 1
	return nil
}

// Parse validates and decodes one applicant document.
func (p *PayloadParser) Parse(data []byte) (models.ApplicantRecord, error) {
	result, err := p.validator.ValidateDocument(data)
	if err != nil {
		return models.ApplicantRecord{}, apperrors.NewInvalidApplicantInputError(err.Error())
	}
	if !result.Valid {
		return models.ApplicantRecord{}, validationError(data, result)
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return models.ApplicantRecord{}, apperrors.NewInvalidApplicantInputError(err.Error())
	}
	record := pl.ApplicantRecord
	record.FICOScore = int(pl.FICOScore)
	record.EverBankruptOrForeclose = bool(pl.EverBankruptOrForeclose)

	if err := record.Validate(); err != nil {
		return models.ApplicantRecord{}, err
	}
	return record, nil
}

// ParseValue validates an already-decoded document such as a job variable.
func (p *PayloadParser) ParseValue(v interface{}) (models.ApplicantRecord, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return models.ApplicantRecord{}, apperrors.NewInvalidApplicantInputError(err.Error())
	}
	return p.Parse(data)
}

// validationError reports a bad category code as UNKNOWN_CATEGORY and
// everything else as INVALID_APPLICANT_INPUT with per-field errors.
func validationError(data []byte, result *validation.ValidationResult) error {
	for _, ve := range result.Errors {
		field, ok := categoricalKeys[ve.Field]
		if ok && ve.Code == "INVALID_ENUM_VALUE" {
			return apperrors.NewUnknownCategoryError(field, rawString(data, ve.Field))
		}
	}

	return apperrors.NewInvalidApplicantInputError(strings.Join(result.GetErrorMessages(), "; ")).
		WithMetadata("errors", result.Errors)
}

func rawString(data []byte, key string) string {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return fmt.Sprint(m[key])
}
