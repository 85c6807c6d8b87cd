package intake

import (
	"strings"

	"golang.org/x/text/cases"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/features"
	"loan-approval/internal/models"
)

// Labels maps human-readable dropdown labels to category codes.
// Matching ignores case and surrounding whitespace.
type Labels struct {
	byField map[string]map[string]string
	toLabel map[string]map[string]string
}

func NewLabels(schema *features.Schema) *Labels {
	fold := cases.Fold()
	l := &Labels{
		byField: make(map[string]map[string]string, len(schema.Categories)),
		toLabel: make(map[string]map[string]string, len(schema.Categories)),
	}
	for _, cat := range schema.Categories {
		codes := make(map[string]string, len(cat.Values))
		labels := make(map[string]string, len(cat.Values))
		for _, v := range cat.Values {
			codes[fold.String(strings.TrimSpace(v.Label))] = v.Code
			labels[v.Code] = v.Label
		}
		l.byField[cat.Field] = codes
		l.toLabel[cat.Field] = labels
	}
	return l
}

// Code resolves a label for a categorical field. An unknown label is an
// UNKNOWN_CATEGORY error.
func (l *Labels) Code(field, label string) (string, error) {
	codes, ok := l.byField[field]
	if !ok {
		return "", apperrors.NewUnknownCategoryError(field, label)
	}
	code, ok := codes[cases.Fold().String(strings.TrimSpace(label))]
	if !ok {
		return "", apperrors.NewUnknownCategoryError(field, label)
	}
	return code, nil
}

// Label is the inverse of Code.
func (l *Labels) Label(field, code string) (string, bool) {
	label, ok := l.toLabel[field][code]
	return label, ok
}

func (l *Labels) Reason(label string) (models.Reason, error) {
	code, err := l.Code(models.FieldReason, label)
	return models.Reason(code), err
}

func (l *Labels) EmploymentStatus(label string) (models.EmploymentStatus, error) {
	code, err := l.Code(models.FieldEmploymentStatus, label)
	return models.EmploymentStatus(code), err
}

func (l *Labels) EmploymentSector(label string) (models.EmploymentSector, error) {
	code, err := l.Code(models.FieldEmploymentSector, label)
	return models.EmploymentSector(code), err
}

func (l *Labels) Lender(label string) (models.Lender, error) {
	code, err := l.Code(models.FieldLender, label)
	return models.Lender(code), err
}

// Bankrupt maps the Yes/No selector. 0 and 1 are accepted too.
func (l *Labels) Bankrupt(label string) (bool, error) {
	switch cases.Fold().String(strings.TrimSpace(label)) {
	case "yes", "1", "true":
		return true, nil
	case "no", "0", "false":
		return false, nil
	default:
		return false, apperrors.NewUnknownCategoryError(models.FieldEverBankruptOrForeclose, label)
	}
}
