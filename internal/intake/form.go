package intake

import (
	"loan-approval/internal/features"
	"loan-approval/internal/models"
)

// Widget kinds.
const (
	KindNumber = "number"
	KindSlider = "slider"
	KindSelect = "select"
)

// Field is one input of the applicant form.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Help    string   `json:"help,omitempty"`
	Kind    string   `json:"kind"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Default any      `json:"default"`
	Options []string `json:"options,omitempty"`
}

// Form is the machine-readable applicant form.
type Form struct {
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle"`
	SchemaVersion string  `json:"schemaVersion"`
	Fields        []Field `json:"fields"`
}

const (
	BankruptYes = "Yes"
	BankruptNo  = "No"
)

// FormDefinition lists the form fields with their bounds, defaults and the
// dropdown labels taken from the schema.
func FormDefinition(schema *features.Schema) Form {
	fields := []Field{
		numberField(models.FieldLoanAmount, "Requested Loan Amount",
			"Total amount of the loan being requested.", models.LoanAmountBounds, 1000, 10_000.0),
		{
			Name:    models.FieldFICOScore,
			Label:   "FICO Score",
			Help:    "Higher scores generally indicate lower credit risk.",
			Kind:    KindSlider,
			Min:     ptr(models.FICOScoreBounds.Min),
			Max:     ptr(models.FICOScoreBounds.Max),
			Step:    1,
			Default: 700,
		},
		{
			Name:    models.FieldEverBankruptOrForeclose,
			Label:   "Ever Bankrupt or Foreclosed?",
			Kind:    KindSelect,
			Default: BankruptNo,
			Options: []string{BankruptNo, BankruptYes},
		},
		numberField(models.FieldMonthlyIncome, "Monthly Gross Income",
			"Total monthly income before taxes.", models.MonthlyIncomeBounds, 100, 5_000.0),
		numberField(models.FieldMonthlyHousingPayment, "Monthly Housing Payment",
			"Monthly rent or mortgage payments.", models.HousingPaymentBounds, 50, 1_500.0),
	}

	for _, cat := range schema.Categories {
		labels := make([]string, len(cat.Values))
		for i, v := range cat.Values {
			labels[i] = v.Label
		}
		fields = append(fields, Field{
			Name:    cat.Field,
			Label:   cat.Label,
			Kind:    KindSelect,
			Default: labels[0],
			Options: labels,
		})
	}

	return Form{
		Title:         "Loan Approval Predictor",
		Subtitle:      "Fill in the applicant details below and evaluate the likelihood of loan approval.",
		SchemaVersion: schema.Version,
		Fields:        fields,
	}
}

func numberField(name, label, help string, b models.Bounds, step, def float64) Field {
	return Field{
		Name:    name,
		Label:   label,
		Help:    help,
		Kind:    KindNumber,
		Min:     ptr(b.Min),
		Max:     ptr(b.Max),
		Step:    step,
		Default: def,
	}
}

// Field looks up a field by name.
func (f Form) Field(name string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return Field{}, false
}

func ptr(v float64) *float64 { return &v }
