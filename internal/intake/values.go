package intake

import (
	"math"

	"loan-approval/internal/models"
)

// FormValues is a submitted form: numbers as entered and dropdowns as their
// display labels.
type FormValues struct {
	LoanAmount              float64 `json:"loanAmount"`
	FICOScore               float64 `json:"ficoScore"`
	MonthlyIncome           float64 `json:"monthlyIncome"`
	MonthlyHousingPayment   float64 `json:"monthlyHousingPayment"`
	EverBankruptOrForeclose string  `json:"everBankruptOrForeclose"`
	Reason                  string  `json:"reason"`
	EmploymentStatus        string  `json:"employmentStatus"`
	EmploymentSector        string  `json:"employmentSector"`
	Lender                  string  `json:"lender"`
}

// DefaultFormValues mirrors the form defaults.
func DefaultFormValues() FormValues {
	return FormValues{
		LoanAmount:              10_000,
		FICOScore:               700,
		MonthlyIncome:           5_000,
		MonthlyHousingPayment:   1_500,
		EverBankruptOrForeclose: BankruptNo,
		Reason:                  "Credit card refinancing",
		EmploymentStatus:        "Full-time",
		EmploymentSector:        "Consumer discretionary",
		Lender:                  "Lender A",
	}
}

// Record clamps every number into its bounds, as bounded widgets would, and
// resolves the dropdown labels. Unknown labels fail.
func (v FormValues) Record(labels *Labels) (models.ApplicantRecord, error) {
	reason, err := labels.Reason(v.Reason)
	if err != nil {
		return models.ApplicantRecord{}, err
	}
	status, err := labels.EmploymentStatus(v.EmploymentStatus)
	if err != nil {
		return models.ApplicantRecord{}, err
	}
	sector, err := labels.EmploymentSector(v.EmploymentSector)
	if err != nil {
		return models.ApplicantRecord{}, err
	}
	lender, err := labels.Lender(v.Lender)
	if err != nil {
		return models.ApplicantRecord{}, err
	}
	bankrupt := false
	if v.EverBankruptOrForeclose != "" {
		if bankrupt, err = labels.Bankrupt(v.EverBankruptOrForeclose); err != nil {
			return models.ApplicantRecord{}, err
		}
	}

	return models.ApplicantRecord{
		LoanAmount:              models.LoanAmountBounds.Clamp(v.LoanAmount),
		FICOScore:               int(math.Round(models.FICOScoreBounds.Clamp(v.FICOScore))),
		MonthlyIncome:           models.MonthlyIncomeBounds.Clamp(v.MonthlyIncome),
		MonthlyHousingPayment:   models.HousingPaymentBounds.Clamp(v.MonthlyHousingPayment),
		EverBankruptOrForeclose: bankrupt,
		Reason:                  reason,
		EmploymentStatus:        status,
		EmploymentSector:        sector,
		Lender:                  lender,
	}, nil
}
