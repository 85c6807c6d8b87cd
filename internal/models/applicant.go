package models

import (
	"fmt"
	"math"
	"strings"

	apperrors "loan-approval/internal/common/errors"
)

// Record field keys. Feature schemas refer to record attributes by these names.
const (
	FieldLoanAmount              = "loan_amount"
	FieldFICOScore               = "fico_score"
	FieldMonthlyIncome           = "monthly_income"
	FieldMonthlyHousingPayment   = "monthly_housing_payment"
	FieldEverBankruptOrForeclose = "ever_bankrupt_or_foreclose"
	FieldHousingToIncomeRatio    = "housing_to_income_ratio"

	FieldReason           = "reason"
	FieldEmploymentStatus = "employment_status"
	FieldEmploymentSector = "employment_sector"
	FieldLender           = "lender"
)

// NumericFields lists the keys returned by ApplicantRecord.Numeric.
var NumericFields = []string{
	FieldLoanAmount, FieldFICOScore, FieldMonthlyIncome, FieldMonthlyHousingPayment,
	FieldEverBankruptOrForeclose, FieldHousingToIncomeRatio,
}

type Reason string

const (
	ReasonCreditCardRefinancing Reason = "credit_card_refinancing"
	ReasonHomeImprovement       Reason = "home_improvement"
	ReasonMajorPurchase         Reason = "major_purchase"
	ReasonDebtConsolidation     Reason = "debt_consolidation"
	ReasonOther                 Reason = "other"
)

type EmploymentStatus string

const (
	EmploymentFullTime EmploymentStatus = "full_time"
	EmploymentPartTime EmploymentStatus = "part_time"
)

type EmploymentSector string

const (
	SectorConsumerDiscretionary EmploymentSector = "consumer_discretionary"
	SectorConsumerStaples       EmploymentSector = "consumer_staples"
	SectorEnergy                EmploymentSector = "energy"
	SectorFinancials            EmploymentSector = "financials"
	SectorHealthCare            EmploymentSector = "health_care"
	SectorIndustrials           EmploymentSector = "industrials"
	SectorInformationTechnology EmploymentSector = "information_technology"
	SectorMaterials             EmploymentSector = "materials"
	SectorUtilities             EmploymentSector = "utilities"
	SectorRealEstate            EmploymentSector = "real_estate"
)

type Lender string

const (
	LenderA Lender = "A"
	LenderB Lender = "B"
	LenderC Lender = "C"
)

var (
	Reasons = []Reason{
		ReasonCreditCardRefinancing, ReasonHomeImprovement, ReasonMajorPurchase,
		ReasonDebtConsolidation, ReasonOther,
	}
	EmploymentStatuses = []EmploymentStatus{EmploymentFullTime, EmploymentPartTime}
	EmploymentSectors  = []EmploymentSector{
		SectorConsumerDiscretionary, SectorConsumerStaples, SectorEnergy, SectorFinancials,
		SectorHealthCare, SectorIndustrials, SectorInformationTechnology, SectorMaterials,
		SectorUtilities, SectorRealEstate,
	}
	Lenders = []Lender{LenderA, LenderB, LenderC}
)

func (r Reason) Valid() bool           { return contains(Reasons, r) }
func (s EmploymentStatus) Valid() bool { return contains(EmploymentStatuses, s) }
func (s EmploymentSector) Valid() bool { return contains(EmploymentSectors, s) }
func (l Lender) Valid() bool           { return contains(Lenders, l) }

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// CategoryValues returns the closed enumeration for a categorical field.
func CategoryValues(field string) ([]string, bool) {
	switch field {
	case FieldReason:
		return toStrings(Reasons), true
	case FieldEmploymentStatus:
		return toStrings(EmploymentStatuses), true
	case FieldEmploymentSector:
		return toStrings(EmploymentSectors), true
	case FieldLender:
		return toStrings(Lenders), true
	default:
		return nil, false
	}
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var (
	LoanAmountBounds     = Bounds{Min: 0, Max: 1_000_000}
	FICOScoreBounds      = Bounds{Min: 300, Max: 850}
	MonthlyIncomeBounds  = Bounds{Min: 1, Max: 1_000_000}
	HousingPaymentBounds = Bounds{Min: 0, Max: 1_000_000}
)

func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp pulls v into the range. NaN clamps to Min.
func (b Bounds) Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < b.Min:
		return b.Min
	case v > b.Max:
		return b.Max
	default:
		return v
	}
}

// ApplicantRecord is one raw loan application as collected from a form,
// API payload or process variables.
type ApplicantRecord struct {
	LoanAmount              float64          `json:"loanAmount"`
	FICOScore               int              `json:"ficoScore"`
	MonthlyIncome           float64          `json:"monthlyIncome"`
	MonthlyHousingPayment   float64          `json:"monthlyHousingPayment"`
	EverBankruptOrForeclose bool             `json:"everBankruptOrForeclose"`
	Reason                  Reason           `json:"reason"`
	EmploymentStatus        EmploymentStatus `json:"employmentStatus"`
	EmploymentSector        EmploymentSector `json:"employmentSector"`
	Lender                  Lender           `json:"lender"`
}

// HousingToIncomeRatio is the derived housing payment over gross income.
// Validate guarantees a strictly positive income.
func (r ApplicantRecord) HousingToIncomeRatio() float64 {
	return r.MonthlyHousingPayment / r.MonthlyIncome
}

// Validate rejects unknown categorical values first, then out-of-range numbers.
func (r ApplicantRecord) Validate() error {
	for _, c := range []struct {
		field string
		value string
		ok    bool
	}{
		{FieldReason, string(r.Reason), r.Reason.Valid()},
		{FieldEmploymentStatus, string(r.EmploymentStatus), r.EmploymentStatus.Valid()},
		{FieldEmploymentSector, string(r.EmploymentSector), r.EmploymentSector.Valid()},
		{FieldLender, string(r.Lender), r.Lender.Valid()},
	} {
		if !c.ok {
			return apperrors.NewUnknownCategoryError(c.field, c.value)
		}
	}

	var violations []string
	check := func(field string, v float64, b Bounds) {
		if !b.Contains(v) {
			violations = append(violations, fmt.Sprintf("%s=%v outside [%v, %v]", field, v, b.Min, b.Max))
		}
	}
	check(FieldLoanAmount, r.LoanAmount, LoanAmountBounds)
	check(FieldFICOScore, float64(r.FICOScore), FICOScoreBounds)
	check(FieldMonthlyIncome, r.MonthlyIncome, MonthlyIncomeBounds)
	check(FieldMonthlyHousingPayment, r.MonthlyHousingPayment, HousingPaymentBounds)

	if len(violations) > 0 {
		return apperrors.NewInvalidApplicantInputError(strings.Join(violations, "; "))
	}
	return nil
}

// Numeric returns the numeric attributes keyed by field name, including the
// derived ratio. The bankruptcy flag is 0 or 1.
func (r ApplicantRecord) Numeric() map[string]float64 {
	bankrupt := 0.0
	if r.EverBankruptOrForeclose {
		bankrupt = 1
	}
	return map[string]float64{
		FieldLoanAmount:              r.LoanAmount,
		FieldFICOScore:               float64(r.FICOScore),
		FieldMonthlyIncome:           r.MonthlyIncome,
		FieldMonthlyHousingPayment:   r.MonthlyHousingPayment,
		FieldEverBankruptOrForeclose: bankrupt,
		FieldHousingToIncomeRatio:    r.HousingToIncomeRatio(),
	}
}

// Categorical returns the categorical codes keyed by field name.
func (r ApplicantRecord) Categorical() map[string]string {
	return map[string]string{
		FieldReason:           string(r.Reason),
		FieldEmploymentStatus: string(r.EmploymentStatus),
		FieldEmploymentSector: string(r.EmploymentSector),
		FieldLender:           string(r.Lender),
	}
}
