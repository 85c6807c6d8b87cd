package models

import "time"

// Decision is a persisted evaluation outcome.
type Decision struct {
	ID                   string             `json:"id" db:"id"`
	ApplicationID        string             `json:"applicationId,omitempty" db:"application_id"`
	Approved             bool               `json:"approved" db:"approved"`
	Verdict              string             `json:"verdict" db:"verdict"`
	HousingToIncomeRatio float64            `json:"housingToIncomeRatio" db:"housing_to_income_ratio"`
	Applicant            ApplicantRecord    `json:"applicant" db:"applicant"`
	Features             map[string]float64 `json:"features" db:"features"`
	ModelVersion         string             `json:"modelVersion" db:"model_version"`
	SchemaVersion        string             `json:"schemaVersion" db:"schema_version"`
	Channel              string             `json:"channel" db:"channel"`
	EvaluatedAt          time.Time          `json:"evaluatedAt" db:"evaluated_at"`
}

// Evaluation channels.
const (
	ChannelAPI    = "api"
	ChannelForm   = "form"
	ChannelWorker = "worker"
	ChannelCLI    = "cli"
)
